package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_Valid(t *testing.T) {
	for _, s := range TaskStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TaskStatus("done").Valid())
	assert.False(t, TaskStatus("").Valid())
}

func TestShipmentStatus_Valid(t *testing.T) {
	for _, s := range ShipmentStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ShipmentStatus("lost").Valid())
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, Priority("critical").Valid())
}

func TestTask_Overdue(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: TaskStatusPending}, false},
		{"due in future", Task{Status: TaskStatusPending, DueDate: &future}, false},
		{"past due and open", Task{Status: TaskStatusInProgress, DueDate: &past}, true},
		{"past due but completed", Task{Status: TaskStatusCompleted, DueDate: &past}, false},
		{"past due but archived", Task{Status: TaskStatusArchived, DueDate: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Overdue(now))
		})
	}
}

func TestShipment_Overdue(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	late := Shipment{Status: ShipmentStatusInTransit, EstimatedDelivery: now.Add(-time.Minute)}
	assert.True(t, late.Overdue(now))

	delivered := Shipment{Status: ShipmentStatusDelivered, EstimatedDelivery: now.Add(-time.Minute)}
	assert.False(t, delivered.Overdue(now))

	onTime := Shipment{Status: ShipmentStatusPlaced, EstimatedDelivery: now.Add(time.Minute)}
	assert.False(t, onTime.Overdue(now))
}

func TestNewStatistics_ZeroFilled(t *testing.T) {
	ts := NewTaskStatistics()
	assert.Len(t, ts.ByStatus, len(TaskStatuses))
	assert.Len(t, ts.ByPriority, len(Priorities))

	ss := NewShipmentStatistics()
	assert.Len(t, ss.ByStatus, len(ShipmentStatuses))
	assert.Zero(t, ss.ByStatus[ShipmentStatusPlaced])
}
