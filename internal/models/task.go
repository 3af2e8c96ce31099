package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"

	DefaultTaskStatus = TaskStatusPending
)

var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusArchived,
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusArchived:
		return true
	}
	return false
}

// Closed reports whether a task in this status can no longer become overdue.
func (s TaskStatus) Closed() bool {
	return s == TaskStatusCompleted || s == TaskStatusArchived
}

type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Closed()
}

type TaskStatistics struct {
	Total      int64
	ByStatus   map[TaskStatus]int64
	ByPriority map[Priority]int64
	Overdue    int64
}

func NewTaskStatistics() *TaskStatistics {
	stats := &TaskStatistics{
		ByStatus:   make(map[TaskStatus]int64, len(TaskStatuses)),
		ByPriority: make(map[Priority]int64, len(Priorities)),
	}
	for _, s := range TaskStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range Priorities {
		stats.ByPriority[p] = 0
	}
	return stats
}
