package models

import "time"

type ShipmentStatus string

const (
	ShipmentStatusPlaced         ShipmentStatus = "placed"
	ShipmentStatusInTransit      ShipmentStatus = "in_transit"
	ShipmentStatusOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentStatusDelivered      ShipmentStatus = "delivered"
	ShipmentStatusArchived       ShipmentStatus = "archived"

	DefaultShipmentStatus = ShipmentStatusPlaced
)

const (
	// MaxShipmentWeight is in kilograms.
	MaxShipmentWeight = 25

	DefaultDeliveryWindow = 3 * 24 * time.Hour
)

var ShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPlaced,
	ShipmentStatusInTransit,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
	ShipmentStatusArchived,
}

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPlaced,
		ShipmentStatusInTransit,
		ShipmentStatusOutForDelivery,
		ShipmentStatusDelivered,
		ShipmentStatusArchived:
		return true
	}
	return false
}

func (s ShipmentStatus) Closed() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusArchived
}

type Shipment struct {
	ID                string
	UserID            string
	Content           string
	Weight            float64
	Destination       int
	Status            ShipmentStatus
	Priority          Priority
	EstimatedDelivery time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s *Shipment) Overdue(now time.Time) bool {
	return s.EstimatedDelivery.Before(now) && !s.Status.Closed()
}

type ShipmentStatistics struct {
	Total         int64
	ByStatus      map[ShipmentStatus]int64
	ByPriority    map[Priority]int64
	Overdue       int64
	AverageWeight float64
}

func NewShipmentStatistics() *ShipmentStatistics {
	stats := &ShipmentStatistics{
		ByStatus:   make(map[ShipmentStatus]int64, len(ShipmentStatuses)),
		ByPriority: make(map[Priority]int64, len(Priorities)),
	}
	for _, s := range ShipmentStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range Priorities {
		stats.ByPriority[p] = 0
	}
	return stats
}
