// Package repository declares the storage operations the services run
// against a request session.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/adanyl0v/go-tracker/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type UserRepository interface {
	// Create inserts the user. It returns ErrAlreadyExists
	// if the username is taken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// GetForUpdate is GetByID that also locks the row until
	// the session is released.
	GetForUpdate(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	// Update writes every mutable field of the task.
	Update(ctx context.Context, task *models.Task) error
	Statistics(ctx context.Context, ownerID string, now time.Time) (*models.TaskStatistics, error)
}

type ShipmentRepository interface {
	Create(ctx context.Context, shipment *models.Shipment) error
	GetByID(ctx context.Context, id string) (*models.Shipment, error)
	GetForUpdate(ctx context.Context, id string) (*models.Shipment, error)
	List(ctx context.Context, filter ShipmentFilter) ([]*models.Shipment, error)
	Update(ctx context.Context, shipment *models.Shipment) error
	Statistics(ctx context.Context, ownerID string, now time.Time) (*models.ShipmentStatistics, error)
}

// Repositories is the set of repositories bound to one session.
type Repositories struct {
	Users     UserRepository
	Tasks     TaskRepository
	Shipments ShipmentRepository
}

// Page is skip/limit pagination. A zero Limit means no limit.
type Page struct {
	Offset uint64
	Limit  uint64
}

// TaskFilter zero values mean "any".
type TaskFilter struct {
	OwnerID   string
	Status    models.TaskStatus
	Priority  models.Priority
	DueAfter  *time.Time
	DueBefore *time.Time
	// Query matches a case-insensitive substring of the title.
	Query string
	Page
}

type ShipmentFilter struct {
	OwnerID        string
	Status         models.ShipmentStatus
	Priority       models.Priority
	Destination    int
	MinWeight      *float64
	MaxWeight      *float64
	DeliveryAfter  *time.Time
	DeliveryBefore *time.Time
	// Query matches a case-insensitive substring of the content.
	Query string
	Page
}
