// Package memory is an in-process implementation of the repositories.
// It backs service and route tests where a database is not available.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

// Store holds every table. Repositories created from the same Store
// share its state.
type Store struct {
	mu        sync.RWMutex
	users     map[string]models.User
	tasks     map[string]models.Task
	shipments map[string]models.Shipment
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]models.User),
		tasks:     make(map[string]models.Task),
		shipments: make(map[string]models.Shipment),
	}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:     &userRepository{store: s},
		Tasks:     &taskRepository{store: s},
		Shipments: &shipmentRepository{store: s},
	}
}

// User returns a copy of the stored user row.
func (s *Store) User(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Store) Shipment(id string) (models.Shipment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	return sh, ok
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inTimeRange(t time.Time, after, before *time.Time) bool {
	if after != nil && t.Before(*after) {
		return false
	}
	if before != nil && t.After(*before) {
		return false
	}
	return true
}

// newestFirst orders like the postgres repositories: created_at, then id, descending.
func newestFirst(aCreated, bCreated time.Time, aID, bID string) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID > bID
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset >= uint64(len(items)) {
		return items[:0]
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < uint64(len(items)) {
		items = items[:page.Limit]
	}
	return items
}

func sortTasks(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return newestFirst(tasks[i].CreatedAt, tasks[j].CreatedAt, tasks[i].ID, tasks[j].ID)
	})
}

func sortShipments(shipments []*models.Shipment) {
	sort.Slice(shipments, func(i, j int) bool {
		return newestFirst(shipments[i].CreatedAt, shipments[j].CreatedAt, shipments[i].ID, shipments[j].ID)
	})
}
