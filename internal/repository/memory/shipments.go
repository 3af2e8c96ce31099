package memory

import (
	"context"
	"time"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

type shipmentRepository struct {
	store *Store
}

func (r *shipmentRepository) Create(_ context.Context, shipment *models.Shipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.shipments[shipment.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.store.shipments[shipment.ID] = *shipment
	return nil
}

func (r *shipmentRepository) GetByID(_ context.Context, id string) (*models.Shipment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.shipments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *shipmentRepository) GetForUpdate(ctx context.Context, id string) (*models.Shipment, error) {
	return r.GetByID(ctx, id)
}

func (r *shipmentRepository) List(_ context.Context, filter repository.ShipmentFilter) ([]*models.Shipment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	shipments := make([]*models.Shipment, 0)
	for _, s := range r.store.shipments {
		if !matchShipment(&s, filter) {
			continue
		}
		shipments = append(shipments, &s)
	}
	sortShipments(shipments)
	return paginate(shipments, filter.Page), nil
}

func (r *shipmentRepository) Update(_ context.Context, shipment *models.Shipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.shipments[shipment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *shipment
	updated.UserID = stored.UserID
	updated.CreatedAt = stored.CreatedAt
	r.store.shipments[shipment.ID] = updated
	return nil
}

func (r *shipmentRepository) Statistics(_ context.Context, ownerID string, now time.Time) (*models.ShipmentStatistics, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var totalWeight float64
	stats := models.NewShipmentStatistics()
	for _, s := range r.store.shipments {
		if ownerID != "" && s.UserID != ownerID {
			continue
		}
		stats.Total++
		stats.ByStatus[s.Status]++
		stats.ByPriority[s.Priority]++
		if s.Overdue(now) {
			stats.Overdue++
		}
		totalWeight += s.Weight
	}
	if stats.Total > 0 {
		stats.AverageWeight = totalWeight / float64(stats.Total)
	}
	return stats, nil
}

func matchShipment(s *models.Shipment, f repository.ShipmentFilter) bool {
	if f.OwnerID != "" && s.UserID != f.OwnerID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Priority != "" && s.Priority != f.Priority {
		return false
	}
	if f.Destination != 0 && s.Destination != f.Destination {
		return false
	}
	if f.MinWeight != nil && s.Weight < *f.MinWeight {
		return false
	}
	if f.MaxWeight != nil && s.Weight > *f.MaxWeight {
		return false
	}
	if !inTimeRange(s.EstimatedDelivery, f.DeliveryAfter, f.DeliveryBefore) {
		return false
	}
	if f.Query != "" && !containsFold(s.Content, f.Query) {
		return false
	}
	return true
}
