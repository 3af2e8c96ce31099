package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

type shipmentServiceImpl struct {
	logger    zerolog.Logger
	shipments repository.ShipmentRepository
	now       func() time.Time
}

func NewShipmentService(
	logger zerolog.Logger,
	shipments repository.ShipmentRepository,
	now func() time.Time,
) ShipmentService {
	if now == nil {
		now = time.Now
	}
	return &shipmentServiceImpl{
		logger:    logger,
		shipments: shipments,
		now:       now,
	}
}

func validWeight(weight float64) bool {
	return weight > 0 && weight <= models.MaxShipmentWeight
}

func (s *shipmentServiceImpl) Get(ctx context.Context, actor Actor, id string) (*models.Shipment, error) {
	return s.lookup(ctx, actor, id, false)
}

func (s *shipmentServiceImpl) List(
	ctx context.Context,
	actor Actor,
	params ListShipmentsParams,
) ([]*models.Shipment, error) {
	ownerID, err := actor.ownerScope(params.OwnerID)
	if err != nil {
		s.logger.Warn().
			Str("user_id", actor.UserID).
			Str("owner_id", params.OwnerID).
			Msg("listing shipments of another user")
		return nil, err
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, ErrInvalidShipmentStatus
	}
	if params.Priority != "" && !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	shipments, err := s.shipments.List(ctx, repository.ShipmentFilter{
		OwnerID:        ownerID,
		Status:         params.Status,
		Priority:       params.Priority,
		Destination:    params.Destination,
		MinWeight:      params.MinWeight,
		MaxWeight:      params.MaxWeight,
		DeliveryAfter:  params.DeliveryAfter,
		DeliveryBefore: params.DeliveryBefore,
		Query:          params.Query,
		Page: repository.Page{
			Offset: params.Offset,
			Limit:  clampLimit(params.Limit),
		},
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Msg("failed to select shipments")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(shipments)).
		Str("user_id", actor.UserID).
		Msg("selected shipments")
	return shipments, nil
}

func (s *shipmentServiceImpl) Create(
	ctx context.Context,
	actor Actor,
	params CreateShipmentParams,
) (*models.Shipment, error) {
	if !validWeight(params.Weight) {
		return nil, ErrInvalidWeight
	}
	if params.Priority == "" {
		params.Priority = models.DefaultPriority
	}
	if !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	shipmentUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate shipment uuid")
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	shipment := &models.Shipment{
		ID:                shipmentUUID.String(),
		UserID:            actor.UserID,
		Content:           params.Content,
		Weight:            params.Weight,
		Destination:       params.Destination,
		Status:            models.DefaultShipmentStatus,
		Priority:          params.Priority,
		EstimatedDelivery: now.Add(models.DefaultDeliveryWindow),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.shipments.Create(ctx, shipment)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert shipment")
		return nil, err
	}

	s.logger.Info().
		Str("shipment_id", shipment.ID).
		Str("user_id", shipment.UserID).
		Msg("created shipment")
	return shipment, nil
}

func (s *shipmentServiceImpl) Update(
	ctx context.Context,
	actor Actor,
	id string,
	params UpdateShipmentParams,
) (*models.Shipment, error) {
	if params.empty() {
		return nil, ErrNoFieldsToUpdate
	}
	if params.Weight != nil && !validWeight(*params.Weight) {
		return nil, ErrInvalidWeight
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, ErrInvalidShipmentStatus
	}
	if params.Priority != nil && !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	shipment, err := s.lookup(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	if params.Content != nil {
		shipment.Content = *params.Content
	}
	if params.Weight != nil {
		shipment.Weight = *params.Weight
	}
	if params.Destination != nil {
		shipment.Destination = *params.Destination
	}
	if params.Status != nil {
		shipment.Status = *params.Status
	}
	if params.Priority != nil {
		shipment.Priority = *params.Priority
	}
	if params.EstimatedDelivery != nil {
		shipment.EstimatedDelivery = params.EstimatedDelivery.UTC().Truncate(time.Microsecond)
	}

	err = s.save(ctx, shipment)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shipment_id", shipment.ID).
		Str("user_id", actor.UserID).
		Msg("updated shipment")
	return shipment, nil
}

func (s *shipmentServiceImpl) Archive(ctx context.Context, actor Actor, id string) (*models.Shipment, error) {
	shipment, err := s.setStatus(ctx, actor, id, models.ShipmentStatusArchived)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shipment_id", shipment.ID).
		Str("user_id", actor.UserID).
		Msg("archived shipment")
	return shipment, nil
}

func (s *shipmentServiceImpl) BulkCreate(
	ctx context.Context,
	actor Actor,
	params []CreateShipmentParams,
) ([]*models.Shipment, error) {
	shipments := make([]*models.Shipment, 0, len(params))
	for i, p := range params {
		shipment, err := s.Create(ctx, actor, p)
		if err != nil {
			return nil, fmt.Errorf("shipment %d: %w", i, err)
		}
		shipments = append(shipments, shipment)
	}

	s.logger.Info().
		Int("count", len(shipments)).
		Str("user_id", actor.UserID).
		Msg("bulk created shipments")
	return shipments, nil
}

func (s *shipmentServiceImpl) BulkUpdateStatus(
	ctx context.Context,
	actor Actor,
	ids []string,
	status models.ShipmentStatus,
) ([]*models.Shipment, error) {
	if !status.Valid() {
		return nil, ErrInvalidShipmentStatus
	}

	shipments := make([]*models.Shipment, 0, len(ids))
	for _, id := range ids {
		shipment, err := s.setStatus(ctx, actor, id, status)
		if err != nil {
			return nil, fmt.Errorf("shipment %s: %w", id, err)
		}
		shipments = append(shipments, shipment)
	}

	s.logger.Info().
		Int("count", len(shipments)).
		Str("status", string(status)).
		Str("user_id", actor.UserID).
		Msg("bulk updated shipment status")
	return shipments, nil
}

func (s *shipmentServiceImpl) Statistics(ctx context.Context, actor Actor) (*models.ShipmentStatistics, error) {
	ownerID := actor.UserID
	if actor.IsAdmin {
		ownerID = ""
	}

	stats, err := s.shipments.Statistics(ctx, ownerID, s.now())
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Msg("failed to select shipment statistics")
		return nil, err
	}
	return stats, nil
}

func (s *shipmentServiceImpl) setStatus(
	ctx context.Context,
	actor Actor,
	id string,
	status models.ShipmentStatus,
) (*models.Shipment, error) {
	shipment, err := s.lookup(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	shipment.Status = status
	err = s.save(ctx, shipment)
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *shipmentServiceImpl) save(ctx context.Context, shipment *models.Shipment) error {
	shipment.UpdatedAt = nextTimestamp(s.now(), shipment.UpdatedAt)

	err := s.shipments.Update(ctx, shipment)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrShipmentNotFound
		}

		s.logger.Error().
			Err(err).
			Str("shipment_id", shipment.ID).
			Msg("failed to update shipment")
		return err
	}
	s.logger.Debug().
		Str("shipment_id", shipment.ID).
		Str("status", string(shipment.Status)).
		Msg("updated shipment")
	return nil
}

func (s *shipmentServiceImpl) lookup(
	ctx context.Context,
	actor Actor,
	id string,
	forUpdate bool,
) (*models.Shipment, error) {
	get := s.shipments.GetByID
	if forUpdate {
		get = s.shipments.GetForUpdate
	}

	shipment, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().
				Str("shipment_id", id).
				Msg("shipment not found")
			return nil, ErrShipmentNotFound
		}

		s.logger.Error().
			Err(err).
			Str("shipment_id", id).
			Msg("failed to select shipment")
		return nil, err
	}

	if !actor.canAccess(shipment.UserID) {
		s.logger.Warn().
			Str("shipment_id", id).
			Str("user_id", actor.UserID).
			Msg("shipment belongs to another user")
		return nil, ErrForbidden
	}
	return shipment, nil
}
