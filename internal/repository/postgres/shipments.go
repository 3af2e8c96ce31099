package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

var shipmentColumns = []string{
	"id",
	"user_id",
	"content",
	"weight",
	"destination",
	"status",
	"priority",
	"estimated_delivery",
	"created_at",
	"updated_at",
}

type shipmentRepository struct {
	db database.DBTX
}

func NewShipmentRepository(db database.DBTX) repository.ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	const insertShipmentQuery = `
INSERT INTO shipments (id,
                       user_id,
                       content,
                       weight,
                       destination,
                       status,
                       priority,
                       estimated_delivery,
                       created_at,
                       updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.db.Exec(
		ctx,
		insertShipmentQuery,
		shipment.ID,
		shipment.UserID,
		shipment.Content,
		shipment.Weight,
		shipment.Destination,
		shipment.Status,
		shipment.Priority,
		shipment.EstimatedDelivery,
		shipment.CreatedAt,
		shipment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", normalizeError(err))
	}
	return nil
}

func (r *shipmentRepository) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	return r.get(ctx, id, false)
}

func (r *shipmentRepository) GetForUpdate(ctx context.Context, id string) (*models.Shipment, error) {
	return r.get(ctx, id, true)
}

func (r *shipmentRepository) get(ctx context.Context, id string, forUpdate bool) (*models.Shipment, error) {
	q := psql.Select(shipmentColumns...).
		From("shipments").
		Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return scanShipment(r.db.QueryRow(ctx, query, args...))
}

func (r *shipmentRepository) List(ctx context.Context, filter repository.ShipmentFilter) ([]*models.Shipment, error) {
	q := psql.Select(shipmentColumns...).
		From("shipments").
		OrderBy("created_at DESC", "id DESC")

	if filter.OwnerID != "" {
		q = q.Where(sq.Eq{"user_id": filter.OwnerID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Priority != "" {
		q = q.Where(sq.Eq{"priority": filter.Priority})
	}
	if filter.Destination != 0 {
		q = q.Where(sq.Eq{"destination": filter.Destination})
	}
	if filter.MinWeight != nil {
		q = q.Where(sq.GtOrEq{"weight": *filter.MinWeight})
	}
	if filter.MaxWeight != nil {
		q = q.Where(sq.LtOrEq{"weight": *filter.MaxWeight})
	}
	if filter.DeliveryAfter != nil {
		q = q.Where(sq.GtOrEq{"estimated_delivery": *filter.DeliveryAfter})
	}
	if filter.DeliveryBefore != nil {
		q = q.Where(sq.LtOrEq{"estimated_delivery": *filter.DeliveryBefore})
	}
	if filter.Query != "" {
		q = q.Where(sq.ILike{"content": containsPattern(filter.Query)})
	}
	q = applyPage(q, filter.Page)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]*models.Shipment, 0, filter.Limit)
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shipment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return shipments, nil
}

func (r *shipmentRepository) Update(ctx context.Context, shipment *models.Shipment) error {
	const updateShipmentQuery = `
UPDATE shipments
SET content = $1,
    weight = $2,
    destination = $3,
    status = $4,
    priority = $5,
    estimated_delivery = $6,
    updated_at = $7
WHERE id = $8
`
	tag, err := r.db.Exec(
		ctx,
		updateShipmentQuery,
		shipment.Content,
		shipment.Weight,
		shipment.Destination,
		shipment.Status,
		shipment.Priority,
		shipment.EstimatedDelivery,
		shipment.UpdatedAt,
		shipment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", normalizeError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *shipmentRepository) Statistics(ctx context.Context, ownerID string, now time.Time) (*models.ShipmentStatistics, error) {
	q := psql.Select("status", "priority", "count(*)").
		Column(sq.Expr(
			"count(*) FILTER (WHERE estimated_delivery < ? AND status NOT IN (?, ?))",
			now,
			models.ShipmentStatusDelivered,
			models.ShipmentStatusArchived,
		)).
		Column("coalesce(sum(weight), 0)").
		From("shipments").
		GroupBy("status", "priority")
	if ownerID != "" {
		q = q.Where(sq.Eq{"user_id": ownerID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select shipment statistics: %w", err)
	}
	defer rows.Close()

	var totalWeight float64
	stats := models.NewShipmentStatistics()
	for rows.Next() {
		var (
			status         models.ShipmentStatus
			priority       models.Priority
			count, overdue int64
			weight         float64
		)
		err = rows.Scan(&status, &priority, &count, &overdue, &weight)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment statistics: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		stats.Overdue += overdue
		totalWeight += weight
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	if stats.Total > 0 {
		stats.AverageWeight = totalWeight / float64(stats.Total)
	}
	return stats, nil
}

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	shipment := new(models.Shipment)
	err := row.Scan(
		&shipment.ID,
		&shipment.UserID,
		&shipment.Content,
		&shipment.Weight,
		&shipment.Destination,
		&shipment.Status,
		&shipment.Priority,
		&shipment.EstimatedDelivery,
		&shipment.CreatedAt,
		&shipment.UpdatedAt,
	)
	if err != nil {
		err = normalizeError(err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan shipment: %w", err)
	}
	return shipment, nil
}
