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

var taskColumns = []string{
	"id",
	"user_id",
	"title",
	"description",
	"status",
	"priority",
	"due_date",
	"created_at",
	"updated_at",
}

type taskRepository struct {
	db database.DBTX
}

func NewTaskRepository(db database.DBTX) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   title,
                   description,
                   status,
                   priority,
                   due_date,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", normalizeError(err))
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return r.get(ctx, id, false)
}

func (r *taskRepository) GetForUpdate(ctx context.Context, id string) (*models.Task, error) {
	return r.get(ctx, id, true)
}

func (r *taskRepository) get(ctx context.Context, id string, forUpdate bool) (*models.Task, error) {
	q := psql.Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return scanTask(r.db.QueryRow(ctx, query, args...))
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	q := psql.Select(taskColumns...).
		From("tasks").
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
	if filter.DueAfter != nil {
		q = q.Where(sq.GtOrEq{"due_date": *filter.DueAfter})
	}
	if filter.DueBefore != nil {
		q = q.Where(sq.LtOrEq{"due_date": *filter.DueBefore})
	}
	if filter.Query != "" {
		q = q.Where(sq.ILike{"title": containsPattern(filter.Query)})
	}
	q = applyPage(q, filter.Page)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0, filter.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET title = $1,
    description = $2,
    status = $3,
    priority = $4,
    due_date = $5,
    updated_at = $6
WHERE id = $7
`
	tag, err := r.db.Exec(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", normalizeError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *taskRepository) Statistics(ctx context.Context, ownerID string, now time.Time) (*models.TaskStatistics, error) {
	q := psql.Select("status", "priority", "count(*)").
		Column(sq.Expr(
			"count(*) FILTER (WHERE due_date < ? AND status NOT IN (?, ?))",
			now,
			models.TaskStatusCompleted,
			models.TaskStatusArchived,
		)).
		From("tasks").
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
		return nil, fmt.Errorf("failed to select task statistics: %w", err)
	}
	defer rows.Close()

	stats := models.NewTaskStatistics()
	for rows.Next() {
		var (
			status         models.TaskStatus
			priority       models.Priority
			count, overdue int64
		)
		err = rows.Scan(&status, &priority, &count, &overdue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task statistics: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		stats.Overdue += overdue
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return stats, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		err = normalizeError(err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}
