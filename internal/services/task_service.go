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

type taskServiceImpl struct {
	logger zerolog.Logger
	tasks  repository.TaskRepository
	now    func() time.Time
}

func NewTaskService(
	logger zerolog.Logger,
	tasks repository.TaskRepository,
	now func() time.Time,
) TaskService {
	if now == nil {
		now = time.Now
	}
	return &taskServiceImpl{
		logger: logger,
		tasks:  tasks,
		now:    now,
	}
}

func (s *taskServiceImpl) Get(ctx context.Context, actor Actor, id string) (*models.Task, error) {
	return s.lookup(ctx, actor, id, false)
}

func (s *taskServiceImpl) List(ctx context.Context, actor Actor, params ListTasksParams) ([]*models.Task, error) {
	ownerID, err := actor.ownerScope(params.OwnerID)
	if err != nil {
		s.logger.Warn().
			Str("user_id", actor.UserID).
			Str("owner_id", params.OwnerID).
			Msg("listing tasks of another user")
		return nil, err
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if params.Priority != "" && !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{
		OwnerID:   ownerID,
		Status:    params.Status,
		Priority:  params.Priority,
		DueAfter:  params.DueAfter,
		DueBefore: params.DueBefore,
		Query:     params.Query,
		Page: repository.Page{
			Offset: params.Offset,
			Limit:  clampLimit(params.Limit),
		},
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Msg("failed to select tasks")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", actor.UserID).
		Msg("selected tasks")
	return tasks, nil
}

func (s *taskServiceImpl) Create(ctx context.Context, actor Actor, params CreateTaskParams) (*models.Task, error) {
	if params.Priority == "" {
		params.Priority = models.DefaultPriority
	}
	if !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	task := &models.Task{
		ID:          taskUUID.String(),
		UserID:      actor.UserID,
		Title:       params.Title,
		Description: params.Description,
		Status:      models.DefaultTaskStatus,
		Priority:    params.Priority,
		DueDate:     storedTime(params.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) Update(ctx context.Context, actor Actor, id string, params UpdateTaskParams) (*models.Task, error) {
	if params.empty() {
		return nil, ErrNoFieldsToUpdate
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if params.Priority != nil && !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task, err := s.lookup(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		task.Status = *params.Status
	}
	if params.Priority != nil {
		task.Priority = *params.Priority
	}
	if params.DueDate != nil {
		task.DueDate = storedTime(params.DueDate)
	}

	err = s.save(ctx, task)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", actor.UserID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) Archive(ctx context.Context, actor Actor, id string) (*models.Task, error) {
	task, err := s.setStatus(ctx, actor, id, models.TaskStatusArchived)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", actor.UserID).
		Msg("archived task")
	return task, nil
}

func (s *taskServiceImpl) BulkCreate(ctx context.Context, actor Actor, params []CreateTaskParams) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0, len(params))
	for i, p := range params {
		task, err := s.Create(ctx, actor, p)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("user_id", actor.UserID).
		Msg("bulk created tasks")
	return tasks, nil
}

func (s *taskServiceImpl) BulkUpdateStatus(
	ctx context.Context,
	actor Actor,
	ids []string,
	status models.TaskStatus,
) ([]*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidTaskStatus
	}

	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.setStatus(ctx, actor, id, status)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
		tasks = append(tasks, task)
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("status", string(status)).
		Str("user_id", actor.UserID).
		Msg("bulk updated task status")
	return tasks, nil
}

func (s *taskServiceImpl) Statistics(ctx context.Context, actor Actor) (*models.TaskStatistics, error) {
	ownerID := actor.UserID
	if actor.IsAdmin {
		ownerID = ""
	}

	stats, err := s.tasks.Statistics(ctx, ownerID, s.now())
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Msg("failed to select task statistics")
		return nil, err
	}
	return stats, nil
}

func (s *taskServiceImpl) setStatus(ctx context.Context, actor Actor, id string, status models.TaskStatus) (*models.Task, error) {
	task, err := s.lookup(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	task.Status = status
	err = s.save(ctx, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) save(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = nextTimestamp(s.now(), task.UpdatedAt)

	err := s.tasks.Update(ctx, task)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Str("status", string(task.Status)).
		Msg("updated task")
	return nil
}

func (s *taskServiceImpl) lookup(ctx context.Context, actor Actor, id string, forUpdate bool) (*models.Task, error) {
	get := s.tasks.GetByID
	if forUpdate {
		get = s.tasks.GetForUpdate
	}

	task, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().
				Str("task_id", id).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to select task")
		return nil, err
	}

	if !actor.canAccess(task.UserID) {
		s.logger.Warn().
			Str("task_id", id).
			Str("user_id", actor.UserID).
			Msg("task belongs to another user")
		return nil, ErrForbidden
	}
	return task, nil
}

// storedTime truncates t to the precision postgres keeps.
func storedTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	stored := t.UTC().Truncate(time.Microsecond)
	return &stored
}
