package memory

import (
	"context"
	"time"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

type taskRepository struct {
	store *Store
}

func (r *taskRepository) Create(_ context.Context, task *models.Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.tasks[task.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.store.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *taskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = copyTask(&t)
	return &t, nil
}

func (r *taskRepository) GetForUpdate(ctx context.Context, id string) (*models.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *taskRepository) List(_ context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	tasks := make([]*models.Task, 0)
	for _, t := range r.store.tasks {
		if !matchTask(&t, filter) {
			continue
		}
		t = copyTask(&t)
		tasks = append(tasks, &t)
	}
	sortTasks(tasks)
	return paginate(tasks, filter.Page), nil
}

func (r *taskRepository) Update(_ context.Context, task *models.Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := copyTask(task)
	updated.UserID = stored.UserID
	updated.CreatedAt = stored.CreatedAt
	r.store.tasks[task.ID] = updated
	return nil
}

func (r *taskRepository) Statistics(_ context.Context, ownerID string, now time.Time) (*models.TaskStatistics, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := models.NewTaskStatistics()
	for _, t := range r.store.tasks {
		if ownerID != "" && t.UserID != ownerID {
			continue
		}
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func matchTask(t *models.Task, f repository.TaskFilter) bool {
	if f.OwnerID != "" && t.UserID != f.OwnerID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.DueAfter != nil || f.DueBefore != nil {
		// Comparisons against NULL never match in SQL either.
		if t.DueDate == nil || !inTimeRange(*t.DueDate, f.DueAfter, f.DueBefore) {
			return false
		}
	}
	if f.Query != "" && !containsFold(t.Title, f.Query) {
		return false
	}
	return true
}

func copyTask(t *models.Task) models.Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return c
}
