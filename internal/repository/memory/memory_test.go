package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

func TestTaskRepository_ListOrderAndPage(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := models.TaskStatusPending
		if i%2 == 1 {
			status = models.TaskStatusCompleted
		}
		require.NoError(t, repos.Tasks.Create(ctx, &models.Task{
			ID:        fmt.Sprintf("task-%d", i),
			UserID:    "owner",
			Title:     fmt.Sprintf("task %d", i),
			Status:    status,
			Priority:  models.PriorityMedium,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repos.Tasks.List(ctx, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "task-4", all[0].ID)
	assert.Equal(t, "task-0", all[4].ID)

	page, err := repos.Tasks.List(ctx, repository.TaskFilter{Page: repository.Page{Offset: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "task-3", page[0].ID)
	assert.Equal(t, "task-2", page[1].ID)

	completed, err := repos.Tasks.List(ctx, repository.TaskFilter{Status: models.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	beyond, err := repos.Tasks.List(ctx, repository.TaskFilter{Page: repository.Page{Offset: 10}})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestTaskRepository_CopiesRows(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	due := time.Now()
	task := &models.Task{ID: "t", UserID: "owner", Title: "a", DueDate: &due}
	require.NoError(t, repos.Tasks.Create(ctx, task))

	got, err := repos.Tasks.GetByID(ctx, "t")
	require.NoError(t, err)
	got.Title = "mutated"
	*got.DueDate = due.Add(time.Hour)

	stored, ok := store.Task("t")
	require.True(t, ok)
	assert.Equal(t, "a", stored.Title)
	assert.Equal(t, due, *stored.DueDate)
}

func TestUserRepository_UniqueUsername(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	require.NoError(t, repos.Users.Create(ctx, &models.User{ID: "1", Username: "alice"}))
	err := repos.Users.Create(ctx, &models.User{ID: "2", Username: "alice"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = repos.Users.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
