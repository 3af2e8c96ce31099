package memory

import (
	"context"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Username == user.Username {
			return repository.ErrAlreadyExists
		}
	}
	if _, ok := r.store.users[user.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}
