package memstore

import (
	"context"
	"sync"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	mu     sync.RWMutex
	byID   map[string]*model.User
	byName map[string]string // username -> id
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: make(map[string]*model.User), byName: make(map[string]string)}
}

func (r *UserRepo) Save(ctx context.Context, qx repository.Tx, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[user.Username]; ok && id != user.ID {
		return domain.ErrAlreadyExists
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byName[user.Username] = user.ID
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}
