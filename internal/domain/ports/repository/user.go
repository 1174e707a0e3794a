package repository

import (
	"context"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, qx Tx, user *model.User) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, qx Tx, username string) (*model.User, error)
}
