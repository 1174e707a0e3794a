package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	Register(ctx context.Context, username, email, fullName, password string) (*model.User, error)
	// Authenticate returns the user on a valid username/password pair and
	// domain.ErrNotFound otherwise, so callers cannot distinguish a wrong
	// password from an unknown user.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
}

func NewUserUseCase(users repository.UserRepository) *userUC {
	return &userUC{users: users}
}

func (u *userUC) Register(ctx context.Context, username, email, fullName, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 50 {
		return nil, fmt.Errorf("%w: username must be 3-50 characters", domain.ErrInvalidArgument)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", domain.ErrInvalidArgument)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password too short", domain.ErrInvalidArgument)
	}
	if _, err := u.users.FindByUsername(ctx, nil, username); err == nil {
		return nil, domain.ErrAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := model.NewUser(uuid.NewString(), username, email, fullName, string(hash))
	if err := u.users.Save(ctx, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := u.users.FindByUsername(ctx, nil, username)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrNotFound
	}
	if !user.IsActive {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (u *userUC) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, nil, id)
}
