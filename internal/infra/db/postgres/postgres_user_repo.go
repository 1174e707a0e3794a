package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, email, full_name, password_hash, is_active, registered_at, updated_at`

func (r *UserRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  email=$3, full_name=$4, password_hash=$5, is_active=$6, updated_at=$8;`
	_, err = ex.Exec(ctx, q, u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.IsActive, u.RegisteredAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
	}
	return err
}

func (r *UserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id))
}

func (r *UserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1;`, username))
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.RegisteredAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
