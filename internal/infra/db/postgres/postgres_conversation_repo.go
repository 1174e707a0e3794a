package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.MessageRepository     = (*ConversationRepo)(nil)
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, qx repository.Tx, conv *model.Conversation) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO conversations (id, user_id, title, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err = ex.Exec(ctx, q, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
	}
	return err
}

func (r *ConversationRepo) FindByID(ctx context.Context, qx repository.Tx, conversationID, userID string) (*model.Conversation, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, user_id, title, created_at, updated_at
  FROM conversations WHERE id=$1 AND user_id=$2;`
	var c model.Conversation
	err = ex.QueryRow(ctx, q, conversationID, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, offset, limit int) ([]*model.Conversation, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, user_id, title, created_at, updated_at
  FROM conversations WHERE user_id=$1
 ORDER BY updated_at DESC
OFFSET $2 LIMIT $3;`
	rows, err := ex.Query(ctx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) Touch(ctx context.Context, qx repository.Tx, conversationID string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE conversations SET updated_at=now() WHERE id=$1;`, conversationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) Append(ctx context.Context, qx repository.Tx, msg *model.Message) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	const q = `
INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	if _, err := ex.Exec(ctx, q, msg.ID, msg.ConversationID, msg.Role, msg.Content, meta, msg.CreatedAt); err != nil {
		return err
	}
	return r.Touch(ctx, qx, msg.ConversationID)
}

func (r *ConversationRepo) ListByConversation(ctx context.Context, qx repository.Tx, conversationID string) ([]*model.Message, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, conversation_id, role, content, metadata, created_at
  FROM messages WHERE conversation_id=$1
 ORDER BY created_at ASC, id ASC;`
	rows, err := ex.Query(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		var (
			m    model.Message
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
