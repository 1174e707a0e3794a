package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

type ConversationUseCase interface {
	Create(ctx context.Context, userID, title string) (*model.Conversation, error)
	List(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error)
	Messages(ctx context.Context, conversationID, userID string) ([]*model.Message, error)
	AppendMessage(ctx context.Context, conversationID, userID, role, content string, metadata map[string]string) (*model.Message, error)
}

type conversationUC struct {
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	txm      repository.TransactionManager // optional; nil runs writes non-transactionally
}

func NewConversationUseCase(convs repository.ConversationRepository, messages repository.MessageRepository, txm repository.TransactionManager) *conversationUC {
	return &conversationUC{convs: convs, messages: messages, txm: txm}
}

func (c *conversationUC) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Conversation " + time.Now().Format("2006-01-02 15:04")
	}
	conv := model.NewConversation(uuid.NewString(), userID, title)
	if err := c.convs.Create(ctx, nil, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (c *conversationUC) List(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return c.convs.ListByUser(ctx, nil, userID, offset, limit)
}

// Messages is owner-scoped: a foreign conversation reads as empty, matching
// the fail-closed behavior of the context builder.
func (c *conversationUC) Messages(ctx context.Context, conversationID, userID string) ([]*model.Message, error) {
	if _, err := c.convs.FindByID(ctx, nil, conversationID, userID); err != nil {
		return []*model.Message{}, nil
	}
	return c.messages.ListByConversation(ctx, nil, conversationID)
}

func (c *conversationUC) AppendMessage(ctx context.Context, conversationID, userID, role, content string, metadata map[string]string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message content", domain.ErrInvalidArgument)
	}
	switch role {
	case model.RoleUser, model.RoleAssistant, model.RoleSystem:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}
	if _, err := c.convs.FindByID(ctx, nil, conversationID, userID); err != nil {
		return nil, err
	}
	msg := &model.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
	// the insert and the conversation timestamp bump land together
	if err := c.appendTx(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (c *conversationUC) appendTx(ctx context.Context, msg *model.Message) error {
	if c.txm == nil {
		return c.messages.Append(ctx, nil, msg)
	}
	return c.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return c.messages.Append(ctx, tx, msg)
	})
}
