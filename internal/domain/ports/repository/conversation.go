package repository

import (
	"context"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
)

type ConversationRepository interface {
	Create(ctx context.Context, qx Tx, conv *model.Conversation) error
	// FindByID is owner-scoped like JobRepository.FindByID.
	FindByID(ctx context.Context, qx Tx, conversationID, userID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, qx Tx, userID string, offset, limit int) ([]*model.Conversation, error)
	Touch(ctx context.Context, qx Tx, conversationID string) error
}

type MessageRepository interface {
	// Append stores a message and bumps the conversation's updated_at.
	Append(ctx context.Context, qx Tx, msg *model.Message) error
	// ListByConversation returns messages in chronological order.
	ListByConversation(ctx context.Context, qx Tx, conversationID string) ([]*model.Message, error)
}
