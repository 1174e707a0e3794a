package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.MessageRepository      = (*ConversationRepo)(nil)
)

// ConversationRepo stores conversations and their messages together; the two
// ports are implemented by the same struct the way the Postgres schema keeps
// them in sibling tables.
type ConversationRepo struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	messages map[string][]*model.Message // conversationID -> ordered messages
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{
		convs:    make(map[string]*model.Conversation),
		messages: make(map[string][]*model.Message),
	}
}

func (r *ConversationRepo) Create(ctx context.Context, qx repository.Tx, conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[conv.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *conv
	r.convs[conv.ID] = &cp
	return nil
}

func (r *ConversationRepo) FindByID(ctx context.Context, qx repository.Tx, conversationID, userID string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, offset, limit int) ([]*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UpdatedAt.After(out[k].UpdatedAt) })
	if offset >= len(out) {
		return []*model.Conversation{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ConversationRepo) Touch(ctx context.Context, qx repository.Tx, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *ConversationRepo) Append(ctx context.Context, qx repository.Tx, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[msg.ConversationID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &cp)
	c.UpdatedAt = time.Now()
	return nil
}

func (r *ConversationRepo) ListByConversation(ctx context.Context, qx repository.Tx, conversationID string) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[conversationID]
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
