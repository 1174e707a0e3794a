package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// ContextBuilder derives the bounded conversation window handed to a
// generation run. The window is recomputed on every call; conversation
// content may change between a job's submission and its execution, so
// caching here would feed stale context.
type ContextBuilder struct {
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	window   int // most recent messages kept
	budget   int // runes kept per message
	log      *zerolog.Logger
}

func NewContextBuilder(convs repository.ConversationRepository, messages repository.MessageRepository, window, budget int, log *zerolog.Logger) *ContextBuilder {
	if window <= 0 {
		window = 8
	}
	if budget <= 0 {
		budget = 500
	}
	return &ContextBuilder{convs: convs, messages: messages, window: window, budget: budget, log: log}
}

// Build returns the last N messages of the conversation in chronological
// order, each truncated to the character budget. Context is an enhancement,
// not a requirement: an unknown or foreign conversation yields an empty
// window rather than an error.
func (b *ContextBuilder) Build(ctx context.Context, conversationID, userID string) []adapter.Message {
	if conversationID == "" {
		return nil
	}
	if _, err := b.convs.FindByID(ctx, nil, conversationID, userID); err != nil {
		b.log.Debug().Err(err).Str("conversation_id", conversationID).Msg("context skipped")
		return nil
	}
	msgs, err := b.messages.ListByConversation(ctx, nil, conversationID)
	if err != nil {
		b.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("context fetch failed")
		return nil
	}
	if len(msgs) > b.window {
		msgs = msgs[len(msgs)-b.window:]
	}
	out := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, adapter.Message{Role: m.Role, Content: truncateRunes(m.Content, b.budget)})
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
