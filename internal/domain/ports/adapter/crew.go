package adapter

import (
	"context"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
)

// Message is one context entry handed to the generation capability.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// CrewInput is the structured input of a generation run.
type CrewInput struct {
	Topic             string
	Platform          string
	AdditionalContext string
}

// CrewResult is what a generation run produced. Text is always set on
// success; Images is populated by capabilities that can curate media.
type CrewResult struct {
	Text   string
	Images []model.MediaRef
}

// CrewInfo describes the configured capability, for the status endpoint.
type CrewInfo struct {
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Stages   []string `json:"stages"`
}

// CrewAdapter is the port for the opaque generation capability. Generate is
// expected to be slow (seconds to minutes); callers bound it with a context
// deadline. CurateImages backs the independent image sub-task and may return
// domain.ErrNotSupported.
type CrewAdapter interface {
	Generate(ctx context.Context, input CrewInput, history []Message) (*CrewResult, error)
	CurateImages(ctx context.Context, input CrewInput) ([]model.MediaRef, error)
	Describe() CrewInfo
}
