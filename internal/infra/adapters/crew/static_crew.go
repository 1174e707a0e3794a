package crew

import (
	"context"
	"fmt"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
)

var _ adapter.CrewAdapter = (*StaticCrew)(nil)

// StaticCrew produces deterministic output without any provider call.
// Used in dev mode and by tests.
type StaticCrew struct {
	// Err, when set, is returned by Generate to exercise failure paths.
	Err error
}

func NewStaticCrew() *StaticCrew { return &StaticCrew{} }

func (s *StaticCrew) Describe() adapter.CrewInfo {
	return adapter.CrewInfo{Provider: "static", Model: "none", Stages: []string{"echo"}}
}

func (s *StaticCrew) Generate(ctx context.Context, input adapter.CrewInput, history []adapter.Message) (*adapter.CrewResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("# %s\n\nArticle about %s.", input.Topic, input.Topic)
	if len(history) > 0 {
		text += fmt.Sprintf("\n\n(Written with %d prior messages of context.)", len(history))
	}
	return &adapter.CrewResult{Text: text}, nil
}

func (s *StaticCrew) CurateImages(ctx context.Context, input adapter.CrewInput) ([]model.MediaRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []model.MediaRef{{
		URL:     "https://example.com/media/" + input.Platform,
		Caption: input.Topic,
		Source:  "static",
	}}, nil
}
