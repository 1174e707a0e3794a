package crew

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
)

var _ adapter.CrewAdapter = (*GeminiCrew)(nil)

// GeminiCrew is the single-pass variant over the Gemini API: research and
// writing are folded into one instructed call.
type GeminiCrew struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiCrew(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiCrew, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxOut <= 0 {
		maxOut = 4096
	}
	return &GeminiCrew{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiCrew) Describe() adapter.CrewInfo {
	return adapter.CrewInfo{
		Provider: "gemini",
		Model:    g.model,
		Stages:   []string{"research+write"},
	}
}

func (g *GeminiCrew) Generate(ctx context.Context, input adapter.CrewInput, history []adapter.Message) (*adapter.CrewResult, error) {
	task := researcherPrompt + "\n\nThen, acting as a content writer, " +
		"turn that research into a well-structured 500-800 word markdown article.\n\nTopic: " + input.Topic
	if input.Platform != "" {
		task += "\nTarget platform: " + input.Platform
	}
	if input.AdditionalContext != "" {
		task += "\nAdditional requirements: " + input.AdditionalContext
	}

	chat, err := g.client.Chats.Create(ctx, g.model,
		&genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxOut)},
		toGenAIHistory(history))
	if err != nil {
		return nil, err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: task})
	if err != nil {
		return nil, err
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	return &adapter.CrewResult{Text: text}, nil
}

func (g *GeminiCrew) CurateImages(ctx context.Context, input adapter.CrewInput) ([]model.MediaRef, error) {
	return nil, fmt.Errorf("gemini crew images: %w", domain.ErrNotSupported)
}

// Gemini distinguishes only "user" and "model" roles; system and user
// context both map to user turns.
func toGenAIHistory(history []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
