// Package crew implements the generation capability behind job execution:
// a two-stage research/writing pipeline over an LLM provider.
package crew

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CrewAdapter = (*OpenAICrew)(nil)

const (
	researcherPrompt = `You are a senior research analyst. Research the topic below and produce a
research report with: key concepts and definitions, current trends, pros and
cons, real-world examples, and a future outlook. Keep it factual and cite
sources where you can.`

	writerPrompt = `You are an experienced content writer. Using the research report provided,
write an engaging, well-structured article in markdown: a compelling headline,
an introduction, clear sections covering the main points, practical insights,
and a conclusion with key takeaways. Target 500-800 words.`
)

// OpenAICrew runs the researcher stage and then the writer stage against the
// OpenAI Chat Completions API, feeding the research report into the writer as
// context. Conversation history is prepended to the researcher call after
// being trimmed to the token budget.
type OpenAICrew struct {
	client      openai.Client
	model       string
	tokenBudget int
}

func NewOpenAICrew(apiKey, model string, tokenBudget int) (*OpenAICrew, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if tokenBudget <= 0 {
		tokenBudget = 8000
	}
	return &OpenAICrew{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		tokenBudget: tokenBudget,
	}, nil
}

func (c *OpenAICrew) Describe() adapter.CrewInfo {
	return adapter.CrewInfo{
		Provider: "openai",
		Model:    c.model,
		Stages:   []string{"research", "write"},
	}
}

func (c *OpenAICrew) Generate(ctx context.Context, input adapter.CrewInput, history []adapter.Message) (*adapter.CrewResult, error) {
	task := "Topic: " + input.Topic
	if input.Platform != "" {
		task += "\nTarget platform: " + input.Platform
	}
	if input.AdditionalContext != "" {
		task += "\nAdditional requirements: " + input.AdditionalContext
	}

	report, err := c.chat(ctx, researcherPrompt, c.trimHistory(history), task)
	if err != nil {
		return nil, fmt.Errorf("research stage: %w", err)
	}

	article, err := c.chat(ctx, writerPrompt, nil, task+"\n\nResearch report:\n"+report)
	if err != nil {
		return nil, fmt.Errorf("writing stage: %w", err)
	}
	return &adapter.CrewResult{Text: article}, nil
}

// CurateImages asks the model for short image search queries and maps them to
// stock photo references.
func (c *OpenAICrew) CurateImages(ctx context.Context, input adapter.CrewInput) ([]model.MediaRef, error) {
	task := fmt.Sprintf("Suggest 3 short stock-photo search queries (comma separated, no extra text) to illustrate a %s post about: %s", input.Platform, input.Topic)
	reply, err := c.chat(ctx, "You pick image search queries for social media posts.", nil, task)
	if err != nil {
		return nil, err
	}
	var refs []model.MediaRef
	for _, q := range strings.Split(reply, ",") {
		q = strings.TrimSpace(strings.Trim(q, `"`))
		if q == "" {
			continue
		}
		refs = append(refs, model.MediaRef{
			URL:     "https://source.unsplash.com/featured/?" + url.QueryEscape(q),
			Caption: q,
			Source:  "unsplash",
		})
		if len(refs) == 3 {
			break
		}
	}
	if len(refs) == 0 {
		return nil, errors.New("no image queries returned")
	}
	return refs, nil
}

func (c *OpenAICrew) chat(ctx context.Context, system string, history []adapter.Message, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(user))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

// trimHistory drops the oldest messages until the window fits the prompt
// token budget. Best-effort counting; an unknown model falls back to the
// cl100k encoding.
func (c *OpenAICrew) trimHistory(history []adapter.Message) []adapter.Message {
	if len(history) == 0 {
		return history
	}
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return history
		}
	}
	for len(history) > 0 {
		total := 0
		for _, m := range history {
			total += len(enc.Encode(m.Content, nil, nil))
		}
		if total <= c.tokenBudget {
			break
		}
		history = history[1:]
	}
	return history
}
