package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/infra/memstore"
)

func TestConversationCreateDefaultTitle(t *testing.T) {
	repo := memstore.NewConversationRepo()
	uc := NewConversationUseCase(repo, repo, nil)
	ctx := context.Background()

	conv, err := uc.Create(ctx, "u1", "   ")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if conv.Title == "" {
		t.Error("blank title was not defaulted")
	}

	named, err := uc.Create(ctx, "u1", "  Launch plan  ")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if named.Title != "Launch plan" {
		t.Errorf("title = %q, want trimmed %q", named.Title, "Launch plan")
	}
}

func TestAppendMessageValidation(t *testing.T) {
	repo := memstore.NewConversationRepo()
	uc := NewConversationUseCase(repo, repo, nil)
	ctx := context.Background()

	conv, err := uc.Create(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if _, err := uc.AppendMessage(ctx, conv.ID, "u1", "moderator", "hi", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("unknown role error = %v, want ErrInvalidArgument", err)
	}
	if _, err := uc.AppendMessage(ctx, conv.ID, "u1", model.RoleUser, "   ", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("blank content error = %v, want ErrInvalidArgument", err)
	}
	if _, err := uc.AppendMessage(ctx, conv.ID, "intruder", model.RoleUser, "hi", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign append error = %v, want ErrNotFound", err)
	}

	msg, err := uc.AppendMessage(ctx, conv.ID, "u1", model.RoleUser, "hello there", map[string]string{"job_id": "j1"})
	if err != nil {
		t.Fatalf("AppendMessage(): %v", err)
	}
	if msg.ID == "" {
		t.Error("appended message has no id")
	}
	if msg.Metadata["job_id"] != "j1" {
		t.Error("metadata not carried")
	}
}

func TestMessagesOwnerScoped(t *testing.T) {
	repo := memstore.NewConversationRepo()
	uc := NewConversationUseCase(repo, repo, nil)
	ctx := context.Background()

	conv, _ := uc.Create(ctx, "owner", "t")
	for _, content := range []string{"first", "second", "third"} {
		if _, err := uc.AppendMessage(ctx, conv.ID, "owner", model.RoleUser, content, nil); err != nil {
			t.Fatalf("AppendMessage(%q): %v", content, err)
		}
	}

	msgs, err := uc.Messages(ctx, conv.ID, "owner")
	if err != nil {
		t.Fatalf("Messages(): %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want 3", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Error("messages out of append order")
	}

	// a foreign conversation reads as empty, not as an error
	foreign, err := uc.Messages(ctx, conv.ID, "intruder")
	if err != nil {
		t.Fatalf("foreign Messages(): %v", err)
	}
	if len(foreign) != 0 {
		t.Errorf("foreign read returned %d messages, want 0", len(foreign))
	}
}

func TestListConversations(t *testing.T) {
	repo := memstore.NewConversationRepo()
	uc := NewConversationUseCase(repo, repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := uc.Create(ctx, "u1", "t"); err != nil {
			t.Fatalf("Create(): %v", err)
		}
	}
	if _, err := uc.Create(ctx, "u2", "other"); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	convs, err := uc.List(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if len(convs) != 3 {
		t.Errorf("conversation count = %d, want 3", len(convs))
	}
}
