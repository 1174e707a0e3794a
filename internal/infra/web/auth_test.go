package web

import (
	"testing"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
)

func TestAuthManagerRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret", time.Hour)
	user := model.NewUser("u1", "malyo", "malyo@example.com", "", "hash")

	tok, err := auth.Mint(user)
	if err != nil {
		t.Fatalf("Mint(): %v", err)
	}
	claims, err := auth.parse(tok)
	if err != nil {
		t.Fatalf("parse(): %v", err)
	}
	if claims.Subject != "u1" || claims.Username != "malyo" {
		t.Errorf("claims = %+v, want subject u1 / username malyo", claims)
	}
}

func TestAuthManagerRejectsExpiredToken(t *testing.T) {
	auth := NewAuthManager("test-secret", time.Nanosecond)
	tok, err := auth.Mint(model.NewUser("u1", "malyo", "m@e.c", "", "hash"))
	if err != nil {
		t.Fatalf("Mint(): %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := auth.parse(tok); err == nil {
		t.Error("expired token accepted")
	}
}

func TestAuthManagerRejectsForeignSignature(t *testing.T) {
	a := NewAuthManager("secret-a", time.Hour)
	b := NewAuthManager("secret-b", time.Hour)
	tok, err := a.Mint(model.NewUser("u1", "malyo", "m@e.c", "", "hash"))
	if err != nil {
		t.Fatalf("Mint(): %v", err)
	}
	if _, err := b.parse(tok); err == nil {
		t.Error("token signed with a foreign secret accepted")
	}
}
