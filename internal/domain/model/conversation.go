package model

import "time"

// Message roles mirror the chat contract of the generation providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a conversation, ordered by creation time.
// IDs are ULIDs so that lexicographic order matches creation order.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Metadata       map[string]string
	CreatedAt      time.Time
}

type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewConversation(id, userID, title string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
