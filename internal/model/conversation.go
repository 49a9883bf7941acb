package model

import (
	"time"
)

// DefaultConversationTitle is assigned when a conversation is created
// lazily on the first chat turn.
const DefaultConversationTitle = "New Conversation"

// Conversation represents a conversation thread owned by a single user.
type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatRequest is the request for one chat turn.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message" validate:"required,max=5000"`
}

// ToolCallRecord reports one tool call executed during a turn.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResponse is the result of one chat turn.
type ChatResponse struct {
	ConversationID string           `json:"conversation_id"`
	Response       string           `json:"response"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
}
