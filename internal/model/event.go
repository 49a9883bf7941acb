package model

import (
	"time"
)

// EventType represents the type of platform event.
type EventType string

const (
	EventTypeTurnCompleted EventType = "turn_completed"
	EventTypeTurnDegraded  EventType = "turn_degraded"
	EventTypeTaskMutated   EventType = "task_mutated"
)

// TurnEvent records the outcome of one chat turn for downstream consumers.
type TurnEvent struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	Type           EventType `json:"type"`
	ToolCalls      []string  `json:"tool_calls,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskEvent records a task mutation performed outside the chat flow.
type TaskEvent struct {
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Operation string    `json:"operation"`
	CreatedAt time.Time `json:"created_at"`
}
