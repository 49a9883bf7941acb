package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/taskwise-ai/assistant-platform/internal/model"
)

const (
	// StreamName is the name of the platform events stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "events"
)

// Publisher writes platform events to JetStream for downstream consumers
// (audit, analytics). The relational store remains the source of truth;
// publishing is fire-and-forget from the caller's point of view.
type Publisher struct {
	client *Client
}

// NewPublisher creates an event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat turn and task mutation events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a chat turn event.
func TurnSubject(userID, conversationID int64) string {
	return fmt.Sprintf("%s.chat.%d.%d", SubjectPrefix, userID, conversationID)
}

// TaskSubject returns the subject for a task mutation event.
func TaskSubject(userID int64, operation string) string {
	return fmt.Sprintf("%s.tasks.%d.%s", SubjectPrefix, userID, operation)
}

// PublishTurnEvent publishes a chat turn outcome event.
func (p *Publisher) PublishTurnEvent(ctx context.Context, event *model.TurnEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	subject := TurnSubject(event.UserID, event.ConversationID)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}

	return nil
}

// PublishTaskEvent publishes a task mutation event.
func (p *Publisher) PublishTaskEvent(ctx context.Context, event *model.TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}

	subject := TaskSubject(event.UserID, event.Operation)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish task event: %w", err)
	}

	return nil
}
