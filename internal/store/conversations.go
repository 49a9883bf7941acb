package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskwise-ai/assistant-platform/internal/model"
)

// ConversationStore persists conversations and their ordered messages.
type ConversationStore struct {
	db *sqlx.DB
}

// NewConversationStore creates a new conversation store.
func NewConversationStore(db *sqlx.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create inserts a new conversation owned by ownerID.
func (s *ConversationStore) Create(ctx context.Context, ownerID int64, title string) (*model.Conversation, error) {
	const query = `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at`

	var conv model.Conversation
	err := s.db.GetContext(ctx, &conv, query, ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return &conv, nil
}

// Get looks up a conversation scoped to its owner. A conversation owned by
// another user is reported as ErrNotFound, not as a distinct error.
func (s *ConversationStore) Get(ctx context.Context, ownerID, conversationID int64) (*model.Conversation, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`

	var conv model.Conversation
	err := s.db.GetContext(ctx, &conv, query, conversationID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// GetOrCreate returns the identified conversation after verifying ownership,
// or creates a fresh one with the default title when conversationID is nil.
func (s *ConversationStore) GetOrCreate(ctx context.Context, ownerID int64, conversationID *int64) (*model.Conversation, error) {
	if conversationID != nil {
		return s.Get(ctx, ownerID, *conversationID)
	}
	return s.Create(ctx, ownerID, model.DefaultConversationTitle)
}

// ListByOwner returns the owner's conversations, most recently updated first.
func (s *ConversationStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Conversation, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC`

	convs := []model.Conversation{}
	err := s.db.SelectContext(ctx, &convs, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return convs, nil
}

// AppendMessage inserts a message and bumps the conversation's updated_at in
// one transaction. Messages are append-only.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID, ownerID int64, role model.Role, content string) (*model.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO messages (conversation_id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, user_id, role, content, created_at`

	var msg model.Message
	if err := tx.GetContext(ctx, &msg, insert, conversationID, ownerID, role, content); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	const bump = `UPDATE conversations SET updated_at = now() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, conversationID); err != nil {
		return nil, fmt.Errorf("bump conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append message: %w", err)
	}

	return &msg, nil
}

// History returns the full ordered transcript of a conversation. Ordering is
// by creation time with insertion sequence breaking ties.
func (s *ConversationStore) History(ctx context.Context, conversationID int64) ([]model.Message, error) {
	const query = `
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id`

	msgs := []model.Message{}
	err := s.db.SelectContext(ctx, &msgs, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return msgs, nil
}
