// Package chat implements the tool-calling chat turn orchestration.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/taskwise-ai/assistant-platform/internal/llm"
	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/tool"
	"github.com/taskwise-ai/assistant-platform/pkg/logger"
	"github.com/taskwise-ai/assistant-platform/pkg/metrics"
)

// ErrInvalidInput indicates a malformed chat request (empty or oversized
// message, unparseable conversation ID).
var ErrInvalidInput = errors.New("invalid input")

const systemPrompt = `You are a helpful Todo task management assistant. You help users manage their tasks/todos.
You can add, list, complete, delete, and update tasks.
Be friendly and concise in your responses. When a user asks to add a task, extract the task title from their message.
Always confirm actions you take. If listing tasks, format them nicely.`

// fallbackReply is persisted as the assistant message when a completion
// call fails, keeping the transcript consistent without leaking the error.
const fallbackReply = "I'm sorry, I encountered an error processing your request. Please try again."

// ConversationStore is the persistence contract the orchestrator needs.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, ownerID int64, conversationID *int64) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, ownerID int64, role model.Role, content string) (*model.Message, error)
	History(ctx context.Context, conversationID int64) ([]model.Message, error)
}

// ToolInvoker exposes the tool catalog and validated dispatch.
type ToolInvoker interface {
	Schemas() []llm.ToolSchema
	Invoke(ctx context.Context, name, rawArgs string, callerID int64) tool.Result
}

// EventPublisher receives turn outcome events. Publishing is best effort and
// never fails a turn.
type EventPublisher interface {
	PublishTurnEvent(ctx context.Context, event *model.TurnEvent) error
}

// Orchestrator runs chat turns: it assembles the model-visible transcript,
// executes requested tool calls with the authenticated caller identity, and
// persists the exchange. It holds no global mutable state beyond the
// per-conversation lock table.
type Orchestrator struct {
	convs    ConversationStore
	registry ToolInvoker
	client   llm.Client
	events   EventPublisher
	logger   *logger.Logger

	modelName string
	timeout   time.Duration

	// Serializes turns per conversation so concurrent writes cannot
	// interleave user/assistant pairs. Entries are retained for the life of
	// the process; conversation cardinality is modest.
	locks sync.Map
}

// NewOrchestrator creates a chat orchestrator. events may be nil.
func NewOrchestrator(
	convs ConversationStore,
	registry ToolInvoker,
	client llm.Client,
	events EventPublisher,
	log *logger.Logger,
	modelName string,
	timeout time.Duration,
) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		convs:     convs,
		registry:  registry,
		client:    client,
		events:    events,
		logger:    log,
		modelName: modelName,
		timeout:   timeout,
	}
}

func (o *Orchestrator) lockConversation(id int64) func() {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Turn executes one chat turn for the resolved owner. conversationID is nil
// to start a new conversation. Ownership of an existing conversation has
// been verified by the store lookup; identity resolution happens upstream.
//
// Once the user message is persisted the turn always produces an assistant
// reply: completion and tool failures degrade to a fallback message rather
// than surfacing as errors.
func (o *Orchestrator) Turn(ctx context.Context, ownerID int64, conversationID *int64, message string) (*model.ChatResponse, error) {
	start := time.Now()

	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > model.MessageContentMaxLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, model.MessageContentMaxLen)
	}

	conv, err := o.convs.GetOrCreate(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	if conversationID == nil {
		metrics.ConversationsTotal.Inc()
	}

	log := o.logger.WithConversation(conv.ID, ownerID)

	unlock := o.lockConversation(conv.ID)
	defer unlock()

	history, err := o.convs.History(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// Persist the user message before calling the model so a crash past this
	// point cannot lose the user's input.
	if _, err := o.convs.AppendMessage(ctx, conv.ID, ownerID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	transcript := make([]llm.ChatMessage, 0, len(history)+2)
	transcript = append(transcript, llm.ChatMessage{Role: string(model.RoleSystem), Content: systemPrompt})
	for _, msg := range history {
		transcript = append(transcript, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	transcript = append(transcript, llm.ChatMessage{Role: string(model.RoleUser), Content: message})

	reply, toolCalls, degraded := o.complete(ctx, log, ownerID, transcript)

	// The cap counts characters, not bytes; slicing at a byte offset could
	// split a multibyte rune and produce invalid UTF-8.
	persisted := reply
	if utf8.RuneCountInString(persisted) > model.MessageContentMaxLen {
		persisted = string([]rune(persisted)[:model.MessageContentMaxLen])
	}
	if _, err := o.convs.AppendMessage(ctx, conv.ID, ownerID, model.RoleAssistant, persisted); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	outcome := "ok"
	eventType := model.EventTypeTurnCompleted
	if degraded {
		outcome = "degraded"
		eventType = model.EventTypeTurnDegraded
	}
	metrics.RecordChatTurn(outcome, time.Since(start).Seconds())
	o.publishTurnEvent(ctx, conv.ID, ownerID, eventType, toolCalls, time.Since(start))

	log.Info("chat turn completed",
		zap.String("outcome", outcome),
		zap.Int("tool_calls", len(toolCalls)),
		zap.Duration("duration", time.Since(start)),
	)

	return &model.ChatResponse{
		ConversationID: fmt.Sprintf("%d", conv.ID),
		Response:       reply,
		ToolCalls:      toolCalls,
	}, nil
}

// complete runs the completion phase of a turn: first completion with tools
// offered, tool execution in model order, and a second completion for the
// final reply. Failures degrade to the fallback reply.
func (o *Orchestrator) complete(ctx context.Context, log *logger.Logger, ownerID int64, transcript []llm.ChatMessage) (reply string, records []model.ToolCallRecord, degraded bool) {
	records = []model.ToolCallRecord{}

	first, err := o.callModel(ctx, &llm.CompletionRequest{
		Model:    o.modelName,
		Messages: transcript,
		Tools:    o.registry.Schemas(),
	})
	if err != nil {
		log.Error("first completion failed", zap.Error(err))
		return fallbackReply, records, true
	}

	if len(first.ToolCalls) == 0 {
		if first.Content == "" {
			log.Warn("model returned empty reply")
			return fallbackReply, records, true
		}
		return first.Content, records, false
	}

	// The assistant's tool-call request and each result go back into the
	// transcript for the second completion.
	transcript = append(transcript, llm.ChatMessage{
		Role:      string(model.RoleAssistant),
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})

	for _, call := range first.ToolCalls {
		result := o.registry.Invoke(ctx, call.Name, call.Arguments, ownerID)

		args := map[string]any{}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		records = append(records, model.ToolCallRecord{Name: call.Name, Arguments: args})

		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(`{"error":"unserializable tool result","status":"failed"}`)
		}

		log.Debug("tool call executed",
			zap.String("tool", call.Name),
			zap.Bool("failed", result.Failed()),
		)

		transcript = append(transcript, llm.ChatMessage{
			Role:       string(model.RoleTool),
			Content:    string(payload),
			ToolCallID: call.ID,
		})
	}

	// No tools offered on the second call: the model produces the final
	// natural-language reply.
	second, err := o.callModel(ctx, &llm.CompletionRequest{
		Model:    o.modelName,
		Messages: transcript,
	})
	if err != nil {
		log.Error("second completion failed", zap.Error(err))
		return fallbackReply, records, true
	}
	if second.Content == "" {
		log.Warn("model returned empty final reply")
		return fallbackReply, records, true
	}

	return second.Content, records, false
}

func (o *Orchestrator) callModel(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.Complete(callCtx, req)
	if err != nil {
		metrics.RecordCompletion(req.Model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	metrics.RecordCompletion(resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func (o *Orchestrator) publishTurnEvent(ctx context.Context, conversationID, ownerID int64, eventType model.EventType, records []model.ToolCallRecord, duration time.Duration) {
	if o.events == nil {
		return
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}

	event := &model.TurnEvent{
		ConversationID: conversationID,
		UserID:         ownerID,
		Type:           eventType,
		ToolCalls:      names,
		DurationMs:     duration.Milliseconds(),
		CreatedAt:      time.Now(),
	}

	if err := o.events.PublishTurnEvent(ctx, event); err != nil {
		o.logger.Warn("failed to publish turn event", zap.Error(err))
	}
}
