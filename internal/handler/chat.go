package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskwise-ai/assistant-platform/internal/auth"
	"github.com/taskwise-ai/assistant-platform/internal/chat"
	"github.com/taskwise-ai/assistant-platform/internal/middleware"
	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/store"
	"github.com/taskwise-ai/assistant-platform/pkg/logger"
)

// ChatHandler handles the chat turn and conversation listing endpoints.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	convs        *store.ConversationStore
	gate         *auth.Gate
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(orch *chat.Orchestrator, convs *store.ConversationStore, gate *auth.Gate, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orch,
		convs:        convs,
		gate:         gate,
		logger:       log,
	}
}

// resolveOwner authorizes the path-level owner token against the
// authenticated caller and returns the canonical owner ID.
func (h *ChatHandler) resolveOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.GetUserID(r.Context())
	email := middleware.GetUserEmail(r.Context())
	ownerToken := chi.URLParam(r, "owner")

	ownerID, err := h.gate.ResolveOwner(userID, email, ownerToken)
	if err != nil {
		writeError(w, http.StatusForbidden, codeForbidden, "not authorized to access this user's conversations")
		return 0, false
	}

	return ownerID, true
}

// Turn handles POST /api/v1/users/{owner}/chat
func (h *ChatHandler) Turn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req model.ChatRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "message is required and may not exceed 5000 characters")
		return
	}

	var conversationID *int64
	if req.ConversationID != "" {
		id, err := strconv.ParseInt(req.ConversationID, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid conversation ID format")
			return
		}
		conversationID = &id
	}

	resp, err := h.orchestrator.Turn(r.Context(), ownerID, conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, codeNotFound, "conversation not found")
		default:
			h.logger.Error("chat turn failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to process chat turn")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListConversations handles GET /api/v1/users/{owner}/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	convs, err := h.convs.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

// ListMessages handles GET /api/v1/users/{owner}/conversations/{id}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	conversationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid conversation ID format")
		return
	}

	// Ownership check before reading the transcript.
	if _, err := h.convs.Get(r.Context(), ownerID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to load conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load conversation")
		return
	}

	messages, err := h.convs.History(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}
