package handler

import (
	"net/http"

	"github.com/taskwise-ai/assistant-platform/internal/tool"
)

// ToolsHandler exposes the tool catalog.
type ToolsHandler struct {
	registry *tool.Registry
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(registry *tool.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// List handles GET /api/v1/tools, returning the static tool declarations as
// offered to the language model.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": h.registry.Schemas(),
	})
}
