// Package api exposes triage sessions and stored conversations over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
	"mental-triage/internal/storage"
	"mental-triage/internal/triage/analysis"
	"mental-triage/internal/triage/conversation"
)

const (
	maxBodyBytes        = 64 << 10
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type Handler struct {
	registry *conversation.Registry
	store    storage.Store
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(registry *conversation.Registry, store storage.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"component": "api"})
	return &Handler{
		registry: registry,
		store:    store,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type LoadRequest struct {
	ConversationID string `json:"conversation_id"`
}

type SessionResponse struct {
	SessionID string             `json:"session_id"`
	Message   string             `json:"message"`
	State     conversation.State `json:"status"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	*conversation.Reply
}

type HistoryResponse struct {
	Conversations []models.Summary `json:"conversations"`
}

// Start opens a new session and returns the opening message.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	c := h.registry.Create()
	msg := c.Start()
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: c.ID(), Message: msg, State: conversation.StateInProgress})
}

// Chat processes one user message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decode(w, r, &req); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	c, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	reply, err := c.Process(r.Context(), req.Message)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{SessionID: c.ID(), Reply: reply})
}

// End aborts a session and drops it from the registry.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decode(w, r, &req); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	c, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	msg := c.End()
	state := c.Snapshot().State
	h.registry.Remove(c.ID())
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: c.ID(), Message: msg, State: state})
}

// Session returns the live state of a session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// Load opens a stored conversation in a new, inactive session.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := decode(w, r, &req); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	c := h.registry.Create()
	snap, err := c.Load(r.Context(), req.ConversationID)
	if err != nil {
		h.registry.Remove(c.ID())
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// History lists stored conversations newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			h.errors.WriteError(w, r, apperrors.NewInvalidInputError("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	items, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	out := HistoryResponse{Conversations: make([]models.Summary, 0, len(items))}
	for _, md := range items {
		record, err := h.store.Load(r.Context(), md.ConversationID)
		if err != nil {
			h.logger.Warn("history entry could not be loaded", map[string]interface{}{
				"conversationId": md.ConversationID,
				"error":          err.Error(),
			})
			continue
		}
		out.Conversations = append(out.Conversations, record.Summarize())
	}
	writeJSON(w, http.StatusOK, out)
}

// Conversation returns a stored record as persisted.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Report renders the stored analysis as plain text.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	if record.Conversation.Analysis == nil {
		h.errors.WriteError(w, r, apperrors.NewValidationError("analysis", "conversation has no analysis"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(analysis.FormatReport(record.Conversation.Analysis)))
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewInvalidInputError("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
