// Package api provides HTTP handlers for the dashboard chat service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/session"
)

// billingMessage replaces upstream errors about exhausted model credits.
const billingMessage = "Insufficient API credits. Please check your LLM provider billing."

const rateLimitedMessage = "You're sending messages too quickly. Please wait a moment and try again."

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionService is the conversation workflow behind the handlers.
type SessionService interface {
	HandleMessage(ctx context.Context, key, text string, claim *domain.UserContext) (session.Reply, error)
	History(key string) []domain.Turn
	State(key string) domain.State
	Reset(key string)
}

// Handler serves the chat endpoints.
type Handler struct {
	sessions       SessionService
	limiter        *RateLimiter
	originPatterns []string
	logger         *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAllowedOrigins lets the chat socket accept cross-origin upgrades from
// the same origins the CORS middleware admits. Without it only same-origin
// upgrades are accepted.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) { h.originPatterns = originPatterns(origins) }
}

// NewHandler creates a Handler. limiter may be nil to disable throttling.
func NewHandler(sessions SessionService, limiter *RateLimiter, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{sessions: sessions, limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/message", h.Message)
	r.Get("/history/{sessionID}", h.History)
	r.Post("/reset/{sessionID}", h.Reset)
	r.Get("/ws/chat", h.ChatSocket)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// MessageRequest is the body of POST /message.
type MessageRequest struct {
	SessionID   string              `json:"session_id"`
	Message     string              `json:"message"`
	UserContext *domain.UserContext `json:"user_context,omitempty"`
}

// MessageResponse is the answer to a chat message.
type MessageResponse struct {
	Reply        string       `json:"reply"`
	State        domain.State `json:"state"`
	DashboardURL string       `json:"dashboard_url,omitempty"`
	SessionID    string       `json:"session_id"`
}

// Message handles POST /message. Every accepted request is answered with
// 200; failures are reported in the reply text.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sessionID, err := resolveSessionID(req.SessionID)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SessionID = sessionID

	JSON(w, http.StatusOK, h.respond(r.Context(), clientKey(r), req))
}

// respond runs one message through the workflow and converts every failure,
// panics included, into an in-band reply. Throttling is keyed by client so
// omitting or rotating session ids does not reset it.
func (h *Handler) respond(ctx context.Context, client string, req MessageRequest) (resp MessageResponse) {
	resp.SessionID = req.SessionID

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while handling message", "session_id", req.SessionID, "panic", rec)
			resp.Reply = errorReply(fmt.Errorf("internal error: %v", rec))
			resp.State = h.sessions.State(req.SessionID)
			resp.DashboardURL = ""
		}
	}()

	if h.limiter != nil && !h.limiter.Allow(client) {
		h.logger.Warn("Rate limit exceeded", "client", client, "session_id", req.SessionID)
		resp.Reply = rateLimitedMessage
		resp.State = h.sessions.State(req.SessionID)
		return resp
	}

	reply, err := h.sessions.HandleMessage(ctx, req.SessionID, req.Message, req.UserContext)
	if errors.Is(err, session.ErrEmptyMessage) {
		resp.Reply = "Please type a message."
		resp.State = h.sessions.State(req.SessionID)
		return resp
	}
	if err != nil {
		h.logger.Error("Unhandled error in message", "session_id", req.SessionID, "error", err)
		resp.Reply = errorReply(err)
		resp.State = h.sessions.State(req.SessionID)
		return resp
	}

	resp.Reply = reply.Reply
	resp.State = reply.State
	resp.DashboardURL = reply.DashboardURL
	return resp
}

func errorReply(err error) string {
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "credit balance") {
		msg = billingMessage
	}
	return "Error: " + msg
}

// resolveSessionID validates id, generating a new one when empty.
func resolveSessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString(), nil
	}
	if !sessionIDPattern.MatchString(id) {
		return "", errors.New("invalid session_id")
	}
	return id, nil
}

// clientKey identifies the caller for throttling. RemoteAddr has already
// been rewritten by chi's RealIP middleware when a proxy header is present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// originPatterns converts configured CORS origins ("https://app.example")
// into the host patterns the websocket library matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}

// History handles GET /history/{sessionID}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !sessionIDPattern.MatchString(sessionID) {
		Error(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	JSON(w, http.StatusOK, map[string][]domain.Turn{"messages": h.sessions.History(sessionID)})
}

// Reset handles POST /reset/{sessionID}.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !sessionIDPattern.MatchString(sessionID) {
		Error(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	h.sessions.Reset(sessionID)
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
