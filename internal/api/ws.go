package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/ashureev/dashgenie/internal/domain"
)

// wsRequest is one client frame on the chat socket.
type wsRequest struct {
	Type        string              `json:"type"` // "message" (default) or "ping"
	SessionID   string              `json:"session_id"`
	Message     string              `json:"message"`
	UserContext *domain.UserContext `json:"user_context,omitempty"`
}

type wsResponse struct {
	Type string `json:"type"`
	*MessageResponse
	Error string `json:"error,omitempty"`
}

// ChatSocket serves the message contract over a WebSocket: one JSON reply
// per JSON request. Frames without a session id use one generated for the
// connection.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	client := clientKey(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "conn_id", connID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "conn_id", connID)
		}
	}()

	ctx := r.Context()
	h.logger.Info("Chat socket connected", "conn_id", connID, "ip", r.RemoteAddr)

	for {
		var req wsRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if isClosed(err) || ctx.Err() != nil {
				h.logger.Info("Chat socket disconnected", "conn_id", connID)
			} else {
				h.logger.Debug("Chat socket read failed", "conn_id", connID, "error", err)
			}
			return
		}

		resp := h.handleFrame(ctx, connID, client, req)
		if err := wsjson.Write(ctx, ws, resp); err != nil {
			h.logger.Debug("Chat socket write failed", "conn_id", connID, "error", err)
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, connID, client string, req wsRequest) wsResponse {
	switch strings.ToLower(req.Type) {
	case "ping":
		return wsResponse{Type: "pong"}
	case "", "message":
	default:
		return wsResponse{Type: "error", Error: "unknown frame type " + req.Type}
	}

	if req.SessionID == "" {
		req.SessionID = connID
	}
	sessionID, err := resolveSessionID(req.SessionID)
	if err != nil {
		return wsResponse{Type: "error", Error: err.Error()}
	}

	resp := h.respond(ctx, client, MessageRequest{
		SessionID:   sessionID,
		Message:     req.Message,
		UserContext: req.UserContext,
	})
	return wsResponse{Type: "reply", MessageResponse: &resp}
}

func isClosed(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure ||
		status == websocket.StatusGoingAway ||
		errors.Is(err, context.Canceled)
}
