// Package http exposes a wallet session over request/response transports.
// SessionHandler is framework-neutral; pkg/gin, pkg/echo and pkg/stdlib mount
// it on their routers.
package http

import (
	"context"
	"errors"
	"net/http"

	walletsession "github.com/x402-foundation/walletsession"
)

// Route paths shared by every router adapter
const (
	SessionPath    = "/session"
	ConnectPath    = "/session/connect"
	DisconnectPath = "/session/disconnect"
)

// ============================================================================
// Response types
// ============================================================================

// ErrorBody describes a failed session operation
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionResponse is the body of every session endpoint
type SessionResponse struct {
	State   walletsession.State      `json:"state"`
	Session walletsession.Session    `json:"session"`
	Status  walletsession.StatusView `json:"status"`
	Error   *ErrorBody               `json:"error,omitempty"`
}

// ============================================================================
// SessionHandler
// ============================================================================

// SessionHandler maps session operations to HTTP status codes and bodies
type SessionHandler struct {
	manager *walletsession.Manager
}

// NewSessionHandler creates a handler bound to manager
func NewSessionHandler(manager *walletsession.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// FromContext creates a handler for the manager provisioned in ctx.
// It panics when ctx carries no manager.
func FromContext(ctx context.Context) *SessionHandler {
	return NewSessionHandler(walletsession.FromContext(ctx))
}

// Status returns the current session
func (h *SessionHandler) Status() (int, SessionResponse) {
	return http.StatusOK, h.respond(nil)
}

// Connect asks the provider for account access. The balance is fetched in the
// background, so the response may carry an account without one.
func (h *SessionHandler) Connect(ctx context.Context) (int, SessionResponse) {
	if err := h.manager.Connect(ctx); err != nil {
		return StatusForError(err), h.respond(err)
	}
	return http.StatusOK, h.respond(nil)
}

// Disconnect clears the session
func (h *SessionHandler) Disconnect() (int, SessionResponse) {
	h.manager.Disconnect()
	return http.StatusOK, h.respond(nil)
}

func (h *SessionHandler) respond(err error) SessionResponse {
	session := h.manager.Session()
	resp := SessionResponse{
		State:   session.State(),
		Session: session,
		Status:  walletsession.Describe(session),
	}
	if err != nil {
		resp.Error = errorBody(err)
	}
	return resp
}

// StatusForError maps a session error to an HTTP status code
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, walletsession.ErrNoProviderFound):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case walletsession.IsUserRejected(err):
		return http.StatusForbidden
	case errors.Is(err, walletsession.ErrConnectionRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) *ErrorBody {
	var sessionErr *walletsession.SessionError
	if errors.As(err, &sessionErr) {
		return &ErrorBody{Code: sessionErr.Code, Message: sessionErr.Error()}
	}
	return &ErrorBody{Code: "internal_error", Message: err.Error()}
}
