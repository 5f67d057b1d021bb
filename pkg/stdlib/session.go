package stdlib

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	walletsession "github.com/x402-foundation/walletsession"
	sessionhttp "github.com/x402-foundation/walletsession/http"
)

// HandlerOptions is the options for NewHandler.
type HandlerOptions struct {
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Options is the type for the options for NewHandler.
type Options func(*HandlerOptions)

// WithConnectTimeout bounds how long a connect request waits on the wallet.
func WithConnectTimeout(timeout time.Duration) Options {
	return func(options *HandlerOptions) {
		options.ConnectTimeout = timeout
	}
}

// WithLogger sets the logger for response write failures.
func WithLogger(logger *zap.Logger) Options {
	return func(options *HandlerOptions) {
		if logger != nil {
			options.Logger = logger
		}
	}
}

// SessionMiddleware provisions manager on every request so handlers can
// resolve it with walletsession.FromContext.
func SessionMiddleware(manager *walletsession.Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(walletsession.WithManager(r.Context(), manager)))
	})
}

// NewHandler returns a net/http handler serving GET /session,
// POST /session/connect and POST /session/disconnect.
func NewHandler(manager *walletsession.Manager, opts ...Options) http.Handler {
	options := &HandlerOptions{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+sessionhttp.SessionPath, func(w http.ResponseWriter, r *http.Request) {
		code, resp := sessionhttp.FromContext(r.Context()).Status()
		writeJSON(w, logger, code, resp)
	})
	mux.HandleFunc("POST "+sessionhttp.ConnectPath, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if options.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, options.ConnectTimeout)
			defer cancel()
		}
		code, resp := sessionhttp.FromContext(ctx).Connect(ctx)
		writeJSON(w, logger, code, resp)
	})
	mux.HandleFunc("POST "+sessionhttp.DisconnectPath, func(w http.ResponseWriter, r *http.Request) {
		code, resp := sessionhttp.FromContext(r.Context()).Disconnect()
		writeJSON(w, logger, code, resp)
	})
	return SessionMiddleware(manager, mux)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, resp sessionhttp.SessionResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("failed to write session response", zap.Int("status", code), zap.Error(err))
	}
}
