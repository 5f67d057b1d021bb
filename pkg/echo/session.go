package echo

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	walletsession "github.com/x402-foundation/walletsession"
	sessionhttp "github.com/x402-foundation/walletsession/http"
)

// RoutesOptions is the options for RegisterRoutes.
type RoutesOptions struct {
	BasePath       string
	ConnectTimeout time.Duration
}

// Options is the type for the options for RegisterRoutes.
type Options func(*RoutesOptions)

// WithBasePath mounts the session routes below path.
func WithBasePath(path string) Options {
	return func(options *RoutesOptions) {
		options.BasePath = path
	}
}

// WithConnectTimeout bounds how long a connect request waits on the wallet.
func WithConnectTimeout(timeout time.Duration) Options {
	return func(options *RoutesOptions) {
		options.ConnectTimeout = timeout
	}
}

// SessionMiddleware provisions manager on every request so handlers can
// resolve it with walletsession.FromContext.
func SessionMiddleware(manager *walletsession.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(walletsession.WithManager(req.Context(), manager)))
			return next(c)
		}
	}
}

// RegisterRoutes mounts GET /session, POST /session/connect and
// POST /session/disconnect on e.
func RegisterRoutes(e *echo.Echo, manager *walletsession.Manager, opts ...Options) {
	options := &RoutesOptions{}
	for _, opt := range opts {
		opt(options)
	}

	group := e.Group(options.BasePath, SessionMiddleware(manager))
	group.GET(sessionhttp.SessionPath, statusHandler)
	group.POST(sessionhttp.ConnectPath, connectHandler(options.ConnectTimeout))
	group.POST(sessionhttp.DisconnectPath, disconnectHandler)
}

func statusHandler(c echo.Context) error {
	code, resp := sessionhttp.FromContext(c.Request().Context()).Status()
	return c.JSON(code, resp)
}

func connectHandler(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		code, resp := sessionhttp.FromContext(ctx).Connect(ctx)
		return c.JSON(code, resp)
	}
}

func disconnectHandler(c echo.Context) error {
	code, resp := sessionhttp.FromContext(c.Request().Context()).Disconnect()
	return c.JSON(code, resp)
}
