package gin

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

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
func SessionMiddleware(manager *walletsession.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(walletsession.WithManager(c.Request.Context(), manager))
		c.Next()
	}
}

// RegisterRoutes mounts GET /session, POST /session/connect and
// POST /session/disconnect on router.
func RegisterRoutes(router gin.IRouter, manager *walletsession.Manager, opts ...Options) {
	options := &RoutesOptions{}
	for _, opt := range opts {
		opt(options)
	}

	group := router.Group(options.BasePath, SessionMiddleware(manager))
	group.GET(sessionhttp.SessionPath, statusHandler)
	group.POST(sessionhttp.ConnectPath, connectHandler(options.ConnectTimeout))
	group.POST(sessionhttp.DisconnectPath, disconnectHandler)
}

func statusHandler(c *gin.Context) {
	code, resp := sessionhttp.FromContext(c.Request.Context()).Status()
	c.JSON(code, resp)
}

func connectHandler(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		code, resp := sessionhttp.FromContext(ctx).Connect(ctx)
		if resp.Error != nil {
			c.AbortWithStatusJSON(code, resp)
			return
		}
		c.JSON(code, resp)
	}
}

func disconnectHandler(c *gin.Context) {
	code, resp := sessionhttp.FromContext(c.Request.Context()).Disconnect()
	c.JSON(code, resp)
}
