package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	walletsession "github.com/x402-foundation/walletsession"
	"github.com/x402-foundation/walletsession/mcp"
	sessionecho "github.com/x402-foundation/walletsession/pkg/echo"
	"github.com/x402-foundation/walletsession/pkg/config"
	sessiongin "github.com/x402-foundation/walletsession/pkg/gin"
	sessionstdlib "github.com/x402-foundation/walletsession/pkg/stdlib"
	"github.com/x402-foundation/walletsession/providers/evm"
	"github.com/x402-foundation/walletsession/providers/svm"
)

// newLogger builds the daemon logger from cfg
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.GetLogLevel())
	return zapConfig.Build()
}

// buildEnvironment creates the configured key-backed wallets. The returned
// function closes their RPC clients.
func buildEnvironment(ctx context.Context, cfg *config.Config, logger *zap.Logger) (walletsession.StaticEnvironment, func(), error) {
	var env walletsession.StaticEnvironment
	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	if cfg.EVM.Enabled() {
		p, err := evm.Dial(ctx, cfg.EVM.RPCURL, cfg.EVM.PrivateKeys,
			evm.WithApproval(func(ctx context.Context, accounts []string) error {
				logger.Info("approving EVM account request", zap.Strings("accounts", accounts))
				return nil
			}))
		if err != nil {
			return env, func() {}, fmt.Errorf("evm wallet: %w", err)
		}
		closers = append(closers, p.Close)
		env.EVM = p
		logger.Info("EVM wallet ready", zap.String("rpc", cfg.EVM.RPCURL), zap.Strings("accounts", p.Accounts()))
	}

	if cfg.SVM.Enabled() {
		p, err := svm.New(cfg.SVM.RPCURL, cfg.SVM.PrivateKeys,
			svm.WithCommitment(rpc.CommitmentType(cfg.SVM.GetCommitment())),
			svm.WithApproval(func(ctx context.Context, account solana.PublicKey) error {
				logger.Info("approving Solana account request", zap.Stringer("account", account))
				return nil
			}))
		if err != nil {
			closeAll()
			return env, func() {}, fmt.Errorf("svm wallet: %w", err)
		}
		closers = append(closers, func() { p.Close() })
		env.SVM = p
		logger.Info("Solana wallet ready", zap.String("rpc", cfg.SVM.RPCURL), zap.Int("accounts", len(p.PublicKeys())))
	}

	return env, closeAll, nil
}

// newHandler mounts the session routes on the configured router and the MCP
// SSE endpoint next to them
func newHandler(cfg *config.Config, manager *walletsession.Manager, logger *zap.Logger) http.Handler {
	var sse http.Handler
	mcpPath := cfg.GetMCPPath()
	if mcpPath != "" {
		sse = mcp.NewSSEHandler(mcp.NewServer(manager))
	}
	connectTimeout := cfg.GetConnectTimeout()

	switch cfg.GetRouter() {
	case config.RouterEcho:
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		sessionecho.RegisterRoutes(e, manager, sessionecho.WithConnectTimeout(connectTimeout))
		if sse != nil {
			e.Any(mcpPath, echo.WrapHandler(sse))
		}
		return e

	case config.RouterStdlib:
		mux := http.NewServeMux()
		mux.Handle("/", sessionstdlib.NewHandler(manager,
			sessionstdlib.WithConnectTimeout(connectTimeout),
			sessionstdlib.WithLogger(logger)))
		if sse != nil {
			mux.Handle(mcpPath, sse)
		}
		return mux

	default:
		if !cfg.Development {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery(), requestLogger(logger))
		sessiongin.RegisterRoutes(router, manager, sessiongin.WithConnectTimeout(connectTimeout))
		if sse != nil {
			router.Any(mcpPath, gin.WrapH(sse))
		}
		return router
	}
}

// requestLogger logs every request at debug level
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
