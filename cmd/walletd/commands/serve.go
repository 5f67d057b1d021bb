package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	walletsession "github.com/x402-foundation/walletsession"
	"github.com/x402-foundation/walletsession/pkg/config"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFiles...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON config file")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load (default .env)")
	return cmd
}

// serve runs the daemon until ctx is done
func serve(ctx context.Context, cfg *config.Config) error {
	listener, err := net.Listen("tcp", cfg.GetListenAddr())
	if err != nil {
		return err
	}
	return serveListener(ctx, cfg, listener)
}

// serveListener serves on listener until ctx is done, then drains open
// requests, including MCP SSE streams, before closing the manager.
func serveListener(ctx context.Context, cfg *config.Config, listener net.Listener) error {
	logger, err := newLogger(cfg)
	if err != nil {
		listener.Close()
		return err
	}
	defer logger.Sync()

	env, closeWallets, err := buildEnvironment(ctx, cfg, logger)
	if err != nil {
		listener.Close()
		return err
	}
	defer closeWallets()

	manager := walletsession.NewManager(env,
		walletsession.WithLogger(logger),
		walletsession.WithBalanceTimeout(cfg.GetBalanceTimeout()))
	defer manager.Close()

	unsubscribe := manager.Subscribe(func(s walletsession.Session) {
		logger.Info("session changed",
			zap.Stringer("state", s.State()),
			zap.String("account", s.Account),
			zap.String("balance", s.Balance))
	})
	defer unsubscribe()

	// cancelled before Shutdown so long-lived SSE streams return
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	server := &http.Server{
		Handler:           newHandler(cfg, manager, logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletd listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("router", cfg.GetRouter()),
			zap.String("mcp", cfg.GetMCPPath()),
			zap.Stringer("provider", manager.Provider().Kind()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancelRequests()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown timed out, closing connections", zap.Error(err))
		if err := server.Close(); err != nil {
			return err
		}
	}
	return nil
}
