// Package config loads walletd configuration from an optional JSON file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Router names accepted by Config.Router
const (
	RouterGin    = "gin"
	RouterEcho   = "echo"
	RouterStdlib = "stdlib"
)

// Defaults applied by the Get* accessors
const (
	DefaultListenAddr            = ":4030"
	DefaultMCPPath               = "/sse"
	DefaultBalanceTimeoutSeconds = 30
	DefaultConnectTimeoutSeconds = 120
	DefaultCommitment            = "finalized"
)

// Config represents the walletd configuration.
type Config struct {
	// ListenAddr is the address the HTTP and MCP endpoints are served on
	ListenAddr string `json:"listenAddr,omitempty" env:"WALLETD_LISTEN_ADDR"`
	// Router selects the HTTP framework: gin (default), echo or stdlib
	Router string `json:"router,omitempty" env:"WALLETD_ROUTER"`
	// MCPPath is where the MCP SSE endpoint is mounted; "-" disables it
	MCPPath string `json:"mcpPath,omitempty" env:"WALLETD_MCP_PATH"`

	LogLevel    string `json:"logLevel,omitempty" env:"WALLETD_LOG_LEVEL"`
	Development bool   `json:"development,omitempty" env:"WALLETD_DEVELOPMENT"`

	// BalanceTimeoutSeconds bounds each balance query
	BalanceTimeoutSeconds int `json:"balanceTimeoutSeconds,omitempty" env:"WALLETD_BALANCE_TIMEOUT_SECONDS"`
	// ConnectTimeoutSeconds bounds how long a connect request waits on the wallet
	ConnectTimeoutSeconds int `json:"connectTimeoutSeconds,omitempty" env:"WALLETD_CONNECT_TIMEOUT_SECONDS"`

	EVM EVMConfig `json:"evm"`
	SVM SVMConfig `json:"svm"`
}

// EVMConfig configures the key-backed EIP-1193 wallet
type EVMConfig struct {
	RPCURL      string   `json:"rpcUrl,omitempty" env:"EVM_RPC_URL"`
	PrivateKeys []string `json:"privateKeys,omitempty" env:"EVM_PRIVATE_KEYS" envSeparator:","`
}

// SVMConfig configures the key-backed Solana wallet
type SVMConfig struct {
	RPCURL      string   `json:"rpcUrl,omitempty" env:"SVM_RPC_URL"`
	PrivateKeys []string `json:"privateKeys,omitempty" env:"SVM_PRIVATE_KEYS" envSeparator:","`
	Commitment  string   `json:"commitment,omitempty" env:"SVM_COMMITMENT"`
}

// Enabled reports whether a wallet is configured
func (c EVMConfig) Enabled() bool {
	return len(c.PrivateKeys) > 0
}

// Enabled reports whether a wallet is configured
func (c SVMConfig) Enabled() bool {
	return len(c.PrivateKeys) > 0
}

// Load reads path (when non-empty), then the given .env files (".env" when
// none are named), then the process environment, and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding ones already
// set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.decode(data)
}

// Validate checks if the config is usable
func (c *Config) Validate() error {
	switch c.Router {
	case "", RouterGin, RouterEcho, RouterStdlib:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRouter, c.Router)
	}
	if c.LogLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
		}
	}
	if c.BalanceTimeoutSeconds < 0 || c.ConnectTimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	if c.EVM.Enabled() && c.EVM.RPCURL == "" {
		return ErrMissingEVMRPCURL
	}
	if c.SVM.Enabled() && c.SVM.RPCURL == "" {
		return ErrMissingSVMRPCURL
	}
	switch c.SVM.Commitment {
	case "", "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCommitment, c.SVM.Commitment)
	}
	return nil
}

// GetListenAddr returns the listen address, defaulting to DefaultListenAddr
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// GetRouter returns the router name, defaulting to gin
func (c *Config) GetRouter() string {
	if c.Router == "" {
		return RouterGin
	}
	return c.Router
}

// GetMCPPath returns the MCP mount path; empty means disabled
func (c *Config) GetMCPPath() string {
	switch c.MCPPath {
	case "":
		return DefaultMCPPath
	case "-":
		return ""
	default:
		return c.MCPPath
	}
}

// GetLogLevel returns the parsed log level, defaulting to info
func (c *Config) GetLogLevel() zapcore.Level {
	level := zapcore.InfoLevel
	if c.LogLevel != "" {
		_ = level.UnmarshalText([]byte(c.LogLevel))
	}
	return level
}

// GetBalanceTimeout returns the balance query timeout
func (c *Config) GetBalanceTimeout() time.Duration {
	if c.BalanceTimeoutSeconds <= 0 {
		return DefaultBalanceTimeoutSeconds * time.Second
	}
	return time.Duration(c.BalanceTimeoutSeconds) * time.Second
}

// GetConnectTimeout returns the connect request timeout
func (c *Config) GetConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return DefaultConnectTimeoutSeconds * time.Second
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// GetCommitment returns the Solana commitment level
func (c SVMConfig) GetCommitment() string {
	if c.Commitment == "" {
		return DefaultCommitment
	}
	return c.Commitment
}
