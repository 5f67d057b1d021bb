package walletsession

import (
	"context"
	"encoding/json"

	solana "github.com/gagliardetto/solana-go"
)

// EventSource is the listener half of a wallet provider.
// Handlers are invoked serially in emission order.
type EventSource interface {
	On(name EventName, handler EventHandler) ListenerID
	// RemoveListener detaches a handler and reports whether it was registered
	RemoveListener(name EventName, id ListenerID) bool
}

// RequestArguments is the EIP-1193 request shape
type RequestArguments struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params,omitempty"`
}

// EvmProvider is the EIP-1193 capability set (window.ethereum)
type EvmProvider interface {
	EventSource

	// Request dispatches a JSON-RPC method and returns the raw result
	Request(ctx context.Context, args RequestArguments) (json.RawMessage, error)
}

// SvmProvider is the Solana wallet capability set (window.solana)
type SvmProvider interface {
	EventSource

	// Connect asks the wallet for account access and returns the approved key
	Connect(ctx context.Context) (solana.PublicKey, error)

	// GetBalance returns the balance of publicKey in lamports
	GetBalance(ctx context.Context, publicKey solana.PublicKey) (uint64, error)
}

// Environment is the host that may expose injected wallet handles
type Environment interface {
	Ethereum() (EvmProvider, bool)
	Solana() (SvmProvider, bool)
}

// StaticEnvironment is an Environment with fixed handles; nil means absent
type StaticEnvironment struct {
	EVM EvmProvider
	SVM SvmProvider
}

// Ethereum returns the EVM handle if one is installed
func (e StaticEnvironment) Ethereum() (EvmProvider, bool) {
	return e.EVM, e.EVM != nil
}

// Solana returns the Solana handle if one is installed
func (e StaticEnvironment) Solana() (SvmProvider, bool) {
	return e.SVM, e.SVM != nil
}
