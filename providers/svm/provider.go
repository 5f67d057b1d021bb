// Package svm implements a Solana wallet provider backed by locally held
// ed25519 keys, querying balances through a Solana JSON-RPC node.
package svm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	walletsession "github.com/x402-foundation/walletsession"
	"github.com/x402-foundation/walletsession/pkg/emitter"
)

// Public RPC endpoints
const (
	SolanaMainnetRPCURL = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPCURL  = "https://api.devnet.solana.com"
	SolanaTestnetRPCURL = "https://api.testnet.solana.com"
)

// ApprovalFunc decides whether the user grants account access.
// Returning an error rejects the connection.
type ApprovalFunc func(ctx context.Context, publicKey solana.PublicKey) error

// KeyProvider implements walletsession.SvmProvider
type KeyProvider struct {
	*emitter.Emitter

	client     *rpc.Client
	commitment rpc.CommitmentType
	approve    ApprovalFunc

	mu        sync.RWMutex
	keys      []solana.PrivateKey
	active    int
	connected bool
}

// Option configures a KeyProvider
type Option func(*KeyProvider)

// WithRPCClient sets the node client used for balance queries
func WithRPCClient(client *rpc.Client) Option {
	return func(p *KeyProvider) {
		p.client = client
	}
}

// WithCommitment sets the commitment level for balance queries
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(p *KeyProvider) {
		if commitment != "" {
			p.commitment = commitment
		}
	}
}

// WithApproval sets the connection prompt
func WithApproval(fn ApprovalFunc) Option {
	return func(p *KeyProvider) {
		p.approve = fn
	}
}

// NewKeyProvider creates a provider from base58-encoded private keys.
// The first key is the selected account.
func NewKeyProvider(privateKeysBase58 []string, opts ...Option) (*KeyProvider, error) {
	if len(privateKeysBase58) == 0 {
		return nil, fmt.Errorf("at least one private key is required")
	}

	p := &KeyProvider{
		Emitter:    emitter.New(),
		commitment: rpc.CommitmentFinalized,
	}
	for i, keyBase58 := range privateKeysBase58 {
		key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(keyBase58))
		if err != nil {
			return nil, fmt.Errorf("invalid private key %d: %w", i, err)
		}
		p.keys = append(p.keys, key)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// New creates a provider whose balance queries go to rpcURL
func New(rpcURL string, privateKeysBase58 []string, opts ...Option) (*KeyProvider, error) {
	if rpcURL == "" {
		rpcURL = SolanaMainnetRPCURL
	}
	return NewKeyProvider(privateKeysBase58, append([]Option{WithRPCClient(rpc.New(rpcURL))}, opts...)...)
}

// Connect asks for account access and returns the selected public key
func (p *KeyProvider) Connect(ctx context.Context) (solana.PublicKey, error) {
	p.mu.RLock()
	connected := p.connected
	selected := p.keys[p.active].PublicKey()
	p.mu.RUnlock()

	if !connected && p.approve != nil {
		if err := p.approve(ctx, selected); err != nil {
			return solana.PublicKey{}, &walletsession.ProviderRPCError{
				Code:    walletsession.ProviderErrUserRejected,
				Message: "user rejected the request",
				Data:    err.Error(),
			}
		}
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return selected, nil
}

// GetBalance returns the lamport balance of publicKey
func (p *KeyProvider) GetBalance(ctx context.Context, publicKey solana.PublicKey) (uint64, error) {
	if p.client == nil {
		return 0, &walletsession.ProviderRPCError{
			Code:    walletsession.ProviderErrDisconnected,
			Message: "provider has no node connection",
		}
	}
	result, err := p.client.GetBalance(ctx, publicKey, p.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return result.Value, nil
}

// PublicKeys returns every public key the provider holds
func (p *KeyProvider) PublicKeys() []solana.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]solana.PublicKey, len(p.keys))
	for i, key := range p.keys {
		keys[i] = key.PublicKey()
	}
	return keys
}

// SwitchAccount selects the key at index and, while connected, emits
// accountChanged with the new public key
func (p *KeyProvider) SwitchAccount(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.keys) {
		p.mu.Unlock()
		return fmt.Errorf("account index %d out of range", index)
	}
	changed := p.active != index
	p.active = index
	connected := p.connected
	selected := p.keys[index].PublicKey()
	p.mu.Unlock()

	if changed && connected {
		p.Emit(walletsession.Event{Name: walletsession.EventAccountChanged, Accounts: []string{selected.String()}})
	}
	return nil
}

// Lock revokes access and emits accountChanged without a key
func (p *KeyProvider) Lock() {
	p.mu.Lock()
	wasConnected := p.connected
	p.connected = false
	p.mu.Unlock()

	if wasConnected {
		p.Emit(walletsession.Event{Name: walletsession.EventAccountChanged})
	}
}

// Disconnect ends the wallet connection and emits disconnect
func (p *KeyProvider) Disconnect() {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()

	p.Emit(walletsession.Event{Name: walletsession.EventDisconnect})
}

// Close releases the node client
func (p *KeyProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
