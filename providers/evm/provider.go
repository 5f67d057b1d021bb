// Package evm implements an EIP-1193 wallet provider backed by locally held
// secp256k1 keys. Account methods are answered from the key set the way an
// injected wallet extension answers them; every other JSON-RPC method is
// forwarded to an upstream node.
package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	walletsession "github.com/x402-foundation/walletsession"
	"github.com/x402-foundation/walletsession/pkg/emitter"
)

// ApprovalFunc decides whether the user grants account access.
// Returning an error rejects the request.
type ApprovalFunc func(ctx context.Context, accounts []string) error

// KeyProvider implements walletsession.EvmProvider
type KeyProvider struct {
	*emitter.Emitter

	client  *rpc.Client
	approve ApprovalFunc

	mu         sync.RWMutex
	keys       []*ecdsa.PrivateKey
	addresses  []common.Address
	active     int
	authorized bool
}

// Option configures a KeyProvider
type Option func(*KeyProvider)

// WithRPCClient sets the upstream node client
func WithRPCClient(client *rpc.Client) Option {
	return func(p *KeyProvider) {
		p.client = client
	}
}

// WithApproval sets the account-access prompt
func WithApproval(fn ApprovalFunc) Option {
	return func(p *KeyProvider) {
		p.approve = fn
	}
}

// NewKeyProvider creates a provider from hex-encoded private keys (with or
// without "0x" prefix). The first key is the selected account.
func NewKeyProvider(privateKeysHex []string, opts ...Option) (*KeyProvider, error) {
	if len(privateKeysHex) == 0 {
		return nil, fmt.Errorf("at least one private key is required")
	}

	p := &KeyProvider{Emitter: emitter.New()}
	for i, keyHex := range privateKeysHex {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key %d: %w", i, err)
		}
		p.keys = append(p.keys, key)
		p.addresses = append(p.addresses, crypto.PubkeyToAddress(key.PublicKey))
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dial connects to the node at rpcURL and creates a provider over it
func Dial(ctx context.Context, rpcURL string, privateKeysHex []string, opts ...Option) (*KeyProvider, error) {
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	p, err := NewKeyProvider(privateKeysHex, append([]Option{WithRPCClient(client)}, opts...)...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// Request implements EIP-1193 request
func (p *KeyProvider) Request(ctx context.Context, args walletsession.RequestArguments) (json.RawMessage, error) {
	switch args.Method {
	case "eth_requestAccounts":
		return p.requestAccounts(ctx)
	case "eth_accounts":
		return json.Marshal(p.exposedAccounts())
	case "eth_sign", "personal_sign", "eth_signTypedData_v4", "eth_sendTransaction", "eth_signTransaction":
		return nil, &walletsession.ProviderRPCError{
			Code:    walletsession.ProviderErrUnsupportedMethod,
			Message: fmt.Sprintf("method %s is not supported", args.Method),
		}
	default:
		return p.forward(ctx, args)
	}
}

func (p *KeyProvider) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	p.mu.RLock()
	authorized := p.authorized
	selected := p.addresses[p.active].Hex()
	p.mu.RUnlock()

	if !authorized && p.approve != nil {
		if err := p.approve(ctx, []string{selected}); err != nil {
			return nil, &walletsession.ProviderRPCError{
				Code:    walletsession.ProviderErrUserRejected,
				Message: "user rejected the request",
				Data:    err.Error(),
			}
		}
	}

	p.mu.Lock()
	p.authorized = true
	p.mu.Unlock()

	return json.Marshal(p.exposedAccounts())
}

// exposedAccounts returns the selected account once access was granted
func (p *KeyProvider) exposedAccounts() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.authorized {
		return []string{}
	}
	return []string{p.addresses[p.active].Hex()}
}

func (p *KeyProvider) forward(ctx context.Context, args walletsession.RequestArguments) (json.RawMessage, error) {
	if p.client == nil {
		return nil, &walletsession.ProviderRPCError{
			Code:    walletsession.ProviderErrDisconnected,
			Message: "provider has no node connection",
		}
	}

	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, args.Method, args.Params...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &walletsession.ProviderRPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, fmt.Errorf("%s failed: %w", args.Method, err)
	}
	return result, nil
}

// Accounts returns every address the provider holds keys for
func (p *KeyProvider) Accounts() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	accounts := make([]string, len(p.addresses))
	for i, addr := range p.addresses {
		accounts[i] = addr.Hex()
	}
	return accounts
}

// SwitchAccount selects the account at index and, if access was granted,
// notifies listeners with accountsChanged
func (p *KeyProvider) SwitchAccount(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.addresses) {
		p.mu.Unlock()
		return fmt.Errorf("account index %d out of range", index)
	}
	changed := p.active != index
	p.active = index
	authorized := p.authorized
	selected := p.addresses[index].Hex()
	p.mu.Unlock()

	if changed && authorized {
		p.Emit(walletsession.Event{Name: walletsession.EventAccountsChanged, Accounts: []string{selected}})
	}
	return nil
}

// Lock revokes account access and notifies listeners with an empty account list
func (p *KeyProvider) Lock() {
	p.mu.Lock()
	wasAuthorized := p.authorized
	p.authorized = false
	p.mu.Unlock()

	if wasAuthorized {
		p.Emit(walletsession.Event{Name: walletsession.EventAccountsChanged, Accounts: []string{}})
	}
}

// Disconnect notifies listeners that the provider lost its node connection
func (p *KeyProvider) Disconnect(cause error) {
	err := &walletsession.ProviderRPCError{Code: walletsession.ProviderErrDisconnected, Message: "provider disconnected"}
	if cause != nil {
		err.Data = cause.Error()
	}
	p.Emit(walletsession.Event{Name: walletsession.EventDisconnect, Err: err})
}

// ChainID queries the upstream node for its chain ID
func (p *KeyProvider) ChainID(ctx context.Context) (*big.Int, error) {
	if p.client == nil {
		return nil, fmt.Errorf("provider has no node connection")
	}
	return ethclient.NewClient(p.client).ChainID(ctx)
}

// Close releases the upstream node connection
func (p *KeyProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
