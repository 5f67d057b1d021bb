// Package wallet provides an in-memory EIP-1193 wallet for tests of code that
// consumes a session manager.
package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	walletsession "github.com/x402-foundation/walletsession"
	"github.com/x402-foundation/walletsession/pkg/emitter"
)

// ============================================================================
// In-memory EVM wallet
// ============================================================================

// Wallet answers eth_requestAccounts and eth_getBalance from memory
type Wallet struct {
	*emitter.Emitter

	mu       sync.Mutex
	accounts []string
	balances map[string]*big.Int
	reject   bool
	calls    map[string]int
}

// New creates a wallet exposing accounts, first one active
func New(accounts ...string) *Wallet {
	return &Wallet{
		Emitter:  emitter.New(),
		accounts: accounts,
		balances: make(map[string]*big.Int),
		calls:    make(map[string]int),
	}
}

// SetBalance sets the wei balance of account
func (w *Wallet) SetBalance(account string, wei *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[account] = new(big.Int).Set(wei)
}

// SetEther sets the balance of account to a whole number of ether
func (w *Wallet) SetEther(account string, ether int64) {
	wei := new(big.Int).Mul(big.NewInt(ether), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	w.SetBalance(account, wei)
}

// Reject makes account requests fail with the EIP-1193 user rejection
func (w *Wallet) Reject(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reject = reject
}

// Calls returns how often method was requested
func (w *Wallet) Calls(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[method]
}

// Request implements walletsession.EvmProvider
func (w *Wallet) Request(ctx context.Context, args walletsession.RequestArguments) (json.RawMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[args.Method]++

	switch args.Method {
	case "eth_requestAccounts":
		if w.reject {
			return nil, &walletsession.ProviderRPCError{
				Code:    walletsession.ProviderErrUserRejected,
				Message: "User rejected the request.",
			}
		}
		return json.Marshal(w.accounts)

	case "eth_getBalance":
		account, _ := args.Params[0].(string)
		balance, ok := w.balances[account]
		if !ok {
			balance = new(big.Int)
		}
		return json.Marshal(hexutil.EncodeBig(balance))

	default:
		return nil, &walletsession.ProviderRPCError{
			Code:    walletsession.ProviderErrUnsupportedMethod,
			Message: "unsupported method " + args.Method,
		}
	}
}

// SwitchAccount makes account active and notifies listeners
func (w *Wallet) SwitchAccount(account string) {
	w.mu.Lock()
	w.accounts = []string{account}
	w.mu.Unlock()
	w.Emit(walletsession.Event{Name: walletsession.EventAccountsChanged, Accounts: []string{account}})
}

// Lock removes account access and notifies listeners
func (w *Wallet) Lock() {
	w.Emit(walletsession.Event{Name: walletsession.EventAccountsChanged, Accounts: []string{}})
}
