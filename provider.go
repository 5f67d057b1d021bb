package walletsession

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
)

// Provider is the detected wallet handle, tagged by capability set.
// The zero value is "no provider".
type Provider struct {
	kind ProviderKind
	evm  EvmProvider
	svm  SvmProvider
}

// NewEvmProvider tags an EIP-1193 provider
func NewEvmProvider(p EvmProvider) Provider {
	if p == nil {
		return Provider{}
	}
	return Provider{kind: ProviderEVM, evm: p}
}

// NewSvmProvider tags a Solana wallet provider
func NewSvmProvider(p SvmProvider) Provider {
	if p == nil {
		return Provider{}
	}
	return Provider{kind: ProviderSVM, svm: p}
}

// Kind returns the capability tag
func (p Provider) Kind() ProviderKind {
	return p.kind
}

// EVM returns the EIP-1193 handle when Kind is ProviderEVM
func (p Provider) EVM() (EvmProvider, bool) {
	return p.evm, p.kind == ProviderEVM
}

// SVM returns the Solana handle when Kind is ProviderSVM
func (p Provider) SVM() (SvmProvider, bool) {
	return p.svm, p.kind == ProviderSVM
}

// DetectProvider inspects env for known wallet handles. The EVM handle wins
// over the Solana one when both are installed.
func DetectProvider(env Environment) Provider {
	if env == nil {
		return Provider{}
	}
	if p, ok := env.Ethereum(); ok {
		return NewEvmProvider(p)
	}
	if p, ok := env.Solana(); ok {
		return NewSvmProvider(p)
	}
	return Provider{}
}

func (p Provider) events() EventSource {
	switch p.kind {
	case ProviderEVM:
		return p.evm
	case ProviderSVM:
		return p.svm
	default:
		return nil
	}
}

// subscribedEvents lists the notifications the manager listens to per kind
func (p Provider) subscribedEvents() []EventName {
	switch p.kind {
	case ProviderEVM:
		return []EventName{EventAccountsChanged, EventDisconnect}
	case ProviderSVM:
		return []EventName{EventAccountChanged, EventDisconnect}
	default:
		return nil
	}
}

// requestAccount asks the wallet for access and returns the first account
func (p Provider) requestAccount(ctx context.Context) (string, error) {
	switch p.kind {
	case ProviderEVM:
		raw, err := p.evm.Request(ctx, RequestArguments{Method: "eth_requestAccounts"})
		if err != nil {
			return "", err
		}
		var accounts []string
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return "", fmt.Errorf("invalid eth_requestAccounts result: %w", err)
		}
		if len(accounts) == 0 || accounts[0] == "" {
			return "", fmt.Errorf("provider returned no accounts")
		}
		return accounts[0], nil

	case ProviderSVM:
		publicKey, err := p.svm.Connect(ctx)
		if err != nil {
			return "", err
		}
		if publicKey.IsZero() {
			return "", fmt.Errorf("provider returned an empty public key")
		}
		return publicKey.String(), nil

	default:
		return "", ErrNoProviderFound
	}
}

// fetchBalance queries the balance of account and normalizes it to the
// provider's display unit
func (p Provider) fetchBalance(ctx context.Context, account string) (string, error) {
	switch p.kind {
	case ProviderEVM:
		raw, err := p.evm.Request(ctx, RequestArguments{
			Method: "eth_getBalance",
			Params: []interface{}{account, "latest"},
		})
		if err != nil {
			return "", err
		}
		wei, err := ParseQuantity(raw)
		if err != nil {
			return "", err
		}
		return FormatUnits(wei, p.kind.Decimals()), nil

	case ProviderSVM:
		publicKey, err := solana.PublicKeyFromBase58(account)
		if err != nil {
			return "", fmt.Errorf("invalid solana account %q: %w", account, err)
		}
		lamports, err := p.svm.GetBalance(ctx, publicKey)
		if err != nil {
			return "", err
		}
		return FormatUnits(new(big.Int).SetUint64(lamports), p.kind.Decimals()), nil

	default:
		return "", ErrNoProviderFound
	}
}

// parseEventAccount returns the first account carried by an event. An empty
// list, or an empty first entry, means the accounts were removed.
func parseEventAccount(ev Event) (string, bool) {
	if len(ev.Accounts) == 0 || ev.Accounts[0] == "" {
		return "", false
	}
	return ev.Accounts[0], true
}
