package walletsession

import "fmt"

// ProviderKind tags which capability set a detected provider exposes
type ProviderKind int

const (
	// ProviderNone means detection found no supported wallet
	ProviderNone ProviderKind = iota
	// ProviderEVM is an EIP-1193 provider (MetaMask style)
	ProviderEVM
	// ProviderSVM is a Solana wallet provider (Phantom style)
	ProviderSVM
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderEVM:
		return "evm"
	case ProviderSVM:
		return "svm"
	default:
		return "none"
	}
}

// Symbol returns the native currency symbol balances are expressed in
func (k ProviderKind) Symbol() string {
	switch k {
	case ProviderEVM:
		return "ETH"
	case ProviderSVM:
		return "SOL"
	default:
		return ""
	}
}

// Decimals returns the divisor exponent between the smallest on-chain unit
// (wei, lamports) and the display unit
func (k ProviderKind) Decimals() int {
	switch k {
	case ProviderEVM:
		return 18
	case ProviderSVM:
		return 9
	default:
		return 0
	}
}

// MarshalText renders the kind as its short name in JSON
func (k ProviderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the short name written by MarshalText
func (k *ProviderKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "evm":
		*k = ProviderEVM
	case "svm":
		*k = ProviderSVM
	case "none", "":
		*k = ProviderNone
	default:
		return fmt.Errorf("unknown provider kind %q", string(text))
	}
	return nil
}

// State is the session state machine position
type State int

const (
	StateNoProvider State = iota
	StateDisconnected
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateNoProvider:
		return "no_provider"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state as its short name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the short name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateNoProvider, StateDisconnected, StateConnected} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// Session is an immutable snapshot of the wallet connection.
// Account and Balance are empty when absent.
type Session struct {
	ID       string       `json:"id"`
	Version  uint64       `json:"version"`
	Provider ProviderKind `json:"provider"`
	Account  string       `json:"account,omitempty"`
	Balance  string       `json:"balance,omitempty"`
}

// HasProvider reports whether a wallet provider was detected
func (s Session) HasProvider() bool {
	return s.Provider != ProviderNone
}

// HasAccount reports whether an account is connected
func (s Session) HasAccount() bool {
	return s.Account != ""
}

// HasBalance reports whether a balance has been fetched for the account
func (s Session) HasBalance() bool {
	return s.Balance != ""
}

// State derives the state machine position from the snapshot
func (s Session) State() State {
	switch {
	case !s.HasProvider():
		return StateNoProvider
	case !s.HasAccount():
		return StateDisconnected
	default:
		return StateConnected
	}
}

// Symbol returns the display unit of Balance
func (s Session) Symbol() string {
	return s.Provider.Symbol()
}

// ============================================================================
// Provider events
// ============================================================================

// EventName identifies a provider notification
type EventName string

const (
	// EventAccountsChanged is emitted by EVM providers with the new account list
	EventAccountsChanged EventName = "accountsChanged"
	// EventAccountChanged is emitted by Solana providers with the new public key, or none
	EventAccountChanged EventName = "accountChanged"
	// EventDisconnect is emitted when the provider loses its connection
	EventDisconnect EventName = "disconnect"
)

// Event is a provider notification. Accounts is empty for an account removal.
type Event struct {
	Name     EventName
	Accounts []string
	Err      error
}

// EventHandler receives provider notifications
type EventHandler func(Event)

// ListenerID identifies a registered handler so it can be removed again
type ListenerID uint64
