package walletsession

import "fmt"

// Presentation is one of the three ways a connection indicator renders a session
type Presentation int

const (
	// PresentationNoProvider: not connected, nothing to connect with
	PresentationNoProvider Presentation = iota
	// PresentationConnectAvailable: not connected, a connect action is offered
	PresentationConnectAvailable
	// PresentationConnected: connected, address and balance shown
	PresentationConnected
)

func (p Presentation) String() string {
	switch p {
	case PresentationNoProvider:
		return "no_provider"
	case PresentationConnectAvailable:
		return "connect_available"
	case PresentationConnected:
		return "connected"
	default:
		return fmt.Sprintf("presentation(%d)", int(p))
	}
}

// MarshalText renders the presentation as its short name in JSON
func (p Presentation) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the short name written by MarshalText
func (p *Presentation) UnmarshalText(text []byte) error {
	for _, candidate := range []Presentation{PresentationNoProvider, PresentationConnectAvailable, PresentationConnected} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown presentation %q", string(text))
}

// Indicator colours
const (
	IndicatorRed   = "red"
	IndicatorGreen = "green"
)

// NoProviderHint is shown when no wallet is installed
const NoProviderHint = "No provider detected. Install MetaMask or Phantom wallet."

// StatusView is what a connection-status indicator needs to render a session
type StatusView struct {
	Presentation Presentation `json:"presentation"`
	Connected    bool         `json:"connected"`
	Indicator    string       `json:"indicator"`
	Label        string       `json:"label"`
	Detail       string       `json:"detail,omitempty"`
	CanConnect   bool         `json:"canConnect"`
	Account      string       `json:"account,omitempty"`
	Balance      string       `json:"balance,omitempty"`
	Symbol       string       `json:"symbol,omitempty"`
}

// Describe maps a session snapshot to its status presentation
func Describe(s Session) StatusView {
	switch s.State() {
	case StateConnected:
		view := StatusView{
			Presentation: PresentationConnected,
			Connected:    true,
			Indicator:    IndicatorGreen,
			Label:        "Connected: " + s.Account,
			Account:      s.Account,
			Balance:      s.Balance,
			Symbol:       s.Symbol(),
		}
		if s.HasBalance() {
			view.Detail = fmt.Sprintf("(%s %s)", s.Balance, s.Symbol())
		}
		return view
	case StateDisconnected:
		return StatusView{
			Presentation: PresentationConnectAvailable,
			Indicator:    IndicatorRed,
			Label:        "Not Connected",
			CanConnect:   true,
		}
	default:
		return StatusView{
			Presentation: PresentationNoProvider,
			Indicator:    IndicatorRed,
			Label:        "Not Connected.",
			Detail:       NoProviderHint,
		}
	}
}

// String renders the view as a single line
func (v StatusView) String() string {
	if v.Detail == "" {
		return v.Label
	}
	return v.Label + " " + v.Detail
}
