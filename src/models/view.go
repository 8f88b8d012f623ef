package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// View state: what the current page declares it is interested in
// -----------------------------------------------------------------------------

// MViewState is declared by the view layer on every navigation or selector change.
type MViewState struct {
	Page     string   `json:"page" yaml:"page"`             // "dashboard", "detail", "watchlist", "portfolio"
	Symbols  []string `json:"symbols" yaml:"symbols"`       // rows of the price table
	Symbol   string   `json:"symbol" yaml:"symbol"`         // chart symbol, empty when the page has no chart
	Interval string   `json:"interval" yaml:"interval"`     // chart interval
	Theme    string   `json:"theme,omitempty" yaml:"theme"` // "light" or "dark"
}

// ViewChange derives the next view from the one currently declared.
type ViewChange func(current MViewState) MViewState

// DesiredKeys derives the wanted subscription set from the view.
func (v MViewState) DesiredKeys() KeySet {
	keys := make(KeySet)
	for _, s := range v.Symbols {
		if sym := NormalizeSymbol(s); sym != "" {
			keys.Add(PriceKey(sym))
		}
	}
	if sym := NormalizeSymbol(v.Symbol); sym != "" {
		keys.Add(PriceKey(sym))
		if v.Interval != "" {
			keys.Add(KlineKey(sym, v.Interval))
		}
	}
	return keys
}

// -----------------------------------------------------------------------------
// View updates: what the session hands to the view layer
// -----------------------------------------------------------------------------

const (
	UpdateTick     = "TICK"
	UpdateCandle   = "CANDLE"
	UpdateSnapshot = "SNAPSHOT"
	UpdateEvict    = "EVICT"
	UpdateError    = "ERROR"
	UpdateStatus   = "STATUS"
)

// MViewUpdate is one minimal re-render instruction for the view layer.
type MViewUpdate struct {
	Type      string           `json:"type"`
	Symbol    string           `json:"symbol,omitempty"`
	Interval  string           `json:"interval,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Display   string           `json:"display,omitempty"`
	Direction string           `json:"direction,omitempty"`
	Replaced  bool             `json:"replaced,omitempty"`
	Points    []Candle         `json:"points,omitempty"`
	Symbols   []string         `json:"symbols,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Browser commands
// -----------------------------------------------------------------------------

// MViewCommand is sent by browser clients over the WebSocket.
type MViewCommand struct {
	Command  string   `json:"command"` // "navigate"
	Page     string   `json:"page"`
	Symbols  []string `json:"symbols"`
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
}
