package models

import (
	"fmt"
	"sort"
	"strings"
)

// Channel identifies the kind of live feed a subscription refers to.
type Channel string

const (
	ChannelPrice Channel = "price"
	ChannelKline Channel = "kline"
)

// -----------------------------------------------------------------------------

// SubscriptionKey uniquely identifies one live feed.
// It is comparable and used directly as a map key.
type SubscriptionKey struct {
	Channel  Channel `json:"channel" validate:"required,oneof=price kline"`
	Symbol   string  `json:"symbol" validate:"required"`
	Interval string  `json:"interval,omitempty"`
}

// PriceKey returns the key of the price feed for symbol.
func PriceKey(symbol string) SubscriptionKey {
	return SubscriptionKey{Channel: ChannelPrice, Symbol: NormalizeSymbol(symbol)}
}

// KlineKey returns the key of the candle feed for symbol at interval.
func KlineKey(symbol, interval string) SubscriptionKey {
	return SubscriptionKey{Channel: ChannelKline, Symbol: NormalizeSymbol(symbol), Interval: interval}
}

// NormalizeSymbol upper-cases and trims a trading pair symbol ("btcusdt" -> "BTCUSDT").
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// -----------------------------------------------------------------------------

// Validate checks that interval is present iff the channel is kline.
func (k SubscriptionKey) Validate() error {
	if k.Symbol == "" {
		return fmt.Errorf("subscription key has empty symbol")
	}
	switch k.Channel {
	case ChannelPrice:
		if k.Interval != "" {
			return fmt.Errorf("price subscription %s must not carry an interval", k.Symbol)
		}
	case ChannelKline:
		if k.Interval == "" {
			return fmt.Errorf("kline subscription %s requires an interval", k.Symbol)
		}
	default:
		return fmt.Errorf("unknown channel %q", k.Channel)
	}
	return nil
}

// String renders the key as "price:BTCUSDT" or "kline:BTCUSDT:1m".
func (k SubscriptionKey) String() string {
	if k.Interval == "" {
		return fmt.Sprintf("%s:%s", k.Channel, k.Symbol)
	}
	return fmt.Sprintf("%s:%s:%s", k.Channel, k.Symbol, k.Interval)
}

// -----------------------------------------------------------------------------

// KeySet is a set of subscription keys.
type KeySet map[SubscriptionKey]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...SubscriptionKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(k SubscriptionKey) {
	s[k] = struct{}{}
}

func (s KeySet) Has(k SubscriptionKey) bool {
	_, ok := s[k]
	return ok
}

// Clone returns an independent copy of the set.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Symbols returns every distinct symbol referenced by the set.
func (s KeySet) Symbols() map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k.Symbol] = struct{}{}
	}
	return out
}

// Sorted returns the keys ordered by channel, symbol, interval.
func (s KeySet) Sorted() []SubscriptionKey {
	out := make([]SubscriptionKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	SortKeys(out)
	return out
}

// SortKeys orders keys by channel, symbol, interval in place.
func SortKeys(keys []SubscriptionKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Interval < b.Interval
	})
}
