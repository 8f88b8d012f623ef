package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PushEventType distinguishes the two kinds of asynchronous push events.
type PushEventType string

const (
	PushTick  PushEventType = "tick"
	PushKline PushEventType = "kline"
)

// MPushEvent is a decoded message from the push channel.
// Tick events carry Price/At; kline events carry Interval/Candle.
type MPushEvent struct {
	Type     PushEventType
	Symbol   string
	Price    decimal.Decimal
	At       time.Time
	Interval string
	Candle   Candle
}

// Key returns the subscription key the event belongs to.
func (e MPushEvent) Key() SubscriptionKey {
	if e.Type == PushKline {
		return KlineKey(e.Symbol, e.Interval)
	}
	return PriceKey(e.Symbol)
}
