package models

import "github.com/shopspring/decimal"

// Candle is one OHLCV point for a time bucket of a given interval.
// Time is the bucket open time in unix milliseconds.
type Candle struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
