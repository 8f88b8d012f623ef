package core

import (
	"market-sync/src/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SeriesSummary is the chart header of a series: range, volume and change
// from the first open to the last close.
type SeriesSummary struct {
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        decimal.Decimal `json:"volume"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Points        int             `json:"points"`
}

// -----------------------------------------------------------------------------

// ComputeOHLCV summarises candles (oldest first). An empty series yields zeros.
func ComputeOHLCV(candles []models.Candle) SeriesSummary {
	if len(candles) == 0 {
		return SeriesSummary{}
	}

	s := SeriesSummary{
		Open:   candles[0].Open,
		High:   candles[0].High,
		Low:    candles[0].Low,
		Close:  candles[len(candles)-1].Close,
		Points: len(candles),
	}

	for _, c := range candles {
		if c.High.GreaterThan(s.High) {
			s.High = c.High
		}
		if c.Low.LessThan(s.Low) {
			s.Low = c.Low
		}
		s.Volume = s.Volume.Add(c.Volume)
	}

	s.Change = s.Close.Sub(s.Open)
	s.ChangePercent = CalculateChangePercent(s.Close, s.Open)
	return s
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in
// percent, rounded to 2 decimals. A zero previous yields zero.
func CalculateChangePercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}
