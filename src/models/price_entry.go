package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceEntry is the last known price of one symbol displayed on the page.
type PriceEntry struct {
	Symbol        string          `json:"symbol"`
	LastPrice     decimal.Decimal `json:"last_price"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}
