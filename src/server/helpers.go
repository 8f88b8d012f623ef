package server

import (
	"sort"
	"strings"

	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/shopspring/decimal"
)

// Price table filters.
const (
	FilterAll   = "all"
	FilterMajor = "major"
	FilterUSD   = "usd"
)

var majorAssets = map[string]struct{}{
	"BTC": {}, "ETH": {}, "BNB": {}, "XRP": {}, "ADA": {}, "SOL": {}, "DOT": {}, "DOGE": {},
	"MATIC": {}, "LINK": {}, "LTC": {}, "UNI": {}, "ATOM": {}, "AVAX": {}, "SHIB": {},
}

const usdQuote = "USDT"

// priceRow is one line of the price table.
type priceRow struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Display     string          `json:"display"`
	LastUpdated int64           `json:"last_updated"`
}

// -----------------------------------------------------------------------------

func toPriceRows(entries []models.PriceEntry) []priceRow {
	rows := make([]priceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, priceRow{
			Symbol:      e.Symbol,
			Price:       e.LastPrice,
			Display:     utils.FormatPrice(e.LastPrice),
			LastUpdated: e.LastUpdatedAt.UnixMilli(),
		})
	}
	return rows
}

// -----------------------------------------------------------------------------

func validFilter(filter string) bool {
	switch filter {
	case FilterAll, FilterMajor, FilterUSD:
		return true
	}
	return false
}

// filterPrices keeps rows whose symbol contains search (case-insensitive) and
// that pass filter.
func filterPrices(rows []priceRow, search, filter string) []priceRow {
	search = strings.ToUpper(strings.TrimSpace(search))

	out := rows[:0]
	for _, r := range rows {
		if search != "" && !strings.Contains(r.Symbol, search) {
			continue
		}
		switch filter {
		case FilterMajor:
			if _, ok := majorAssets[strings.TrimSuffix(r.Symbol, usdQuote)]; !ok {
				continue
			}
		case FilterUSD:
			if !strings.HasSuffix(r.Symbol, usdQuote) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// -----------------------------------------------------------------------------

// sortPrices orders rows by symbol or price; ties fall back to symbol.
func sortPrices(rows []priceRow, by, order string) {
	desc := order == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if by == "price" && !a.Price.Equal(b.Price) {
			if desc {
				return a.Price.GreaterThan(b.Price)
			}
			return a.Price.LessThan(b.Price)
		}
		if desc {
			return a.Symbol > b.Symbol
		}
		return a.Symbol < b.Symbol
	})
}

// -----------------------------------------------------------------------------

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		sym := models.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
