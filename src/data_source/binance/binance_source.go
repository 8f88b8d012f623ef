package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// maxKlineLimit is the largest page the klines endpoint serves.
const maxKlineLimit = 1000

// BinanceSource fetches snapshots from a Binance-compatible REST API.
type BinanceSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBinanceSource(baseURL string, netMgr interfaces.INetworkManager, log *logger.Logger) *BinanceSource {
	return &BinanceSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	return "binance"
}

// -----------------------------------------------------------------------------

// FetchKlines fetches the latest limit candles of symbol at interval, oldest first.
func (s *BinanceSource) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	params := map[string]string{
		"symbol":   models.NormalizeSymbol(symbol),
		"interval": interval,
		"limit":    fmt.Sprintf("%d", limit),
	}

	body, err := s.Network.Get(ctx, s.BaseURL+"/api/v3/klines", params)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s/%s: %w", symbol, interval, err)
	}

	candles, err := parseKlines(body)
	if err != nil {
		return nil, helpers.NewServerError(fmt.Sprintf("decode klines %s/%s", symbol, interval), 200, err)
	}
	s.Logger.Debug("Fetched %d candles for %s/%s", len(candles), symbol, interval)
	return candles, nil
}

// -----------------------------------------------------------------------------

// parseKlines decodes rows of [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlines(body []byte) ([]models.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d has %d fields, want at least 6", i, len(row))
		}

		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("row %d open time: %w", i, err)
		}

		var values [5]decimal.Decimal
		for j := range values {
			var raw string
			if err := json.Unmarshal(row[j+1], &raw); err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, j+1, err)
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, j+1, err)
			}
			values[j] = d
		}

		candles = append(candles, models.Candle{
			Time:   openTime,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

type ticker24h struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	CloseTime int64  `json:"closeTime"`
}

// FetchPrice fetches the current price of symbol with the exchange's timestamp.
func (s *BinanceSource) FetchPrice(ctx context.Context, symbol string) (models.PriceEntry, error) {
	symbol = models.NormalizeSymbol(symbol)
	body, err := s.Network.Get(ctx, s.BaseURL+"/api/v3/ticker/24hr", map[string]string{"symbol": symbol})
	if err != nil {
		return models.PriceEntry{}, fmt.Errorf("fetch price %s: %w", symbol, err)
	}

	var t ticker24h
	if err := json.Unmarshal(body, &t); err != nil {
		return models.PriceEntry{}, helpers.NewServerError(fmt.Sprintf("decode ticker %s", symbol), 200, err)
	}
	price, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return models.PriceEntry{}, helpers.NewServerError(fmt.Sprintf("decode ticker %s price", symbol), 200, err)
	}

	return models.PriceEntry{
		Symbol:        symbol,
		LastPrice:     price,
		LastUpdatedAt: time.UnixMilli(t.CloseTime),
	}, nil
}
