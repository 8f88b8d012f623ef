// Package transport implements the push channel: a WebSocket client that
// sends subscribe/unsubscribe intents and decodes tick and kline events.
package transport

import (
	"fmt"
	"time"

	"market-sync/src/models"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Intent actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Intent is an outgoing subscribe/unsubscribe frame.
//
//	{"action":"subscribe","channel":"kline","symbol":"BTCUSDT","interval":"1m"}
type Intent struct {
	Action   string `json:"action" validate:"required,oneof=subscribe unsubscribe"`
	Channel  string `json:"channel" validate:"required,oneof=price kline"`
	Symbol   string `json:"symbol" validate:"required"`
	Interval string `json:"interval,omitempty" validate:"required_if=Channel kline"`
}

// Key returns the subscription key the intent refers to.
func (i Intent) Key() models.SubscriptionKey {
	if models.Channel(i.Channel) == models.ChannelKline {
		return models.KlineKey(i.Symbol, i.Interval)
	}
	return models.PriceKey(i.Symbol)
}

// envelope carries the discriminator of incoming frames.
type envelope struct {
	Type string `json:"type" validate:"required,oneof=tick kline"`
}

// TickFrame is an incoming price update.
//
//	{"type":"tick","symbol":"BTCUSDT","price":"101.5","timestamp":1700000000000}
type TickFrame struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol" validate:"required"`
	Price     string `json:"price" validate:"required,numeric"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
}

// CandleFrame is the candle payload of a kline frame.
type CandleFrame struct {
	Time   int64  `json:"t" validate:"required,gt=0"`
	Open   string `json:"o" validate:"required,numeric"`
	High   string `json:"h" validate:"required,numeric"`
	Low    string `json:"l" validate:"required,numeric"`
	Close  string `json:"c" validate:"required,numeric"`
	Volume string `json:"v" validate:"required,numeric"`
}

// KlineFrame is an incoming candle update.
type KlineFrame struct {
	Type     string      `json:"type"`
	Symbol   string      `json:"symbol" validate:"required"`
	Interval string      `json:"interval" validate:"required"`
	Candle   CandleFrame `json:"candle"`
}

// -----------------------------------------------------------------------------

// Codec encodes intents and decodes push frames, validating both.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	return &Codec{validate: validator.New()}
}

// -----------------------------------------------------------------------------

// EncodeIntent renders an intent frame for key.
func (c *Codec) EncodeIntent(action string, key models.SubscriptionKey) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	intent := Intent{
		Action:   action,
		Channel:  string(key.Channel),
		Symbol:   key.Symbol,
		Interval: key.Interval,
	}
	if err := c.validate.Struct(&intent); err != nil {
		return nil, fmt.Errorf("invalid intent: %w", err)
	}
	return json.Marshal(intent)
}

// DecodeIntent parses an intent frame (server side of the channel).
func (c *Codec) DecodeIntent(data []byte) (Intent, error) {
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return Intent{}, fmt.Errorf("invalid intent JSON: %w", err)
	}
	if err := c.validate.Struct(&intent); err != nil {
		return Intent{}, fmt.Errorf("invalid intent: %w", err)
	}
	return intent, nil
}

// -----------------------------------------------------------------------------

// DecodeEvent parses and validates one incoming frame.
func (c *Codec) DecodeEvent(data []byte) (models.MPushEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid frame JSON: %w", err)
	}
	if err := c.validate.Struct(&env); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid frame type: %w", err)
	}

	switch models.PushEventType(env.Type) {
	case models.PushTick:
		return c.decodeTick(data)
	default:
		return c.decodeKline(data)
	}
}

func (c *Codec) decodeTick(data []byte) (models.MPushEvent, error) {
	var f TickFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid tick JSON: %w", err)
	}
	if err := c.validate.Struct(&f); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid tick: %w", err)
	}

	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid tick price: %w", err)
	}

	return models.MPushEvent{
		Type:   models.PushTick,
		Symbol: models.NormalizeSymbol(f.Symbol),
		Price:  price,
		At:     time.UnixMilli(f.Timestamp),
	}, nil
}

func (c *Codec) decodeKline(data []byte) (models.MPushEvent, error) {
	var f KlineFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid kline JSON: %w", err)
	}
	if err := c.validate.Struct(&f); err != nil {
		return models.MPushEvent{}, fmt.Errorf("invalid kline: %w", err)
	}

	raw := [5]string{f.Candle.Open, f.Candle.High, f.Candle.Low, f.Candle.Close, f.Candle.Volume}
	var values [5]decimal.Decimal
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.MPushEvent{}, fmt.Errorf("invalid kline value %q: %w", s, err)
		}
		values[i] = d
	}

	return models.MPushEvent{
		Type:     models.PushKline,
		Symbol:   models.NormalizeSymbol(f.Symbol),
		Interval: f.Interval,
		Candle: models.Candle{
			Time:   f.Candle.Time,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		},
	}, nil
}

// -----------------------------------------------------------------------------

// EncodeTick renders a tick frame.
func EncodeTick(symbol string, price decimal.Decimal, at time.Time) ([]byte, error) {
	return json.Marshal(TickFrame{
		Type:      string(models.PushTick),
		Symbol:    symbol,
		Price:     price.String(),
		Timestamp: at.UnixMilli(),
	})
}

// EncodeKline renders a kline frame.
func EncodeKline(symbol, interval string, candle models.Candle) ([]byte, error) {
	return json.Marshal(KlineFrame{
		Type:     string(models.PushKline),
		Symbol:   symbol,
		Interval: interval,
		Candle: CandleFrame{
			Time:   candle.Time,
			Open:   candle.Open.String(),
			High:   candle.High.String(),
			Low:    candle.Low.String(),
			Close:  candle.Close.String(),
			Volume: candle.Volume.String(),
		},
	})
}
