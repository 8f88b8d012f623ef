package transport

import (
	"testing"
	"time"

	"market-sync/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EncodeIntent(t *testing.T) {
	c := NewCodec()

	data, err := c.EncodeIntent(ActionSubscribe, models.KlineKey("btcusdt", "1m"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"subscribe","channel":"kline","symbol":"BTCUSDT","interval":"1m"}`, string(data))

	data, err = c.EncodeIntent(ActionUnsubscribe, models.PriceKey("ETHUSDT"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"unsubscribe","channel":"price","symbol":"ETHUSDT"}`, string(data))

	_, err = c.EncodeIntent("resubscribe", models.PriceKey("ETHUSDT"))
	assert.Error(t, err)

	_, err = c.EncodeIntent(ActionSubscribe, models.SubscriptionKey{Channel: models.ChannelKline, Symbol: "BTCUSDT"})
	assert.Error(t, err)
}

func Test_DecodeIntent(t *testing.T) {
	c := NewCodec()

	intent, err := c.DecodeIntent([]byte(`{"action":"subscribe","channel":"kline","symbol":"btcusdt","interval":"5m"}`))
	require.NoError(t, err)
	assert.Equal(t, models.KlineKey("BTCUSDT", "5m"), intent.Key())

	_, err = c.DecodeIntent([]byte(`{"action":"subscribe","channel":"kline","symbol":"BTCUSDT"}`))
	assert.Error(t, err)
}

func Test_DecodeEvent_Tick(t *testing.T) {
	c := NewCodec()

	event, err := c.DecodeEvent([]byte(`{"type":"tick","symbol":"btcusdt","price":"101.5","timestamp":1700000000000}`))
	require.NoError(t, err)
	assert.Equal(t, models.PushTick, event.Type)
	assert.Equal(t, "BTCUSDT", event.Symbol)
	assert.True(t, decimal.RequireFromString("101.5").Equal(event.Price))
	assert.Equal(t, int64(1700000000000), event.At.UnixMilli())
	assert.Equal(t, models.PriceKey("BTCUSDT"), event.Key())
}

func Test_DecodeEvent_Kline(t *testing.T) {
	c := NewCodec()

	frame := `{"type":"kline","symbol":"ETHUSDT","interval":"1h","candle":{"t":1700000000000,"o":"1","h":"2.5","l":"0.5","c":"2","v":"100"}}`
	event, err := c.DecodeEvent([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, models.PushKline, event.Type)
	assert.Equal(t, models.KlineKey("ETHUSDT", "1h"), event.Key())
	assert.Equal(t, int64(1700000000000), event.Candle.Time)
	assert.Equal(t, "2.5", event.Candle.High.String())
}

func Test_DecodeEvent_Invalid(t *testing.T) {
	c := NewCodec()

	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `tick`},
		{"unknown type", `{"type":"trade","symbol":"BTCUSDT"}`},
		{"tick without price", `{"type":"tick","symbol":"BTCUSDT","timestamp":1}`},
		{"tick non numeric price", `{"type":"tick","symbol":"BTCUSDT","price":"abc","timestamp":1}`},
		{"tick without timestamp", `{"type":"tick","symbol":"BTCUSDT","price":"1"}`},
		{"kline without interval", `{"type":"kline","symbol":"BTCUSDT","candle":{"t":1,"o":"1","h":"1","l":"1","c":"1","v":"1"}}`},
		{"kline without candle", `{"type":"kline","symbol":"BTCUSDT","interval":"1m"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.DecodeEvent([]byte(tt.frame))
			assert.Error(t, err)
		})
	}
}

func Test_EncodeFrames_RoundTrip(t *testing.T) {
	c := NewCodec()
	at := time.UnixMilli(1700000000123)

	data, err := EncodeTick("BTCUSDT", decimal.RequireFromString("42000.5"), at)
	require.NoError(t, err)
	event, err := c.DecodeEvent(data)
	require.NoError(t, err)
	assert.True(t, at.Equal(event.At))

	candle := models.Candle{
		Time:   1700000000000,
		Open:   decimal.NewFromInt(1),
		High:   decimal.NewFromInt(3),
		Low:    decimal.NewFromInt(1),
		Close:  decimal.NewFromInt(2),
		Volume: decimal.NewFromInt(10),
	}
	data, err = EncodeKline("BTCUSDT", "1m", candle)
	require.NoError(t, err)
	event, err = c.DecodeEvent(data)
	require.NoError(t, err)
	assert.True(t, candle.Close.Equal(event.Candle.Close))
}
