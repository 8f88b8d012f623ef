package main

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/transport"
	"market-sync/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	defaultLimit = 500
	maxLimit     = 1000
	writeWait    = 5 * time.Second
)

// feed serves a Binance-shaped REST API and a push channel that honours
// subscribe/unsubscribe intents per connection.
type feed struct {
	Logger *logger.Logger

	market   *market
	codec    *transport.Codec
	period   time.Duration
	upgrader websocket.Upgrader
	now      func() time.Time
}

func newFeed(m *market, period time.Duration, log *logger.Logger) *feed {
	return &feed{
		Logger: log,
		market: m,
		codec:  transport.NewCodec(),
		period: period,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// -----------------------------------------------------------------------------

func (f *feed) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/v3/klines", f.getKlines)
	r.GET("/api/v3/ticker/24hr", f.getTicker)
	r.GET("/ws", f.handlePush)
	return r
}

// -----------------------------------------------------------------------------

func binanceError(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": code, "msg": msg})
}

// -----------------------------------------------------------------------------

func (f *feed) getKlines(c *gin.Context) {
	symbol := models.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		binanceError(c, -1121, "Invalid symbol.")
		return
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			binanceError(c, -1100, "Illegal characters found in parameter 'limit'.")
			return
		}
		limit = n
	}

	candles, ok := f.market.History(symbol, c.Query("interval"), limit, f.now())
	if !ok {
		binanceError(c, -1120, "Invalid interval.")
		return
	}

	d, _ := utils.IntervalDuration(c.Query("interval"))
	rows := make([][]any, 0, len(candles))
	for _, k := range candles {
		rows = append(rows, []any{
			k.Time,
			k.Open.String(),
			k.High.String(),
			k.Low.String(),
			k.Close.String(),
			k.Volume.String(),
			k.Time + d.Milliseconds() - 1,
		})
	}
	c.JSON(http.StatusOK, rows)
}

// -----------------------------------------------------------------------------

func (f *feed) getTicker(c *gin.Context) {
	symbol := models.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		binanceError(c, -1121, "Invalid symbol.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"lastPrice": f.market.Price(symbol).String(),
		"closeTime": f.now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------
// Push channel
// -----------------------------------------------------------------------------

// subscriptions is the server-side view of one connection. It is dropped
// with the connection, so clients must re-subscribe after reconnecting.
type subscriptions struct {
	mu   sync.Mutex
	keys models.KeySet
}

func (s *subscriptions) apply(in transport.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Action == transport.ActionSubscribe {
		s.keys[in.Key()] = struct{}{}
	} else {
		delete(s.keys, in.Key())
	}
}

func (s *subscriptions) list() []models.SubscriptionKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Sorted()
}

// -----------------------------------------------------------------------------

func (f *feed) handlePush(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.Logger.Error("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	subs := &subscriptions{keys: models.NewKeySet()}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			intent, err := f.codec.DecodeIntent(data)
			if err != nil {
				f.Logger.Warning("Ignoring bad intent: %v", err)
				continue
			}
			subs.apply(intent)
			f.Logger.Debug("%s %s", intent.Action, intent.Key())
		}
	}()

	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := f.push(conn, subs.list()); err != nil {
				f.Logger.Debug("Push connection closed: %v", err)
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// push moves every subscribed symbol once and sends one frame per key.
func (f *feed) push(conn *websocket.Conn, keys []models.SubscriptionKey) error {
	now := f.now()
	moved := make(map[string]bool)

	for _, key := range keys {
		if !moved[key.Symbol] {
			f.market.Step(key.Symbol)
			moved[key.Symbol] = true
		}

		var frame []byte
		var err error
		if key.Channel == models.ChannelKline {
			candle, ok := f.market.Candle(key.Symbol, key.Interval, now)
			if !ok {
				continue
			}
			frame, err = transport.EncodeKline(key.Symbol, key.Interval, candle)
		} else {
			frame, err = transport.EncodeTick(key.Symbol, f.market.Price(key.Symbol), now)
		}
		if err != nil {
			return err
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
	}
	return nil
}
