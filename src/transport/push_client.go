package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 1 << 20
	eventBuffer      = 1024
)

// Options tune the reconnect and keepalive behaviour of PushClient.
type Options struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingPeriod        time.Duration
}

// OptionsFromConfig converts the backend section of the config.
func OptionsFromConfig(cfg models.MBackendConfig) Options {
	return Options{
		ReconnectDelay:    time.Duration(cfg.ReconnectDelaySeconds) * time.Second,
		MaxReconnectDelay: time.Duration(cfg.MaxReconnectDelaySeconds) * time.Second,
		PingPeriod:        time.Duration(cfg.PingSeconds) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// PushClient is the WebSocket implementation of IPushTransport.
// It keeps reconnecting until its context is cancelled; the server forgets
// every subscription on disconnect, so consumers re-subscribe on Connected.
type PushClient struct {
	URL    string
	Logger *logger.Logger

	opts  Options
	codec *Codec

	mu   sync.Mutex
	conn *websocket.Conn

	events    chan models.MPushEvent
	connected chan struct{}
}

// -----------------------------------------------------------------------------

func NewPushClient(url string, opts Options, log *logger.Logger) *PushClient {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.MaxReconnectDelay < opts.ReconnectDelay {
		opts.MaxReconnectDelay = opts.ReconnectDelay
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 15 * time.Second
	}

	return &PushClient{
		URL:       url,
		Logger:    log,
		opts:      opts,
		codec:     NewCodec(),
		events:    make(chan models.MPushEvent, eventBuffer),
		connected: make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

func (c *PushClient) Events() <-chan models.MPushEvent {
	return c.events
}

func (c *PushClient) Connected() <-chan struct{} {
	return c.connected
}

// -----------------------------------------------------------------------------

// Subscribe sends a subscribe intent. It fails with a NetworkError while the
// channel is down; the intent is not queued.
func (c *PushClient) Subscribe(key models.SubscriptionKey) error {
	return c.send(ActionSubscribe, key)
}

// Unsubscribe sends an unsubscribe intent.
func (c *PushClient) Unsubscribe(key models.SubscriptionKey) error {
	return c.send(ActionUnsubscribe, key)
}

func (c *PushClient) send(action string, key models.SubscriptionKey) error {
	data, err := c.codec.EncodeIntent(action, key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return helpers.NewNetworkError("push channel disconnected, cannot "+action+" "+key.String(), nil)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return helpers.NewNetworkError("failed to "+action+" "+key.String(), err)
	}
	c.Logger.Debug("Sent %s %s", action, key)
	return nil
}

// -----------------------------------------------------------------------------

// Start connects in the background and keeps reconnecting with exponential
// backoff until ctx is cancelled.
func (c *PushClient) Start(ctx context.Context, wg *sync.WaitGroup) error {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.run(ctx)
	}()
	return nil
}

// -----------------------------------------------------------------------------

func (c *PushClient) run(ctx context.Context) {
	delay := c.opts.ReconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.Logger.Warning("Push channel connect failed: %v (retry in %v)", err, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.opts.MaxReconnectDelay {
				delay = c.opts.MaxReconnectDelay
			}
			continue
		}

		delay = c.opts.ReconnectDelay
		c.Logger.Info("Push channel connected to %s", c.URL)
		c.setConn(conn)
		c.notifyConnected()

		c.serve(ctx, conn)

		c.setConn(nil)
		conn.Close()
		if ctx.Err() == nil {
			c.Logger.Warning("Push channel lost, reconnecting")
		}
	}
}

// -----------------------------------------------------------------------------

func (c *PushClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *PushClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// notifyConnected coalesces notifications the consumer has not read yet.
func (c *PushClient) notifyConnected() {
	select {
	case c.connected <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// serve reads frames until the connection fails or ctx is cancelled.
func (c *PushClient) serve(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	pongWait := c.opts.PingPeriod * 2
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(c.opts.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					c.Logger.Debug("Ping failed: %v", err)
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				c.Logger.Warning("Push channel read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		event, err := c.codec.DecodeEvent(data)
		if err != nil {
			c.Logger.Warning("Skipping malformed push frame: %v", err)
			continue
		}

		select {
		case c.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
