package server

import (
	"time"

	"market-sync/src/models"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	idleTimeout    = 60 * time.Second
	pingEvery      = idleTimeout / 2
	maxCommandSize = 64 * 1024
	sendQueue      = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one browser tab. The hub loop owns send and closes it on unregister.
type Client struct {
	id   string
	hub  *ViewServer
	conn *websocket.Conn
	send chan *models.MViewUpdate
}

// clientReply is an update meant for a single client.
type clientReply struct {
	client *Client
	update *models.MViewUpdate
}

// -----------------------------------------------------------------------------

func (c *Client) touch() {
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
}

// -----------------------------------------------------------------------------

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.quit:
	}
	c.conn.Close()
	c.hub.Logger.Debug("Client %s disconnected", c.id)
}

// -----------------------------------------------------------------------------
// readPump - decodes browser commands; the read deadline doubles as the
// liveness check (pongs push it forward)
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxCommandSize)
	c.touch()
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		_, r, err := c.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error from %s: %v", c.id, err)
			}
			return
		}

		var cmd models.MViewCommand
		if err := json.NewDecoder(r).Decode(&cmd); err != nil {
			c.hub.Logger.Info("Bad command from %s: %v, disconnecting client", c.id, err)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid command"),
				time.Now().Add(writeWait))
			return
		}
		c.touch()
		c.hub.HandleClientMessage(c, cmd)
	}
}

// -----------------------------------------------------------------------------
// writePump - sole writer of data frames; flushes whatever is queued behind
// the first update before waiting again
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := c.write(update); err != nil {
				c.hub.Logger.Info("Write to %s failed: %v", c.id, err)
				return
			}
			for n := len(c.send); n > 0; n-- {
				next, ok := <-c.send
				if !ok {
					return
				}
				if err := c.write(next); err != nil {
					c.hub.Logger.Info("Write to %s failed: %v", c.id, err)
					return
				}
			}

		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Client) write(update *models.MViewUpdate) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(update)
}
