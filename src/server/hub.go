package server

import (
	"context"
	"net/http"
	"time"

	"market-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *ViewServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))
			// Bring the new renderer up to date
			for _, update := range s.snapshotFor() {
				select {
				case client.send <- update:
				default:
				}
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connections.Store(int64(len(s.clients)))
			}

		case r := <-s.reply:
			if _, ok := s.clients[r.client]; ok {
				select {
				case r.client.send <- r.update:
				default:
				}
			}

		case update := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- update:
				default:
					// Slow consumer: drop it rather than block the hub
					s.Logger.Warning("Dropping slow client %s", client.id)
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.connections.Store(int64(len(s.clients)))
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues one view update for every connected browser.
func (s *ViewServer) Broadcast(update *models.MViewUpdate) {
	s.latestUpdate.Store(update.Timestamp)
	select {
	case s.broadcast <- update:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *ViewServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		send: make(chan *models.MViewUpdate, sendQueue),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}
	s.Logger.Debug("Client %s connected", client.id)

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a browser command. Only "navigate" is known.
func (s *ViewServer) HandleClientMessage(client *Client, cmd models.MViewCommand) {
	if cmd.Command != "navigate" || s.session == nil {
		return
	}

	if _, err := s.navigate(context.Background(), cmd); err != nil {
		update := &models.MViewUpdate{Type: models.UpdateError, Message: err.Error(), Timestamp: time.Now().UnixMilli()}
		select {
		case s.reply <- clientReply{client: client, update: update}:
		case <-s.quit:
		}
	}
}
