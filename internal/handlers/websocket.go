package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type   string      `json:"type"`
	Player string      `json:"player,omitempty"`
	Data   interface{} `json:"data"`

	to *Client
}

type Client struct {
	Identity string
	Conn     *websocket.Conn
	send     chan *Message
}

// WebSocketHub pushes committed casino events to connected sockets. Events
// that concern one player go to that player's sockets, casino wide events go
// to everyone.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

func NewWebSocketHub() *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return hub
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

func (hub *WebSocketHub) BroadcastEvent(ctx context.Context, event *models.CasinoEvent) {
	msg := &Message{Type: string(event.Type), Data: event}
	if isPlayerEvent(event.Type) {
		msg.Player = event.Player
	}

	select {
	case hub.broadcast <- msg:
	default:
		logger.Warn(ctx).Str("event", string(event.Type)).Msg("websocket broadcast queue full, dropping event")
	}
}

func isPlayerEvent(t models.EventType) bool {
	switch t {
	case models.EventBetPlaced, models.EventSessionResolved, models.EventPayoutClaimed, models.EventSessionRefunded:
		return true
	}
	return false
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			conns, ok := hub.clients[client.Identity]
			if !ok {
				conns = make(map[*Client]struct{})
				hub.clients[client.Identity] = conns
			}
			conns[client] = struct{}{}
			logger.Global().Debug().Str("identity", client.Identity).Msg("websocket client registered")

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	conns, ok := hub.clients[client.Identity]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(hub.clients, client.Identity)
	}
	logger.Global().Debug().Str("identity", client.Identity).Msg("websocket client unregistered")
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.to != nil {
		if _, ok := hub.clients[message.to.Identity][message.to]; ok {
			hub.deliver(message.to, message)
		}
		return
	}
	if message.Player != "" {
		for client := range hub.clients[message.Player] {
			hub.deliver(client, message)
		}
		return
	}
	for _, conns := range hub.clients {
		for client := range conns {
			hub.deliver(client, message)
		}
	}
}

// deliver drops a client whose buffer is full rather than block the hub.
func (hub *WebSocketHub) deliver(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		hub.remove(client)
	}
}

type WebSocketHandler struct {
	engine *services.CasinoEngine
	hub    *WebSocketHub
}

func NewWebSocketHandler(engine *services.CasinoEngine, hub *WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{engine: engine, hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	identity := c.GetString("identity")
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to upgrade to websocket")
		return
	}

	client := &Client{
		Identity: identity,
		Conn:     conn,
		send:     make(chan *Message, clientSendSize),
	}

	h.hub.register <- client
	go client.writePump()

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(ctx, client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn(ctx).Err(err).Msg("websocket read failed")
			}
			return
		}

		switch msg.Type {
		case "PING":
			h.hub.broadcast <- &Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
				to:   client,
			}
		case "BALANCE":
			h.sendBalance(ctx, client)
		}
	}
}

func (h *WebSocketHandler) sendBalance(ctx context.Context, client *Client) {
	balance, err := h.engine.Balance(ctx, client.Identity)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to get balance for websocket")
		return
	}

	h.hub.broadcast <- &Message{
		Type: "BALANCE_UPDATE",
		Data: models.BalanceResponse{
			Identity:  client.Identity,
			Balance:   balance,
			Formatted: models.FormatLamports(balance),
		},
		to: client,
	}
}

func (c *Client) writePump() {
	for msg := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
