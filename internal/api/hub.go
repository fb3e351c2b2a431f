/*
Package api
File: hub.go
Description:
    The WebSocket Hub is the real-time layer of the harbor server.

    It keeps a registry of connected clients (renderers, dashboards, remote
    controllers) and fans out messages published by the frame loop: periodic
    "frame" snapshots of every ship and "ship_arrived" events.

    Clients may also send commands ("move", "depart") over the same socket.
    The Hub decodes the envelope and hands it to the CommandHandler; errors
    are answered to the sending client only.

    Architecture:
    - Hub: The single manager goroutine (Run).
    - Client: One socket connection with its read/write pumps.
    - ServeWs: The HTTP handler that upgrades a GET request to a WebSocket.
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Message defines the standard JSON envelope for all real-time communication.
type Message struct {
	Type    string `json:"type"`    // Event type ("frame", "ship_arrived", "error", ...)
	Payload any    `json:"payload"` // The actual data
	Sender  string `json:"sender"`  // ID of the origin ("harbor" or a client-chosen id)
}

// Command is an inbound client message. Payload is decoded by the handler.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Sender  string          `json:"sender"`
}

// CommandHandler executes a client command. A non-nil error is sent back
// to that client as an "error" message.
type CommandHandler func(cmd Command) error

// Client represents a single socket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered channel for outbound messages
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	// Outbound messages for every client.
	Broadcast chan []byte

	direct     chan directMessage
	register   chan *Client
	unregister chan *Client

	handler CommandHandler
	logger  *log.Logger
}

// NewHub creates a Hub. Run it in its own goroutine: `go hub.Run()`.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.WithPrefix("ws"),
	}
}

// SetHandler installs the function that executes inbound commands.
// Call it before Run.
func (h *Hub) SetHandler(fn CommandHandler) {
	h.handler = fn
}

// Run is the main event loop for the Hub. It blocks.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client disconnected", "clients", len(h.clients))
			}

		case m := <-h.direct:
			if _, ok := h.clients[m.client]; ok {
				h.deliver(m.client, m.data)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues data for one client, dropping clients that stopped reading.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("dropping slow client")
	}
}

// Publish encodes and broadcasts a message without blocking. When the
// broadcast queue is full the message is dropped; the next frame supersedes it.
func (h *Hub) Publish(msgType string, payload any) error {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Sender: "harbor"})
	if err != nil {
		return err
	}
	select {
	case h.Broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping message", "type", msgType)
	}
	return nil
}

// reply sends a message to a single client.
func (h *Hub) reply(c *Client, msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Sender: "harbor"})
	if err != nil {
		h.logger.Error("encoding reply", "err", err)
		return
	}
	select {
	case h.direct <- directMessage{client: c, data: data}:
	default:
		h.logger.Warn("reply queue full, dropping message", "type", msgType)
	}
}

// handle decodes one inbound frame and runs it.
func (h *Hub) handle(c *Client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		h.reply(c, "error", map[string]string{"error": "malformed message"})
		return
	}
	if h.handler == nil {
		return
	}
	if err := h.handler(cmd); err != nil {
		h.logger.Debug("command failed", "type", cmd.Type, "sender", cmd.Sender, "err", err)
		h.reply(c, "error", map[string]string{"command": cmd.Type, "error": err.Error()})
	}
}

// upgrader configures the WebSocket handshake.
// CheckOrigin accepts any host; the server is meant for local tooling.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and starts the client's pumps.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("upgrade failed", "err", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps commands from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("read error", "err", err)
			}
			break
		}
		c.hub.handle(c, message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
