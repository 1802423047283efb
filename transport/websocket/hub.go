package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Per-client outbound buffer. A subscriber that falls this far behind
	// is dropped so it cannot stall the channel.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients are VR headsets and browser tooling on arbitrary origins.
		return true
	},
}

// PayloadKey selects which envelope field carries a relayed payload. The
// game channel relays under "event", the chat channel under "message".
type PayloadKey string

const (
	KeyEvent   PayloadKey = "event"
	KeyMessage PayloadKey = "message"
)

// Envelope is the frame relayed to every subscriber of a channel. Exactly
// one of Event or Message is set, depending on the channel's payload key.
type Envelope struct {
	From    string          `json:"from"`
	Event   json.RawMessage `json:"event,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// outbound pairs an already-marshaled frame with its target channel.
type outbound struct {
	channel string
	data    []byte
}

// Client is one live connection, bound to a single channel for its
// lifetime. It is owned by its read/write pumps; the hub only references
// it through the channel's subscriber set.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	channel string
	key     PayloadKey
}

// Hub maintains the per-channel subscriber sets and fans relayed frames
// out to them. A single run loop serializes registration, removal, and
// broadcast, which gives per-channel FIFO delivery for free.
type Hub struct {
	// Subscribers by channel name. Touched only by the run loop;
	// cross-goroutine reads go through counts.
	channels map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	counts *channelCounts
	logger *zap.Logger
}

// NewHub creates a new hub. Call Run in its own goroutine before serving
// connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		channels:   make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     newChannelCounts(),
		logger:     logger,
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.broadcast:
			h.broadcastFrame(out)
		}
	}
}

// ServeWS upgrades the request and binds the connection to a channel.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channel string, key PayloadKey) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		channel: channel,
		key:     key,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Relay wraps a raw client payload in the server envelope and queues it
// for delivery to every current subscriber of the channel. Payloads are
// opaque: valid JSON passes through untouched, anything else is relayed
// as a JSON string.
func (h *Hub) Relay(channel string, key PayloadKey, payload []byte) {
	data, err := marshalEnvelope(key, payload)
	if err != nil {
		h.logger.Error("failed to marshal relay envelope", zap.Error(err))
		return
	}
	h.broadcast <- outbound{channel: channel, data: data}
}

// ChannelCounts reports the current subscriber count per channel.
func (h *Hub) ChannelCounts() map[string]int {
	return h.counts.snapshot()
}

// registerClient adds a client to its channel's subscriber set, creating
// the channel entry on first subscribe.
func (h *Hub) registerClient(client *Client) {
	if h.channels[client.channel] == nil {
		h.channels[client.channel] = make(map[*Client]bool)
	}
	h.channels[client.channel][client] = true
	h.counts.set(client.channel, len(h.channels[client.channel]))

	h.logger.Info("client subscribed",
		zap.String("channel", client.channel),
		zap.Int("subscribers", len(h.channels[client.channel])))
}

// unregisterClient removes a client from its channel. Removing a client
// that is already gone is a no-op; disconnect cleanup may race with a
// broadcast-time drop and both paths land here.
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.channels[client.channel]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	h.counts.set(client.channel, len(clients))

	if len(clients) == 0 {
		delete(h.channels, client.channel)
	}

	h.logger.Info("client unsubscribed",
		zap.String("channel", client.channel),
		zap.Int("subscribers", len(clients)))
}

// broadcastFrame delivers a frame to every subscriber of the target
// channel. Delivery is best-effort per subscriber: a client whose buffer
// is full is dropped, and the rest still receive the frame.
func (h *Hub) broadcastFrame(out outbound) {
	clients, ok := h.channels[out.channel]
	if !ok {
		return
	}

	var dropped []*Client
	for client := range clients {
		select {
		case client.send <- out.data:
		default:
			dropped = append(dropped, client)
		}
	}

	for _, client := range dropped {
		h.logger.Warn("dropping slow subscriber", zap.String("channel", out.channel))
		h.unregisterClient(client)
	}
}

// readPump pumps messages from the connection into the hub. It owns the
// connection's subscription lifecycle: whatever ends the loop, the
// deferred unregister runs.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error",
					zap.String("channel", c.channel),
					zap.Error(err))
			}
			break
		}

		c.hub.Relay(c.channel, c.key, payload)
	}
}

// writePump pumps frames from the hub to the connection, one websocket
// message per frame, and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped this client.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// marshalEnvelope builds the relay frame for a payload under the given
// key. Non-JSON input is preserved by quoting it as a JSON string.
func marshalEnvelope(key PayloadKey, payload []byte) ([]byte, error) {
	raw := json.RawMessage(payload)
	if !json.Valid(payload) {
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			return nil, err
		}
		raw = quoted
	}

	env := Envelope{From: "server"}
	switch key {
	case KeyMessage:
		env.Message = raw
	default:
		env.Event = raw
	}
	return json.Marshal(env)
}
