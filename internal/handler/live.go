package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dan9191/fee-registry/internal/controller"
	"github.com/Dan9191/fee-registry/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is the envelope exchanged over the live socket.
type Message struct {
	Type    string           `json:"type"`
	Search  string           `json:"search,omitempty"`
	Payload *controller.View `json:"payload,omitempty"`
}

// Client is one connected browser with its own search term.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	search string // owned by the hub goroutine
}

type searchRequest struct {
	client *Client
	term   string
}

// Hub fans controller states out to every client, rendered with that client's search.
type Hub struct {
	clients    map[*Client]struct{}
	states     chan controller.State
	searches   chan searchRequest
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	state   controller.State
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewHub creates a hub starting from the given state.
func NewHub(initial controller.State, m *metrics.Metrics, log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		states:     make(chan controller.State, 16),
		searches:   make(chan searchRequest),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		state:      initial,
		metrics:    m,
		log:        log,
	}
}

// Publish hands a new state to the hub. It is safe to pass as a controller listener.
func (h *Hub) Publish(s controller.State) {
	select {
	case h.states <- s:
	case <-h.done:
	}
}

// Run serves hub events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer func() {
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.metrics.LiveClients.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.LiveClients.Set(float64(len(h.clients)))
			h.log.WithField("clients", len(h.clients)).Info("Live client registered")
			h.push(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.metrics.LiveClients.Set(float64(len(h.clients)))
			h.log.WithField("clients", len(h.clients)).Info("Live client unregistered")

		case s := <-h.states:
			if s.Version < h.state.Version {
				continue
			}
			h.state = s
			for c := range h.clients {
				h.push(c)
			}

		case req := <-h.searches:
			if _, ok := h.clients[req.client]; !ok {
				continue
			}
			req.client.search = req.term
			h.push(req.client)
		}
	}
}

func (h *Hub) push(c *Client) {
	view := controller.Render(h.state, c.search)
	data, err := json.Marshal(Message{Type: "view", Payload: &view})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal live view")
		return
	}
	select {
	case c.send <- data:
	default:
		// slow client; drop it rather than stall everyone else
		delete(h.clients, c)
		close(c.send)
		h.metrics.LiveClients.Set(float64(len(h.clients)))
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("Unexpected websocket close error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.WithError(err).Debug("Ignoring malformed live message")
			continue
		}
		if msg.Type != "search" {
			continue
		}
		select {
		case c.hub.searches <- searchRequest{client: c, term: msg.Search}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.log.WithError(err).Warn("Failed to write to websocket")
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// ServeWS upgrades the request and attaches the connection to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 32),
		search: r.URL.Query().Get("search"),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
