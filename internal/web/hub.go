package web

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/store"
)

// ErrHubStopped is returned by Attach once Run has returned.
var ErrHubStopped = errors.New("config hub stopped")

// Client is one WebSocket connection following config snapshots
type Client struct {
	ID     string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *ConfigHub
	mu     sync.Mutex
	closed bool
}

// ConfigHub fans store snapshots out to connected browsers
type ConfigHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan store.Snapshot
	done       chan struct{}
	mu         sync.RWMutex
	log        *logrus.Entry
}

// snapshotMessage is the JSON frame pushed to clients
type snapshotMessage struct {
	Type     string                 `json:"type"`
	Revision uint64                 `json:"revision"`
	Changed  []string               `json:"changed,omitempty"`
	Config   map[string]interface{} `json:"config"`
	Time     int64                  `json:"time"`
}

func NewConfigHub(log *logrus.Entry) *ConfigHub {
	return &ConfigHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan store.Snapshot, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub's event loop. It disconnects every client when ctx ends.
// Run must be called once.
func (h *ConfigHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case snap := <-h.broadcast:
			h.broadcastSnapshot(snap)
		}
	}
}

// Follow forwards every store write to the hub until ctx ends
func (h *ConfigHub) Follow(ctx context.Context, cs *store.ConfigStore) {
	updates, cancel := cs.Subscribe(16)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(snap)
		}
	}
}

func (h *ConfigHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.log.WithField("client", client.ID).Infof("client connected (total: %d)", len(h.clients))

	go client.writePump()
}

func (h *ConfigHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
		h.log.WithField("client", client.ID).Infof("client disconnected (total: %d)", len(h.clients))
	}
}

func (h *ConfigHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
}

func encodeSnapshot(kind string, snap store.Snapshot) ([]byte, error) {
	return json.Marshal(snapshotMessage{
		Type:     kind,
		Revision: snap.Revision,
		Changed:  snap.Changed,
		Config:   snap.Config,
		Time:     time.Now().Unix(),
	})
}

func (h *ConfigHub) broadcastSnapshot(snap store.Snapshot) {
	data, err := encodeSnapshot("config", snap)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal config snapshot")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		select {
		case client.Send <- data:
			sent++
		default:
			h.log.WithField("client", client.ID).Warn("client send buffer full")
		}
	}
	h.log.WithField("revision", snap.Revision).Debugf("broadcast config to %d clients", sent)
}

// Broadcast queues a snapshot for every client without blocking
func (h *ConfigHub) Broadcast(snap store.Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
		h.log.WithField("revision", snap.Revision).Warn("broadcast channel full, dropping snapshot")
	}
}

// GetClientCount returns the number of connected clients
func (h *ConfigHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Attach registers conn with the hub, greets it with the current snapshot
// and starts its read pump. Once Run has returned it closes conn and fails
// with ErrHubStopped.
func (h *ConfigHub) Attach(conn *websocket.Conn, current store.Snapshot) (*Client, error) {
	client := &Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  h,
	}

	select {
	case <-h.done:
		conn.Close()
		return nil, ErrHubStopped
	default:
	}

	if data, err := encodeSnapshot("snapshot", current); err == nil {
		client.Send <- data
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil, ErrHubStopped
	}
	go client.readPump()
	return client, nil
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			if !ok {
				c.closed = true
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}

			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.log.WithError(err).WithField("client", c.ID).Debug("write failed")
				c.closed = true
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Hub.log.WithError(err).WithField("client", c.ID).Debug("ping failed")
				c.closed = true
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.Conn.Close()
}

// readPump drains the connection so pongs and close frames are processed.
// The feed is one-way; client messages are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).WithField("client", c.ID).Info("unexpected close")
			}
			break
		}
	}
}
