package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Commands are the refresh triggers a client may send over the socket.
type Commands interface {
	Manual() bool
	Foreground(visible bool) bool
}

type ViewFunc func() models.PortfolioView

type Client struct {
	Manager *Manager
	Conn    *websocket.Conn
	ID      uuid.UUID
	Send    chan []byte
}

func NewClient(manager *Manager, conn *websocket.Conn) *Client {
	return &Client{
		Manager: manager,
		Conn:    conn,
		ID:      uuid.New(),
		Send:    make(chan []byte, sendBuffer),
	}
}

// Manager fans the current portfolio view out to every connected client.
type Manager struct {
	clients    map[uuid.UUID]*Client
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	log        *slog.Logger
	done       chan struct{}
	view       ViewFunc
	commands   Commands
}

func NewManager(log *slog.Logger, view ViewFunc, commands Commands) *Manager {
	return &Manager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
		view:       view,
		commands:   commands,
	}
}

func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			m.log.Info("Manager run loop stopping...")
			return
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		}
	}
}

// Register reports false when the manager has already stopped.
func (m *Manager) Register(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast sends view to every client. Slow clients miss the update instead of
// blocking the caller.
func (m *Manager) Broadcast(view models.PortfolioView) {
	payload, err := json.Marshal(view)
	if err != nil {
		m.log.Error("failed to marshal portfolio view", "error", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, client := range m.clients {
		select {
		case client.Send <- payload:
		default:
			m.log.Warn("client send channel is full, dropping message", "clientID", id)
		}
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

func (m *Manager) registerClient(client *Client) {
	m.mu.Lock()
	m.clients[client.ID] = client
	m.mu.Unlock()

	m.log.Info("new client registered", "clientID", client.ID)

	payload, err := json.Marshal(m.view())
	if err != nil {
		m.log.Error("failed to marshal portfolio view", "error", err)
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		m.log.Info("client unregistered", "clientID", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		delete(m.clients, id)
		close(client.Send)
	}
}

type clientMessage struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

func (m *Manager) handleMessage(client *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.log.Warn("failed to parse client message", "clientID", client.ID, "error", err)
		return
	}

	switch msg.Type {
	case "refresh":
		m.commands.Manual()
	case "visibility":
		m.commands.Foreground(msg.Visible)
	default:
		m.log.Warn("unknown client message type", "clientID", client.ID, "type", msg.Type)
	}
}

func (c *Client) Writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Manager.log.Warn("failed to write message to client", "clientID", c.ID)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) Reader() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.log.Warn("unexpected close error", "clientID", c.ID, "error", err)
			}
			break
		}
		c.Manager.handleMessage(c, message)
	}
}
