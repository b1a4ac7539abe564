package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
	eventBuffer    = 256
)

// Services are the use cases a connection drives.
type Services struct {
	Chat          *usecase.ChatUseCase
	Delivery      *usecase.DeliveryUseCase
	Presence      *usecase.PresenceUseCase
	Typing        *usecase.TypingDebouncer
	Reactions     *usecase.ReactionUseCase
	Notifications *usecase.NotificationUseCase
}

// Client is one websocket connection. Everything that touches its
// conversations runs on the client's own event loop.
type Client struct {
	Session entity.Session
	Conn    *websocket.Conn
	Send    chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	done   chan struct{}
	stop   sync.Once

	// owned by the event loop
	conversations map[string]*joined
	nextJoin      uint64
	watchers      stream.Group
}

type joined struct {
	id        uint64
	session   *usecase.ConversationSession
	reactions stream.Group
	watching  map[string]struct{}
}

// close must not run on the event loop.
func (j *joined) close() {
	j.session.Close()
	j.reactions.Cancel()
}

func NewClient(session entity.Session, conn *websocket.Conn) *Client {
	return &Client{
		Session:       session,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		events:        make(chan func(), eventBuffer),
		done:          make(chan struct{}),
		conversations: make(map[string]*joined),
	}
}

func (c *Client) UserID() string {
	return c.Session.UserID
}

// enqueue schedules f on the client's event loop. It gives up once the
// client is gone.
func (c *Client) enqueue(f func()) bool {
	select {
	case c.events <- f:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) loop() {
	for {
		select {
		case f := <-c.events:
			f()
		case <-c.done:
			return
		}
	}
}

// shutdown cancels every conversation and watcher of the client.
func (c *Client) shutdown() {
	c.stop.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// Manager manages all active WebSocket connections
type Manager struct {
	services   Services
	clients    map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager(services Services) *Manager {
	return &Manager{
		services:   services,
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.register(ctx, client)

			case client := <-m.Unregister:
				m.unregister(client)

			case <-ctx.Done():
				m.mutex.Lock()
				clients := m.clients
				m.clients = make(map[*Client]struct{})
				m.mutex.Unlock()
				for client := range clients {
					client.shutdown()
				}
				return
			}
		}
	}()
}

func (m *Manager) register(ctx context.Context, client *Client) {
	client.ctx, client.cancel = context.WithCancel(ctx)

	m.mutex.Lock()
	m.clients[client] = struct{}{}
	m.mutex.Unlock()

	go client.loop()
	client.enqueue(func() { m.onConnect(client) })
	logger.Info("Client registered: %s", client.UserID())
}

func (m *Manager) unregister(client *Client) {
	m.mutex.Lock()
	_, ok := m.clients[client]
	delete(m.clients, client)
	remaining := m.connectionsLocked(client.UserID())
	m.mutex.Unlock()
	if !ok {
		return
	}

	client.enqueue(func() { m.onDisconnect(client, remaining == 0) })
	logger.Info("Client unregistered: %s", client.UserID())
}

func (m *Manager) connectionsLocked(userID string) int {
	n := 0
	for c := range m.clients {
		if c.UserID() == userID {
			n++
		}
	}
	return n
}

// ConnectedUsers is the number of distinct users with an open connection.
func (m *Manager) ConnectedUsers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	seen := make(map[string]struct{})
	for c := range m.clients {
		seen[c.UserID()] = struct{}{}
	}
	return len(seen)
}

// send queues an event for the write pump, dropping it when the client is
// too slow to keep up.
func (c *Client) send(eventType string, peerID string, data interface{}) {
	payload, err := json.Marshal(WSMessage{
		Type:      eventType,
		PeerID:    peerID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("WebSocket: failed to encode %s event for %s: %v", eventType, c.UserID(), err)
		return
	}

	select {
	case c.Send <- payload:
	case <-c.done:
	default:
		logger.Warn("WebSocket: send buffer full for %s, dropping %s event", c.UserID(), eventType)
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-c.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.UserID(), err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.UserID(), err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
