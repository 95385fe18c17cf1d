package mockserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"signcast/logger"
	"signcast/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one console connection. Rooms are joined per playlist via
// control frames on the same connection.
type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	rooms  map[string]bool
	closed bool
}

// broadcast asks the hub to relay an event to a room, excluding the sender.
type broadcast struct {
	roomID  string
	exclude string // client id
	message []byte
}

// Hub relays room events between connected consoles. It holds no playlist
// state; clients publish their own change events after the backend confirms
// a mutation, and the hub fans them out in arrival order per room.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	relay      chan broadcast
	done       chan struct{}
}

// NewHub creates a relay hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		relay:      make(chan broadcast, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub loop until Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			logger.Info("console connected", logger.String("client", client.id))

		case client := <-h.unregister:
			h.dropClient(client)

		case msg := <-h.relay:
			h.broadcastToRoom(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every connection.
func (h *Hub) Stop() {
	close(h.done)
}

// ServeWS upgrades an HTTP request into a hub connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &wsClient{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 64),
		rooms: make(map[string]bool),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Hub) joinRoom(roomID string, client *wsClient) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*wsClient]bool)
	}
	h.rooms[roomID][client] = true
	h.mu.Unlock()

	client.mu.Lock()
	client.rooms[roomID] = true
	client.mu.Unlock()

	logger.Info("client joined room",
		logger.String("client", client.id),
		logger.String("room", roomID))
}

func (h *Hub) leaveRoom(roomID string, client *wsClient) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	client.mu.Lock()
	delete(client.rooms, roomID)
	client.mu.Unlock()
}

func (h *Hub) dropClient(client *wsClient) {
	client.mu.Lock()
	if client.closed {
		client.mu.Unlock()
		return
	}
	client.closed = true
	rooms := make([]string, 0, len(client.rooms))
	for r := range client.rooms {
		rooms = append(rooms, r)
	}
	client.mu.Unlock()

	for _, r := range rooms {
		h.leaveRoom(r, client)
	}

	close(client.send)
	logger.Info("console disconnected", logger.String("client", client.id))
}

func (h *Hub) broadcastToRoom(msg broadcast) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.rooms[msg.roomID]))
	for c := range h.rooms[msg.roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var slow []*wsClient
	for _, c := range clients {
		if c.id == msg.exclude {
			continue
		}
		select {
		case c.send <- msg.message:
		default:
			slow = append(slow, c)
		}
	}

	// drop slow clients inline: this runs on the Run goroutine, so sending
	// to h.unregister here would block against its own receiver
	for _, c := range slow {
		h.dropClient(c)
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*wsClient]bool)
	for _, clients := range h.rooms {
		for c := range clients {
			if !seen[c] {
				seen[c] = true
				c.mu.Lock()
				if !c.closed {
					c.closed = true
					close(c.send)
				}
				c.mu.Unlock()
			}
		}
	}
	h.rooms = make(map[string]map[*wsClient]bool)
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("client", c.id))
			}
			return
		}

		var ev realtime.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			logger.Warn("invalid event from client",
				logger.ErrorField(err),
				logger.String("client", c.id))
			continue
		}

		switch ev.Type {
		case realtime.EventJoinRoom:
			c.hub.joinRoom(ev.PlaylistID, c)
		case realtime.EventLeaveRoom:
			c.hub.leaveRoom(ev.PlaylistID, c)
		default:
			// relay to the rest of the room in arrival order
			c.hub.relay <- broadcast{roomID: ev.PlaylistID, exclude: c.id, message: message}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
