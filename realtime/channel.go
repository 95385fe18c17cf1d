package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signcast/logger"
)

// Status is the observable connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	// StatusFailed means the reconnect attempt budget is exhausted. A new
	// Connect call starts over.
	StatusFailed Status = "failed"
)

// Backoff computes capped exponential reconnect delays.
type Backoff struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int

	attempt int
}

// Next returns the delay before the next attempt, or false when the attempt
// budget is exhausted.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.MaxAttempts > 0 && b.attempt >= b.MaxAttempts {
		return 0, false
	}
	d := b.Base << b.attempt
	if d > b.Cap || d <= 0 {
		d = b.Cap
	}
	b.attempt++
	return d, true
}

// Reset clears the attempt counter after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns how many reconnect attempts have been consumed.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Subscription is a disposable handler registration. Close it when leaving
// a playlist view so handlers do not leak.
type Subscription struct {
	once  sync.Once
	close func()
}

// Close removes the handler.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// NewSubscription wraps a cleanup function in a handle. Alternate Transport
// implementations use it to satisfy the store's subscribe contract.
func NewSubscription(onClose func()) *Subscription {
	if onClose == nil {
		onClose = func() {}
	}
	return &Subscription{close: onClose}
}

// Channel maintains one websocket connection to the realtime backend,
// multiplexes per-playlist rooms over it, and delivers room events to
// subscribers in the order the server emitted them. A single dispatch
// goroutine (the read pump) guarantees per-room ordering.
type Channel struct {
	url string

	mu         sync.RWMutex
	conn       *websocket.Conn
	status     Status
	rooms      map[string]bool
	eventSubs  map[int]func(*Event)
	statusSubs map[int]func(Status)
	nextSubID  int
	closed     bool

	backoff Backoff
	send    chan *Event
	done    chan struct{}
}

// NewChannel creates a channel for the given websocket URL.
func NewChannel(url string, backoff Backoff) *Channel {
	return &Channel{
		url:        url,
		status:     StatusDisconnected,
		rooms:      make(map[string]bool),
		eventSubs:  make(map[int]func(*Event)),
		statusSubs: make(map[int]func(Status)),
		backoff:    backoff,
		send:       make(chan *Event, 64),
		done:       make(chan struct{}),
	}
}

// Connect dials the backend and starts the read/write pumps. On dial
// failure the channel stays disconnected and the error is returned; the
// reconnect loop only guards established connections.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("channel is closed")
	}
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	if !c.attach(conn) {
		return fmt.Errorf("channel is closed")
	}
	return nil
}

// Close tears the channel down. Terminal: the channel cannot be reused.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe registers an event handler for all joined rooms.
func (c *Channel) Subscribe(fn func(*Event)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.eventSubs[id] = fn
	return &Subscription{close: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.eventSubs, id)
	}}
}

// OnStatus registers a connection-status observer for UI indicators.
func (c *Channel) OnStatus(fn func(Status)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.statusSubs[id] = fn
	return &Subscription{close: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.statusSubs, id)
	}}
}

// JoinRoom subscribes to a playlist's room. Rooms are re-joined
// automatically after a reconnect.
func (c *Channel) JoinRoom(playlistID string) {
	c.mu.Lock()
	c.rooms[playlistID] = true
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if connected {
		c.enqueue(&Event{Type: EventJoinRoom, PlaylistID: playlistID, Timestamp: time.Now().UnixMilli()})
	}
}

// LeaveRoom unsubscribes from a playlist's room.
func (c *Channel) LeaveRoom(playlistID string) {
	c.mu.Lock()
	delete(c.rooms, playlistID)
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if connected {
		c.enqueue(&Event{Type: EventLeaveRoom, PlaylistID: playlistID, Timestamp: time.Now().UnixMilli()})
	}
}

// Emit publishes an outbound event to the event's room.
func (c *Channel) Emit(ev *Event) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	return c.enqueue(ev)
}

func (c *Channel) enqueue(ev *Event) error {
	select {
	case c.send <- ev:
		return nil
	default:
		logger.Warn("send buffer full, dropping event",
			logger.String("type", string(ev.Type)),
			logger.String("playlist", ev.PlaylistID))
		return fmt.Errorf("send buffer full")
	}
}

func (c *Channel) setStatus(s Status) {
	c.mu.Lock()
	c.setStatusLocked(s)
	c.mu.Unlock()
}

// setStatusLocked requires c.mu held. Observers are notified outside the
// lock so they may call back into the channel.
func (c *Channel) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	subs := make([]func(Status), 0, len(c.statusSubs))
	for _, fn := range c.statusSubs {
		subs = append(subs, fn)
	}
	go func() {
		for _, fn := range subs {
			fn(s)
		}
	}()
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// attach binds a live connection and starts its pumps. A dial that completes
// after Close loses the race: the connection is discarded and the channel
// stays down.
func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	c.backoff.Reset()
	c.setStatusLocked(StatusConnected)
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	for _, r := range rooms {
		c.enqueue(&Event{Type: EventJoinRoom, PlaylistID: r, Timestamp: time.Now().UnixMilli()})
	}

	stop := make(chan struct{})
	go c.writePump(conn, stop)
	go c.readPump(conn, stop)
	return true
}

// readPump is the single dispatch goroutine: events reach subscribers
// serially, preserving per-room server order.
func (c *Channel) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer close(stop)

	conn.SetReadLimit(65536)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err))
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("invalid event payload", logger.ErrorField(err))
			continue
		}
		if ev.IsControl() {
			continue
		}
		c.dispatch(&ev)
	}

	conn.Close()

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	go c.reconnect()
}

func (c *Channel) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("websocket write error", logger.ErrorField(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		case <-c.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Channel) dispatch(ev *Event) {
	c.mu.RLock()
	subs := make([]func(*Event), 0, len(c.eventSubs))
	for _, fn := range c.eventSubs {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// reconnect retries the dial with capped exponential backoff until it
// succeeds, the attempt budget runs out, or the channel is closed.
func (c *Channel) reconnect() {
	if c.isClosed() {
		return
	}
	c.setStatus(StatusReconnecting)

	for {
		c.mu.Lock()
		delay, ok := c.backoff.Next()
		attempt := c.backoff.Attempt()
		c.mu.Unlock()

		if !ok {
			if c.isClosed() {
				return
			}
			logger.Error("reconnect attempts exhausted")
			c.setStatus(StatusFailed)
			return
		}

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			logger.Warn("reconnect attempt failed",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.ErrorField(err))
			continue
		}

		if !c.attach(conn) {
			return
		}
		logger.Info("reconnected", logger.Int("attempts", attempt))
		return
	}
}
