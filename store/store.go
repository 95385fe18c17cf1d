// Package store owns the canonical in-memory playlist state of the
// console: the playlist list, the playlist currently being edited, per-room
// active users, and the conflict records. All mutation funnels through the
// action API; nothing outside the package writes state directly.
package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"signcast/client"
	"signcast/logger"
	"signcast/model"
	"signcast/realtime"
)

// Transport is the realtime collaborator surface the store needs. Satisfied
// by *realtime.Channel.
type Transport interface {
	JoinRoom(playlistID string)
	LeaveRoom(playlistID string)
	Subscribe(fn func(*realtime.Event)) *realtime.Subscription
	Emit(ev *realtime.Event) error
}

// Identity is attached to outbound events so collaborators can attribute
// changes.
type Identity struct {
	UserID    string
	UserEmail string
}

// Options configure a Store. Zero values fall back to the documented
// defaults.
type Options struct {
	Identity        Identity
	MutationTimeout time.Duration // default 10s
	ListTTL         time.Duration // default 5m
	EntityTTL       time.Duration // default 2m
	SearchDebounce  time.Duration // default 300ms
	PrefsPath       string        // empty disables persisted preferences
}

// Store is the playlist repository.
type Store struct {
	mu        sync.RWMutex
	api       client.API
	transport Transport
	identity  Identity
	timeout   time.Duration

	playlists   []model.Playlist
	current     *model.Playlist
	stats       *model.PlaylistStats
	screens     []model.Screen
	activeUsers map[string][]model.ActiveUser

	flags           map[string]bool
	pendingEntities map[string]int

	conflicts map[string]*ConflictRecord
	lastError string

	cache *Cache
	group singleflight.Group

	filters     model.PlaylistFilters
	pagination  model.Pagination
	searchInput string
	debouncer   *Debouncer
	prefsPath   string

	sub *realtime.Subscription
}

// NewStore builds a store over the backend API and realtime transport and
// subscribes to remote events. Persisted filter/pagination preferences are
// reloaded with the page reset to 1.
func NewStore(api client.API, transport Transport, opts Options) *Store {
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = 10 * time.Second
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = 5 * time.Minute
	}
	if opts.EntityTTL <= 0 {
		opts.EntityTTL = 2 * time.Minute
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = 300 * time.Millisecond
	}

	s := &Store{
		api:             api,
		transport:       transport,
		identity:        opts.Identity,
		timeout:         opts.MutationTimeout,
		activeUsers:     make(map[string][]model.ActiveUser),
		flags:           make(map[string]bool),
		pendingEntities: make(map[string]int),
		conflicts:       make(map[string]*ConflictRecord),
		cache:           NewCache(opts.ListTTL, opts.EntityTTL),
		pagination:      model.NewPagination(1, 20, 0),
		debouncer:       NewDebouncer(opts.SearchDebounce),
		prefsPath:       opts.PrefsPath,
	}

	if p, err := loadPrefs(opts.PrefsPath); err == nil && p != nil {
		s.filters = p.Filters
		s.pagination = model.NewPagination(1, p.Limit, 0)
	}

	if transport != nil {
		s.sub = transport.Subscribe(s.handleEvent)
	}
	return s
}

// Close detaches the store from the transport and cancels pending timers.
func (s *Store) Close() {
	s.debouncer.Cancel()
	if s.sub != nil {
		s.sub.Close()
	}
}

// OpenPlaylist makes the playlist the single editing target: fetches it
// (through the entity cache), sets it current, and joins its room.
func (s *Store) OpenPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	p, err := s.FetchPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID != id && s.transport != nil {
		s.leaveRoomLocked(s.current.ID)
	}
	s.current = p.Clone()
	s.mu.Unlock()

	if s.transport != nil {
		s.transport.JoinRoom(id)
		if ev, err := realtime.NewEvent(realtime.EventUserJoined, id, realtime.PresenceData{
			UserID:    s.identity.UserID,
			UserEmail: s.identity.UserEmail,
			Timestamp: time.Now().UnixMilli(),
		}); err == nil {
			s.transport.Emit(ev)
		}
	}
	return p, nil
}

// ClosePlaylist leaves the current playlist's room and clears the editing
// target.
func (s *Store) ClosePlaylist() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	id := s.current.ID
	s.current = nil
	delete(s.activeUsers, id)
	s.mu.Unlock()

	if s.transport != nil {
		if ev, err := realtime.NewEvent(realtime.EventUserLeft, id, realtime.PresenceData{
			UserID:    s.identity.UserID,
			UserEmail: s.identity.UserEmail,
			Timestamp: time.Now().UnixMilli(),
		}); err == nil {
			s.transport.Emit(ev)
		}
		s.transport.LeaveRoom(id)
	}
}

// leaveRoomLocked emits user-left and leaves the room for a playlist being
// swapped out. Requires s.mu held; the transport calls do not re-enter the
// store.
func (s *Store) leaveRoomLocked(id string) {
	delete(s.activeUsers, id)
	if ev, err := realtime.NewEvent(realtime.EventUserLeft, id, realtime.PresenceData{
		UserID:    s.identity.UserID,
		UserEmail: s.identity.UserEmail,
		Timestamp: time.Now().UnixMilli(),
	}); err == nil {
		s.transport.Emit(ev)
	}
	s.transport.LeaveRoom(id)
}

// Current returns a copy of the playlist being edited, or nil.
func (s *Store) Current() *model.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Playlists returns a copy of the loaded list page.
func (s *Store) Playlists() []model.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Playlist, len(s.playlists))
	for i := range s.playlists {
		out[i] = *s.playlists[i].Clone()
	}
	return out
}

// Stats returns the last fetched aggregate stats, or nil.
func (s *Store) Stats() *model.PlaylistStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return nil
	}
	cp := *s.stats
	return &cp
}

// ActiveUsers returns the collaborators currently in a playlist's room.
func (s *Store) ActiveUsers(playlistID string) []model.ActiveUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ActiveUser(nil), s.activeUsers[playlistID]...)
}

// LastError returns the store-level error description from the most recent
// failed mutation, empty after a success.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// ClearError resets the store-level error field.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// handleEvent is the single entry point for remote events. Presence events
// maintain the active-user sets; mutation events either apply idempotently
// or are routed to the conflict detector when they collide with a local
// in-flight edit.
func (s *Store) handleEvent(ev *realtime.Event) {
	switch ev.Type {
	case realtime.EventUserJoined, realtime.EventUserLeft:
		s.handlePresence(ev)
	case realtime.EventEntityUpdated, realtime.EventItemAdded, realtime.EventItemRemoved,
		realtime.EventItemsReordered, realtime.EventScreensAssigned, realtime.EventScreensUnassigned:
		s.handleRemoteChange(ev)
	default:
		logger.Debug("ignoring unknown event type", logger.String("type", string(ev.Type)))
	}
}

func (s *Store) handlePresence(ev *realtime.Event) {
	var data realtime.PresenceData
	if err := ev.Decode(&data); err != nil {
		logger.Warn("invalid presence payload", logger.ErrorField(err))
		return
	}
	if data.UserID == s.identity.UserID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.activeUsers[ev.PlaylistID]
	switch ev.Type {
	case realtime.EventUserJoined:
		for _, u := range users {
			if u.UserID == data.UserID {
				return // already present
			}
		}
		s.activeUsers[ev.PlaylistID] = append(users, model.ActiveUser{
			UserID:    data.UserID,
			UserEmail: data.UserEmail,
			JoinedAt:  time.UnixMilli(data.Timestamp),
		})
	case realtime.EventUserLeft:
		out := users[:0]
		for _, u := range users {
			if u.UserID != data.UserID {
				out = append(out, u)
			}
		}
		if len(out) == 0 {
			delete(s.activeUsers, ev.PlaylistID)
		} else {
			s.activeUsers[ev.PlaylistID] = out
		}
	}
}

func (s *Store) handleRemoteChange(ev *realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingEntities[ev.PlaylistID] > 0 {
		s.detectConflictLocked(ev)
		return
	}

	s.applyEventLocked(ev)
	s.cache.InvalidateEntity(ev.PlaylistID)
	s.cache.InvalidateLists()
}
