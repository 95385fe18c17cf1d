package store

import (
	"context"
	"errors"

	"signcast/model"
	"signcast/realtime"
)

// ErrOperationInFlight is returned when a mutation for the same
// (verb, entity) key is already running. Callers retry after it settles;
// two identical mutations never race.
var ErrOperationInFlight = errors.New("operation already in flight for this entity")

// Mutation verbs. Flag keys are "<verb>_<entityId>".
const (
	verbCreate     = "create"
	verbUpdate     = "update"
	verbDelete     = "delete"
	verbDuplicate  = "duplicate"
	verbAddItem    = "add_item"
	verbRemoveItem = "remove_item"
	verbReorder    = "reorder"
	verbUpdateItem = "update_item"
	verbAssign     = "assign"
	verbUnassign   = "unassign"
)

// OperationPending reports whether a mutation with the given verb is in
// flight for the entity.
func (s *Store) OperationPending(verb, entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[verb+"_"+entityID]
}

// snapshot is the pre-mutation copy restored verbatim on failure.
type snapshot struct {
	playlists []model.Playlist
	current   *model.Playlist
}

func (s *Store) captureLocked() snapshot {
	sn := snapshot{
		playlists: make([]model.Playlist, len(s.playlists)),
		current:   s.current.Clone(),
	}
	for i := range s.playlists {
		sn.playlists[i] = *s.playlists[i].Clone()
	}
	return sn
}

func (s *Store) restoreLocked(sn snapshot) {
	s.playlists = sn.playlists
	s.current = sn.current
}

// mutation describes one optimistic operation: apply runs synchronously
// under the store lock, call hits the backend, commit merges the
// authoritative response, event is published after success.
type mutation struct {
	verb     string
	entityID string
	apply    func()
	call     func(ctx context.Context) (*model.Playlist, error)
	commit   func(authoritative *model.Playlist)
	event    func(authoritative *model.Playlist) *realtime.Event
}

// runMutation is the optimistic-apply engine: snapshot, apply locally, set
// the operation flag, call the backend, then reconcile or restore.
func (s *Store) runMutation(ctx context.Context, m mutation) error {
	key := m.verb + "_" + m.entityID

	s.mu.Lock()
	if s.flags[key] {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	s.flags[key] = true
	s.pendingEntities[m.entityID]++
	sn := s.captureLocked()
	if m.apply != nil {
		m.apply()
	}
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	authoritative, err := m.call(cctx)

	s.mu.Lock()
	delete(s.flags, key)
	if s.pendingEntities[m.entityID] <= 1 {
		delete(s.pendingEntities, m.entityID)
	} else {
		s.pendingEntities[m.entityID]--
	}

	if err != nil {
		s.restoreLocked(sn)
		s.lastError = err.Error()
		s.dropConflictOnRollbackLocked(m.entityID)
		s.mu.Unlock()
		return err
	}

	if m.commit != nil {
		m.commit(authoritative)
	}
	s.cache.InvalidateEntity(m.entityID)
	s.cache.InvalidateLists()
	s.lastError = ""
	s.mu.Unlock()

	if s.transport != nil && m.event != nil {
		if ev := m.event(authoritative); ev != nil {
			s.transport.Emit(ev)
		}
	}
	return nil
}

// setEntityLocked writes the authoritative entity into both the list page
// and the current editing target. Server wins on every returned field.
func (s *Store) setEntityLocked(p *model.Playlist) {
	if p == nil {
		return
	}
	for i := range s.playlists {
		if s.playlists[i].ID == p.ID {
			s.playlists[i] = *p.Clone()
			break
		}
	}
	if s.current != nil && s.current.ID == p.ID {
		s.current = p.Clone()
	}
}

// entityLocked finds the local playlist by id, preferring the editing
// target. Returns nil when the id is stale.
func (s *Store) entityLocked(id string) *model.Playlist {
	if s.current != nil && s.current.ID == id {
		return s.current
	}
	for i := range s.playlists {
		if s.playlists[i].ID == id {
			return &s.playlists[i]
		}
	}
	return nil
}
