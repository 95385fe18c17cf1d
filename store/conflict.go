package store

import (
	"fmt"
	"time"

	"signcast/logger"
	"signcast/model"
	"signcast/realtime"
)

// ConflictType categorizes which slice of a playlist diverged.
type ConflictType string

const (
	ConflictMetadata   ConflictType = "metadata"
	ConflictItems      ConflictType = "items"
	ConflictAssignment ConflictType = "assignment"
)

// PlaylistMetadata is the metadata slice compared in a metadata conflict.
type PlaylistMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsActive    bool            `json:"isActive"`
	Schedule    *model.Schedule `json:"schedule,omitempty"`
}

// ConflictPayload is a discriminated union: exactly one of Metadata, Items
// or Screens is set, selected by Type.
type ConflictPayload struct {
	Type     ConflictType         `json:"type"`
	Metadata *PlaylistMetadata    `json:"metadata,omitempty"`
	Items    []model.PlaylistItem `json:"items,omitempty"`
	Screens  []string             `json:"screens,omitempty"`
}

// Resolution is the choice supplied by the conflict UI.
type Resolution string

const (
	AcceptLocal  Resolution = "accept_local"
	AcceptRemote Resolution = "accept_remote"
	// Merge currently behaves identically to AcceptRemote; a field-level
	// merge policy is not defined yet.
	Merge Resolution = "merge"
)

// ConflictRecord captures a collision between an unconfirmed local edit and
// a remote change to the same entity. It exists from detection until
// resolution; the remote event is held unapplied inside it.
type ConflictRecord struct {
	EntityID             string       `json:"entityId"`
	ConflictingUserID    string       `json:"conflictingUserId"`
	ConflictingUserEmail string       `json:"conflictingUserEmail"`
	Type                 ConflictType `json:"conflictType"`
	LocalVersion         ConflictPayload
	RemoteVersion        ConflictPayload
	DetectedAt           time.Time

	resolving   bool
	remoteEvent *realtime.Event
	// Single-slot FIFO queue for a second conflicting event arriving while
	// this record is unresolved. Anything beyond the slot is dropped.
	queued *realtime.Event
}

// Conflict returns a copy of the active conflict record for an entity, or
// nil.
func (s *Store) Conflict(entityID string) *ConflictRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.conflicts[entityID]
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.remoteEvent = nil
	cp.queued = nil
	return &cp
}

// HasConflict reports whether an entity has an unresolved conflict.
func (s *Store) HasConflict(entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conflicts[entityID] != nil
}

// Resolve settles an active conflict with the UI's choice and promotes the
// queued event, if any.
func (s *Store) Resolve(entityID string, choice Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.conflicts[entityID]
	if rec == nil {
		return fmt.Errorf("no active conflict for entity %s", entityID)
	}
	rec.resolving = true

	switch choice {
	case AcceptLocal:
		// keep local state, discard the remote version
	case AcceptRemote, Merge:
		s.applyEventLocked(rec.remoteEvent)
		s.cache.InvalidateEntity(entityID)
		s.cache.InvalidateLists()
	default:
		rec.resolving = false
		return fmt.Errorf("unknown resolution %q", choice)
	}

	queued := rec.queued
	delete(s.conflicts, entityID)
	logger.Info("conflict resolved",
		logger.String("entity", entityID),
		logger.String("choice", string(choice)))

	if queued != nil {
		if s.pendingEntities[entityID] > 0 {
			s.detectConflictLocked(queued)
		} else {
			s.applyEventLocked(queued)
			s.cache.InvalidateEntity(entityID)
			s.cache.InvalidateLists()
		}
	}
	return nil
}

// detectConflictLocked handles a remote change event that arrived while a
// local mutation for the same entity is in flight. The event is not
// applied; it is captured in a ConflictRecord (or the record's single-slot
// queue) for the conflict UI. Requires s.mu held.
func (s *Store) detectConflictLocked(ev *realtime.Event) {
	if existing := s.conflicts[ev.PlaylistID]; existing != nil {
		if existing.queued == nil {
			existing.queued = ev
			logger.Info("queued second conflicting event",
				logger.String("entity", ev.PlaylistID),
				logger.String("type", string(ev.Type)))
		} else {
			logger.Warn("dropping conflicting event, queue slot occupied",
				logger.String("entity", ev.PlaylistID),
				logger.String("type", string(ev.Type)))
		}
		return
	}

	local := s.entityLocked(ev.PlaylistID)
	if local == nil {
		// nothing local to collide with (e.g. the in-flight op is a create
		// under a temporary id); apply normally
		s.applyEventLocked(ev)
		return
	}

	rec, ok := buildConflictRecord(local, ev)
	if !ok {
		logger.Warn("undecodable remote event during in-flight mutation, dropping",
			logger.String("entity", ev.PlaylistID),
			logger.String("type", string(ev.Type)))
		return
	}

	s.conflicts[ev.PlaylistID] = rec
	logger.Info("conflict detected",
		logger.String("entity", ev.PlaylistID),
		logger.String("conflictType", string(rec.Type)),
		logger.String("changedBy", rec.ConflictingUserID))
}

// dropConflictOnRollbackLocked runs when the in-flight mutation that caused
// a conflict fails. The local unconfirmed version no longer exists, so the
// held remote change wins: it is applied and the record cleared, along with
// any queued event.
func (s *Store) dropConflictOnRollbackLocked(entityID string) {
	rec := s.conflicts[entityID]
	if rec == nil {
		return
	}
	delete(s.conflicts, entityID)

	if s.pendingEntities[entityID] > 0 {
		// another operation for this entity is still in flight; applying
		// the held remote change now would be clobbered by that
		// operation's commit, so it goes back through detection
		s.detectConflictLocked(rec.remoteEvent)
		if rec.queued != nil {
			s.detectConflictLocked(rec.queued)
		}
		return
	}

	s.applyEventLocked(rec.remoteEvent)
	if rec.queued != nil {
		s.applyEventLocked(rec.queued)
	}
	s.cache.InvalidateEntity(entityID)
	s.cache.InvalidateLists()
	logger.Info("conflict auto-resolved to remote after local rollback",
		logger.String("entity", entityID))
}

// buildConflictRecord derives the typed local/remote versions for the
// event's change category. For item and screen events the remote version is
// the sequence that would result from applying the event to the current
// local state.
func buildConflictRecord(local *model.Playlist, ev *realtime.Event) (*ConflictRecord, bool) {
	rec := &ConflictRecord{
		EntityID:    ev.PlaylistID,
		DetectedAt:  time.Now(),
		remoteEvent: ev,
	}

	switch ev.Type {
	case realtime.EventEntityUpdated:
		var data realtime.EntityUpdatedData
		if ev.Decode(&data) != nil {
			return nil, false
		}
		rec.ConflictingUserID = data.ChangedBy
		rec.ConflictingUserEmail = data.ChangedByEmail
		switch data.ChangeType {
		case realtime.ChangeItems:
			rec.Type = ConflictItems
			rec.LocalVersion = itemsPayload(local.Items)
			rec.RemoteVersion = itemsPayload(data.Entity.Items)
		case realtime.ChangeAssignment:
			rec.Type = ConflictAssignment
			rec.LocalVersion = screensPayload(local.AssignedScreens)
			rec.RemoteVersion = screensPayload(data.Entity.AssignedScreens)
		default:
			rec.Type = ConflictMetadata
			rec.LocalVersion = metadataPayload(local)
			rec.RemoteVersion = metadataPayload(&data.Entity)
		}

	case realtime.EventItemAdded:
		var data realtime.ItemAddedData
		if ev.Decode(&data) != nil {
			return nil, false
		}
		rec.ConflictingUserID = data.ActorID
		rec.ConflictingUserEmail = data.ActorEmail
		rec.Type = ConflictItems
		rec.LocalVersion = itemsPayload(local.Items)
		remote := local.Clone()
		applyItemAdded(remote, data)
		rec.RemoteVersion = itemsPayload(remote.Items)

	case realtime.EventItemRemoved:
		var data realtime.ItemRemovedData
		if ev.Decode(&data) != nil {
			return nil, false
		}
		rec.ConflictingUserID = data.ActorID
		rec.ConflictingUserEmail = data.ActorEmail
		rec.Type = ConflictItems
		rec.LocalVersion = itemsPayload(local.Items)
		remote := local.Clone()
		applyItemRemoved(remote, data)
		rec.RemoteVersion = itemsPayload(remote.Items)

	case realtime.EventItemsReordered:
		var data realtime.ItemsReorderedData
		if ev.Decode(&data) != nil {
			return nil, false
		}
		rec.ConflictingUserID = data.ActorID
		rec.ConflictingUserEmail = data.ActorEmail
		rec.Type = ConflictItems
		rec.LocalVersion = itemsPayload(local.Items)
		rec.RemoteVersion = itemsPayload(data.Items)

	case realtime.EventScreensAssigned, realtime.EventScreensUnassigned:
		var data realtime.ScreensData
		if ev.Decode(&data) != nil {
			return nil, false
		}
		rec.ConflictingUserID = data.ActorID
		rec.ConflictingUserEmail = data.ActorEmail
		rec.Type = ConflictAssignment
		rec.LocalVersion = screensPayload(local.AssignedScreens)
		if ev.Type == realtime.EventScreensAssigned {
			rec.RemoteVersion = screensPayload(unionScreens(local.AssignedScreens, data.ScreenIDs))
		} else {
			rec.RemoteVersion = screensPayload(subtractScreens(append([]string(nil), local.AssignedScreens...), data.ScreenIDs))
		}

	default:
		return nil, false
	}

	return rec, true
}

func metadataPayload(p *model.Playlist) ConflictPayload {
	meta := &PlaylistMetadata{
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
	}
	if p.Schedule != nil {
		sched := *p.Schedule
		meta.Schedule = &sched
	}
	return ConflictPayload{Type: ConflictMetadata, Metadata: meta}
}

func itemsPayload(items []model.PlaylistItem) ConflictPayload {
	return ConflictPayload{Type: ConflictItems, Items: append([]model.PlaylistItem(nil), items...)}
}

func screensPayload(screens []string) ConflictPayload {
	return ConflictPayload{Type: ConflictAssignment, Screens: append([]string(nil), screens...)}
}
