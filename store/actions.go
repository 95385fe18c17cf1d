package store

import (
	"context"

	"github.com/google/uuid"

	"signcast/client"
	"signcast/model"
	"signcast/realtime"
)

// CreatePlaylist creates a playlist optimistically under a temporary id and
// swaps in the backend's authoritative entity on success.
func (s *Store) CreatePlaylist(ctx context.Context, req client.CreatePlaylistRequest) error {
	tempID := "tmp-" + uuid.NewString()

	return s.runMutation(ctx, mutation{
		verb:     verbCreate,
		entityID: tempID,
		apply: func() {
			p := model.Playlist{
				ID:          tempID,
				Name:        req.Name,
				Description: req.Description,
				Schedule:    req.Schedule,
				Items:       []model.PlaylistItem{},
			}
			s.playlists = append(s.playlists, p)
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.CreatePlaylist(ctx, req)
		},
		commit: func(authoritative *model.Playlist) {
			for i := range s.playlists {
				if s.playlists[i].ID == tempID {
					s.playlists[i] = *authoritative.Clone()
					return
				}
			}
			s.playlists = append(s.playlists, *authoritative.Clone())
		},
		event: func(authoritative *model.Playlist) *realtime.Event {
			return s.entityUpdatedEvent(authoritative, realtime.ChangeMetadata)
		},
	})
}

// UpdatePlaylist applies metadata changes to a playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, req client.UpdatePlaylistRequest) error {
	s.mu.RLock()
	exists := s.entityLocked(id) != nil
	s.mu.RUnlock()
	if !exists {
		return client.NewError(client.KindNotFound, "playlist not found: "+id)
	}

	return s.runMutation(ctx, mutation{
		verb:     verbUpdate,
		entityID: id,
		apply: func() {
			p := s.entityLocked(id)
			if p == nil {
				return
			}
			if req.Name != nil {
				p.Name = *req.Name
			}
			if req.Description != nil {
				p.Description = *req.Description
			}
			if req.IsActive != nil {
				p.IsActive = *req.IsActive
			}
			if req.Schedule != nil {
				p.Schedule = req.Schedule
			}
			// keep list and current views coherent
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.UpdatePlaylist(ctx, id, req)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			return s.entityUpdatedEvent(authoritative, realtime.ChangeMetadata)
		},
	})
}

// DeletePlaylist removes a playlist.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	s.mu.RLock()
	exists := s.entityLocked(id) != nil
	s.mu.RUnlock()
	if !exists {
		return client.NewError(client.KindNotFound, "playlist not found: "+id)
	}

	return s.runMutation(ctx, mutation{
		verb:     verbDelete,
		entityID: id,
		apply: func() {
			out := s.playlists[:0]
			for _, p := range s.playlists {
				if p.ID != id {
					out = append(out, p)
				}
			}
			s.playlists = out
			if s.current != nil && s.current.ID == id {
				s.current = nil
			}
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return nil, s.api.DeletePlaylist(ctx, id)
		},
	})
}

// DuplicatePlaylist asks the backend to clone a playlist and appends the
// copy. There is no optimistic insert: the copy's identity is only known
// from the authoritative response.
func (s *Store) DuplicatePlaylist(ctx context.Context, id string) error {
	s.mu.RLock()
	exists := s.entityLocked(id) != nil
	s.mu.RUnlock()
	if !exists {
		return client.NewError(client.KindNotFound, "playlist not found: "+id)
	}

	return s.runMutation(ctx, mutation{
		verb:     verbDuplicate,
		entityID: id,
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.DuplicatePlaylist(ctx, id)
		},
		commit: func(authoritative *model.Playlist) {
			s.playlists = append(s.playlists, *authoritative.Clone())
		},
	})
}

// AssignScreens adds screens to a playlist's assignment set.
func (s *Store) AssignScreens(ctx context.Context, id string, screenIDs []string) error {
	s.mu.RLock()
	exists := s.entityLocked(id) != nil
	s.mu.RUnlock()
	if !exists {
		return client.NewError(client.KindNotFound, "playlist not found: "+id)
	}

	return s.runMutation(ctx, mutation{
		verb:     verbAssign,
		entityID: id,
		apply: func() {
			p := s.entityLocked(id)
			if p == nil {
				return
			}
			p.AssignedScreens = unionScreens(p.AssignedScreens, screenIDs)
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.AssignScreens(ctx, id, screenIDs)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			ev, err := realtime.NewEvent(realtime.EventScreensAssigned, id, realtime.ScreensData{
				ScreenIDs:  screenIDs,
				ActorID:    s.identity.UserID,
				ActorEmail: s.identity.UserEmail,
			})
			if err != nil {
				return nil
			}
			return ev
		},
	})
}

// UnassignScreens removes screens from a playlist's assignment set.
func (s *Store) UnassignScreens(ctx context.Context, id string, screenIDs []string) error {
	s.mu.RLock()
	exists := s.entityLocked(id) != nil
	s.mu.RUnlock()
	if !exists {
		return client.NewError(client.KindNotFound, "playlist not found: "+id)
	}

	return s.runMutation(ctx, mutation{
		verb:     verbUnassign,
		entityID: id,
		apply: func() {
			p := s.entityLocked(id)
			if p == nil {
				return
			}
			p.AssignedScreens = subtractScreens(p.AssignedScreens, screenIDs)
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.UnassignScreens(ctx, id, screenIDs)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			ev, err := realtime.NewEvent(realtime.EventScreensUnassigned, id, realtime.ScreensData{
				ScreenIDs:  screenIDs,
				ActorID:    s.identity.UserID,
				ActorEmail: s.identity.UserEmail,
			})
			if err != nil {
				return nil
			}
			return ev
		},
	})
}

func (s *Store) entityUpdatedEvent(p *model.Playlist, changeType string) *realtime.Event {
	if p == nil {
		return nil
	}
	ev, err := realtime.NewEvent(realtime.EventEntityUpdated, p.ID, realtime.EntityUpdatedData{
		Entity:         *p.Clone(),
		ChangedBy:      s.identity.UserID,
		ChangedByEmail: s.identity.UserEmail,
		ChangeType:     changeType,
	})
	if err != nil {
		return nil
	}
	return ev
}

func unionScreens(existing, add []string) []string {
	out := append([]string(nil), existing...)
	for _, id := range add {
		found := false
		for _, e := range out {
			if e == id {
				found = true
				break
			}
		}
		if !found {
			out = append(out, id)
		}
	}
	return out
}

func subtractScreens(existing, remove []string) []string {
	out := existing[:0:0]
	for _, e := range existing {
		drop := false
		for _, id := range remove {
			if e == id {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, e)
		}
	}
	return out
}
