package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"signcast/client"
	"signcast/model"
	"signcast/realtime"
)

// AddItem inserts a media entity into a playlist. A nil position appends.
func (s *Store) AddItem(ctx context.Context, playlistID, mediaID string, position *int, duration int) error {
	s.mu.RLock()
	p := s.entityLocked(playlistID)
	var before map[string]bool
	if p != nil {
		before = make(map[string]bool, len(p.Items))
		for _, it := range p.Items {
			before[it.ID] = true
		}
	}
	s.mu.RUnlock()
	if p == nil {
		return client.NewError(client.KindNotFound, "playlist not found: "+playlistID)
	}

	tempItemID := "tmp-" + uuid.NewString()

	return s.runMutation(ctx, mutation{
		verb:     verbAddItem,
		entityID: playlistID,
		apply: func() {
			p := s.entityLocked(playlistID)
			if p == nil {
				return
			}
			pos := len(p.Items)
			if position != nil {
				pos = clamp(*position, 0, len(p.Items))
			}
			item := model.PlaylistItem{ID: tempItemID, MediaID: mediaID, Duration: duration}
			p.Items = append(p.Items, model.PlaylistItem{})
			copy(p.Items[pos+1:], p.Items[pos:])
			p.Items[pos] = item
			p.Renumber()
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.AddItem(ctx, playlistID, client.AddItemRequest{
				MediaID:  mediaID,
				Position: position,
				Duration: duration,
			})
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			item, pos := addedItem(authoritative, before)
			if item == nil {
				return nil
			}
			ev, err := realtime.NewEvent(realtime.EventItemAdded, playlistID, realtime.ItemAddedData{
				Item:       *item,
				Position:   pos,
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

// RemoveItem deletes an item from a playlist.
func (s *Store) RemoveItem(ctx context.Context, playlistID, itemID string) error {
	s.mu.RLock()
	p := s.entityLocked(playlistID)
	found := p != nil && p.ItemIndex(itemID) >= 0
	s.mu.RUnlock()
	if !found {
		return client.NewError(client.KindNotFound,
			fmt.Sprintf("item %s not found in playlist %s", itemID, playlistID))
	}

	return s.runMutation(ctx, mutation{
		verb:     verbRemoveItem,
		entityID: playlistID,
		apply: func() {
			p := s.entityLocked(playlistID)
			if p == nil {
				return
			}
			if i := p.ItemIndex(itemID); i >= 0 {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				p.Renumber()
			}
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.RemoveItem(ctx, playlistID, itemID)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			ev, err := realtime.NewEvent(realtime.EventItemRemoved, playlistID, realtime.ItemRemovedData{
				ItemID:     itemID,
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

// ReorderItems replaces the playback sequence with itemIDs. The ids must be
// a permutation of the playlist's current items; order is recomputed as
// 0..n-1 regardless of how many items moved.
func (s *Store) ReorderItems(ctx context.Context, playlistID string, itemIDs []string) error {
	s.mu.RLock()
	p := s.entityLocked(playlistID)
	var verr error
	if p == nil {
		verr = client.NewError(client.KindNotFound, "playlist not found: "+playlistID)
	} else if err := validatePermutation(p.Items, itemIDs); err != nil {
		verr = err
	}
	s.mu.RUnlock()
	if verr != nil {
		return verr
	}

	return s.runMutation(ctx, mutation{
		verb:     verbReorder,
		entityID: playlistID,
		apply: func() {
			p := s.entityLocked(playlistID)
			if p == nil {
				return
			}
			byID := make(map[string]model.PlaylistItem, len(p.Items))
			for _, it := range p.Items {
				byID[it.ID] = it
			}
			items := make([]model.PlaylistItem, 0, len(itemIDs))
			for _, id := range itemIDs {
				if it, ok := byID[id]; ok {
					items = append(items, it)
				}
			}
			p.Items = items
			p.Renumber()
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.ReorderItems(ctx, playlistID, itemIDs)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			ev, err := realtime.NewEvent(realtime.EventItemsReordered, playlistID, realtime.ItemsReorderedData{
				Items:      append([]model.PlaylistItem(nil), authoritative.Items...),
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

// UpdateItemSettings changes per-item settings such as the duration
// override.
func (s *Store) UpdateItemSettings(ctx context.Context, playlistID, itemID string, req client.UpdateItemRequest) error {
	s.mu.RLock()
	p := s.entityLocked(playlistID)
	found := p != nil && p.ItemIndex(itemID) >= 0
	s.mu.RUnlock()
	if !found {
		return client.NewError(client.KindNotFound,
			fmt.Sprintf("item %s not found in playlist %s", itemID, playlistID))
	}

	return s.runMutation(ctx, mutation{
		verb:     verbUpdateItem,
		entityID: playlistID,
		apply: func() {
			p := s.entityLocked(playlistID)
			if p == nil {
				return
			}
			if i := p.ItemIndex(itemID); i >= 0 && req.Duration != nil {
				p.Items[i].Duration = *req.Duration
				p.Renumber()
			}
			s.setEntityLocked(p.Clone())
		},
		call: func(ctx context.Context) (*model.Playlist, error) {
			return s.api.UpdateItemSettings(ctx, playlistID, itemID, req)
		},
		commit: s.setEntityLocked,
		event: func(authoritative *model.Playlist) *realtime.Event {
			return s.entityUpdatedEvent(authoritative, realtime.ChangeItems)
		},
	})
}

// validatePermutation checks that ids name each current item exactly once.
func validatePermutation(items []model.PlaylistItem, ids []string) error {
	if len(ids) != len(items) {
		return client.NewError(client.KindValidation,
			fmt.Sprintf("reorder needs %d item ids, got %d", len(items), len(ids)))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return client.NewError(client.KindValidation, "duplicate item id in reorder: "+id)
		}
		seen[id] = true
	}
	for _, it := range items {
		if !seen[it.ID] {
			return client.NewError(client.KindValidation, "reorder is missing item: "+it.ID)
		}
	}
	return nil
}

// addedItem locates the entry the server created for an add: the one whose
// id was not present before the call. Media ids cannot identify it because
// the playlist may already hold the same media.
func addedItem(p *model.Playlist, before map[string]bool) (*model.PlaylistItem, int) {
	if p == nil {
		return nil, 0
	}
	for i := range p.Items {
		if !before[p.Items[i].ID] {
			it := p.Items[i]
			return &it, it.Order
		}
	}
	return nil, 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
