package store

import (
	"signcast/logger"
	"signcast/model"
	"signcast/realtime"
)

// applyEventLocked applies an admitted remote event to every local view of
// the playlist (list page entry and current editing target). Application is
// idempotent: re-delivered events change nothing. Requires s.mu held.
func (s *Store) applyEventLocked(ev *realtime.Event) {
	if ev == nil {
		return
	}
	for i := range s.playlists {
		if s.playlists[i].ID == ev.PlaylistID {
			applyToPlaylist(&s.playlists[i], ev)
		}
	}
	if s.current != nil && s.current.ID == ev.PlaylistID {
		applyToPlaylist(s.current, ev)
	}
}

func applyToPlaylist(p *model.Playlist, ev *realtime.Event) {
	switch ev.Type {
	case realtime.EventEntityUpdated:
		var data realtime.EntityUpdatedData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid entity-updated payload", logger.ErrorField(err))
			return
		}
		applyEntityUpdated(p, data)

	case realtime.EventItemAdded:
		var data realtime.ItemAddedData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid item-added payload", logger.ErrorField(err))
			return
		}
		applyItemAdded(p, data)

	case realtime.EventItemRemoved:
		var data realtime.ItemRemovedData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid item-removed payload", logger.ErrorField(err))
			return
		}
		applyItemRemoved(p, data)

	case realtime.EventItemsReordered:
		var data realtime.ItemsReorderedData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid item-reordered payload", logger.ErrorField(err))
			return
		}
		p.Items = append([]model.PlaylistItem(nil), data.Items...)
		p.Renumber()

	case realtime.EventScreensAssigned:
		var data realtime.ScreensData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid screens-assigned payload", logger.ErrorField(err))
			return
		}
		p.AssignedScreens = unionScreens(p.AssignedScreens, data.ScreenIDs)

	case realtime.EventScreensUnassigned:
		var data realtime.ScreensData
		if err := ev.Decode(&data); err != nil {
			logger.Warn("invalid screens-unassigned payload", logger.ErrorField(err))
			return
		}
		p.AssignedScreens = subtractScreens(append([]string(nil), p.AssignedScreens...), data.ScreenIDs)
	}
}

// applyEntityUpdated overwrites the slice of the playlist named by the
// event's change category. An unknown category replaces the whole entity.
func applyEntityUpdated(p *model.Playlist, data realtime.EntityUpdatedData) {
	switch data.ChangeType {
	case realtime.ChangeMetadata:
		p.Name = data.Entity.Name
		p.Description = data.Entity.Description
		p.IsActive = data.Entity.IsActive
		p.Schedule = data.Entity.Schedule
		p.UpdatedAt = data.Entity.UpdatedAt
	case realtime.ChangeItems:
		p.Items = append([]model.PlaylistItem(nil), data.Entity.Items...)
		p.Renumber()
		p.UpdatedAt = data.Entity.UpdatedAt
	case realtime.ChangeAssignment:
		p.AssignedScreens = append([]string(nil), data.Entity.AssignedScreens...)
		p.UpdatedAt = data.Entity.UpdatedAt
	default:
		*p = *data.Entity.Clone()
		p.Renumber()
	}
}

// applyItemAdded inserts the item at the event position. A no-op when the
// item id is already present (at-least-once delivery).
func applyItemAdded(p *model.Playlist, data realtime.ItemAddedData) {
	if p.ItemIndex(data.Item.ID) >= 0 {
		return
	}
	pos := clamp(data.Position, 0, len(p.Items))
	p.Items = append(p.Items, model.PlaylistItem{})
	copy(p.Items[pos+1:], p.Items[pos:])
	p.Items[pos] = data.Item
	p.Renumber()
}

// applyItemRemoved drops the item. A no-op when the id is already absent.
func applyItemRemoved(p *model.Playlist, data realtime.ItemRemovedData) {
	i := p.ItemIndex(data.ItemID)
	if i < 0 {
		return
	}
	p.Items = append(p.Items[:i], p.Items[i+1:]...)
	p.Renumber()
}
