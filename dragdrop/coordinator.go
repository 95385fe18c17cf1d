// Package dragdrop turns pointer and keyboard gestures into playlist
// mutation calls. The coordinator holds only ephemeral interaction state;
// nothing here is persisted and a cancel always returns to idle without a
// mutation.
package dragdrop

import (
	"context"
	"fmt"
	"sync"

	"signcast/model"
)

// ItemType says what is being dragged.
type ItemType string

const (
	ItemMedia        ItemType = "media"
	ItemPlaylistItem ItemType = "playlist-item"
)

// ZoneKind says what a drop zone accepts.
type ZoneKind string

const (
	// ZonePlaylist is a playlist surface accepting new media.
	ZonePlaylist ZoneKind = "playlist"
	// ZoneItemPosition is a position between items accepting a reorder.
	ZoneItemPosition ZoneKind = "item-position"
)

// DropZone identifies where a drop landed.
type DropZone struct {
	Kind       ZoneKind
	PlaylistID string
	// Position is the target index. Nil on ZonePlaylist means append.
	Position *int
}

// State is the observable drag state for rendering drag previews.
type State struct {
	IsDragging      bool
	DraggedItemID   string
	DraggedItemType ItemType
	DropZoneID      string
}

// Actions is the mutation surface the coordinator drives. Satisfied by
// *store.Store.
type Actions interface {
	AddItem(ctx context.Context, playlistID, mediaID string, position *int, duration int) error
	ReorderItems(ctx context.Context, playlistID string, itemIDs []string) error
	Current() *model.Playlist
}

// Coordinator is the drag/drop state machine: idle, dragging, then back to
// idle whether the drop produced a mutation or not.
type Coordinator struct {
	mu      sync.Mutex
	actions Actions
	state   State

	// keyboard path
	grabPlaylistID string
	grabIndex      int
	targetIndex    int
}

// New creates a coordinator over the store's action surface.
func New(actions Actions) *Coordinator {
	return &Coordinator{actions: actions}
}

// State returns a copy of the current drag state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartDrag enters the dragging state.
func (c *Coordinator) StartDrag(itemID string, t ItemType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{IsDragging: true, DraggedItemID: itemID, DraggedItemType: t}
}

// DragOver records the hovered drop zone for rendering.
func (c *Coordinator) DragOver(zoneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsDragging {
		c.state.DropZoneID = zoneID
	}
}

// CancelDrag returns to idle without a mutation.
func (c *Coordinator) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Drop finishes the drag. Media over a playlist becomes an add-item;
// a playlist item over a position becomes a reorder with a fully recomputed
// order. Any other combination is an invalid zone: back to idle, no call.
func (c *Coordinator) Drop(ctx context.Context, zone DropZone) error {
	c.mu.Lock()
	st := c.state
	c.reset()
	c.mu.Unlock()

	if !st.IsDragging {
		return fmt.Errorf("no drag in progress")
	}

	switch {
	case st.DraggedItemType == ItemMedia && zone.Kind == ZonePlaylist:
		return c.actions.AddItem(ctx, zone.PlaylistID, st.DraggedItemID, zone.Position, 0)

	case st.DraggedItemType == ItemPlaylistItem && zone.Kind == ZoneItemPosition:
		if zone.Position == nil {
			return nil
		}
		return c.reorderTo(ctx, zone.PlaylistID, st.DraggedItemID, *zone.Position)

	default:
		// invalid zone: drag ends with no mutation
		return nil
	}
}

// Grab starts the keyboard interaction path: it enters the same dragging
// state as StartDrag and tracks a movable target index.
func (c *Coordinator) Grab(playlistID, itemID string) error {
	p := c.actions.Current()
	if p == nil || p.ID != playlistID {
		return fmt.Errorf("playlist %s is not open", playlistID)
	}
	idx := p.ItemIndex(itemID)
	if idx < 0 {
		return fmt.Errorf("item %s not found in playlist %s", itemID, playlistID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{IsDragging: true, DraggedItemID: itemID, DraggedItemType: ItemPlaylistItem}
	c.grabPlaylistID = playlistID
	c.grabIndex = idx
	c.targetIndex = idx
	return nil
}

// MoveUp shifts the grabbed item's target one position earlier.
func (c *Coordinator) MoveUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsDragging && c.targetIndex > 0 {
		c.targetIndex--
	}
}

// MoveDown shifts the grabbed item's target one position later.
func (c *Coordinator) MoveDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsDragging {
		return
	}
	p := c.actions.Current()
	if p != nil && c.targetIndex < len(p.Items)-1 {
		c.targetIndex++
	}
}

// Commit performs the reorder for the keyboard path. End state is identical
// to dropping the item on the same target position.
func (c *Coordinator) Commit(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	playlistID := c.grabPlaylistID
	from := c.grabIndex
	to := c.targetIndex
	c.reset()
	c.mu.Unlock()

	if !st.IsDragging {
		return fmt.Errorf("no grab in progress")
	}
	if from == to {
		return nil
	}
	return c.reorderTo(ctx, playlistID, st.DraggedItemID, to)
}

// reorderTo computes a stable move of the dragged item to the target index
// and issues one reorder with the complete new sequence.
func (c *Coordinator) reorderTo(ctx context.Context, playlistID, itemID string, to int) error {
	p := c.actions.Current()
	if p == nil || p.ID != playlistID {
		return fmt.Errorf("playlist %s is not open", playlistID)
	}
	from := p.ItemIndex(itemID)
	if from < 0 {
		return fmt.Errorf("item %s not found in playlist %s", itemID, playlistID)
	}

	ids := make([]string, len(p.Items))
	for i, it := range p.Items {
		ids[i] = it.ID
	}
	return c.actions.ReorderItems(ctx, playlistID, moveID(ids, from, to))
}

// moveID moves ids[from] to index to, keeping the relative order of the
// others. No duplication, no loss.
func moveID(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}

func (c *Coordinator) reset() {
	c.state = State{}
	c.grabPlaylistID = ""
	c.grabIndex = 0
	c.targetIndex = 0
}
