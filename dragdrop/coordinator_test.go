package dragdrop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signcast/model"
)

type addCall struct {
	playlistID string
	mediaID    string
	position   *int
	duration   int
}

// fakeActions records the mutation calls the coordinator issues.
type fakeActions struct {
	playlist *model.Playlist
	adds     []addCall
	reorders [][]string
}

func (f *fakeActions) AddItem(ctx context.Context, playlistID, mediaID string, position *int, duration int) error {
	f.adds = append(f.adds, addCall{playlistID, mediaID, position, duration})
	return nil
}

func (f *fakeActions) ReorderItems(ctx context.Context, playlistID string, itemIDs []string) error {
	f.reorders = append(f.reorders, append([]string(nil), itemIDs...))
	return nil
}

func (f *fakeActions) Current() *model.Playlist {
	return f.playlist.Clone()
}

func openPlaylist() *model.Playlist {
	p := &model.Playlist{
		ID: "p1",
		Items: []model.PlaylistItem{
			{ID: "i1", MediaID: "m1", Duration: 10},
			{ID: "i2", MediaID: "m2", Duration: 20},
			{ID: "i3", MediaID: "m3", Duration: 30},
		},
	}
	p.Renumber()
	return p
}

func intptr(i int) *int { return &i }

func TestMoveID(t *testing.T) {
	ids := []string{"a", "b", "c"}

	assert.Equal(t, []string{"b", "c", "a"}, moveID(ids, 0, 2))
	assert.Equal(t, []string{"c", "a", "b"}, moveID(ids, 2, 0))
	assert.Equal(t, []string{"b", "a", "c"}, moveID(ids, 0, 1))
	assert.Equal(t, []string{"a", "b", "c"}, moveID(ids, 1, 1))

	// target clamped to the valid range
	assert.Equal(t, []string{"b", "c", "a"}, moveID(ids, 0, 9))
	assert.Equal(t, []string{"c", "a", "b"}, moveID(ids, 2, -1))
}

func TestDropMediaOnPlaylistAddsItem(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	c.StartDrag("m9", ItemMedia)
	c.DragOver("zone-p1")
	assert.Equal(t, "zone-p1", c.State().DropZoneID)

	err := c.Drop(context.Background(), DropZone{Kind: ZonePlaylist, PlaylistID: "p1", Position: intptr(1)})
	require.NoError(t, err)

	require.Len(t, f.adds, 1)
	assert.Equal(t, "p1", f.adds[0].playlistID)
	assert.Equal(t, "m9", f.adds[0].mediaID)
	require.NotNil(t, f.adds[0].position)
	assert.Equal(t, 1, *f.adds[0].position)
	assert.False(t, c.State().IsDragging)
}

func TestDropPlaylistItemReorders(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	c.StartDrag("i1", ItemPlaylistItem)
	err := c.Drop(context.Background(), DropZone{Kind: ZoneItemPosition, PlaylistID: "p1", Position: intptr(2)})
	require.NoError(t, err)

	require.Len(t, f.reorders, 1)
	assert.Equal(t, []string{"i2", "i3", "i1"}, f.reorders[0])
}

func TestDropOnInvalidZoneEndsWithoutMutation(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	// media over a position slot is not a valid combination
	c.StartDrag("m9", ItemMedia)
	require.NoError(t, c.Drop(context.Background(), DropZone{Kind: ZoneItemPosition, PlaylistID: "p1", Position: intptr(0)}))

	// playlist item over a playlist surface is not either
	c.StartDrag("i1", ItemPlaylistItem)
	require.NoError(t, c.Drop(context.Background(), DropZone{Kind: ZonePlaylist, PlaylistID: "p1"}))

	assert.Empty(t, f.adds)
	assert.Empty(t, f.reorders)
	assert.False(t, c.State().IsDragging)
}

func TestDropWithoutDragFails(t *testing.T) {
	c := New(&fakeActions{playlist: openPlaylist()})
	assert.Error(t, c.Drop(context.Background(), DropZone{Kind: ZonePlaylist, PlaylistID: "p1"}))
}

func TestCancelDragReturnsToIdle(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	c.StartDrag("i1", ItemPlaylistItem)
	c.CancelDrag()

	assert.Equal(t, State{}, c.State())
	assert.Empty(t, f.reorders)
}

func TestKeyboardPathMatchesPointerDrop(t *testing.T) {
	pointer := &fakeActions{playlist: openPlaylist()}
	pc := New(pointer)
	pc.StartDrag("i1", ItemPlaylistItem)
	require.NoError(t, pc.Drop(context.Background(), DropZone{Kind: ZoneItemPosition, PlaylistID: "p1", Position: intptr(2)}))

	keyboard := &fakeActions{playlist: openPlaylist()}
	kc := New(keyboard)
	require.NoError(t, kc.Grab("p1", "i1"))
	kc.MoveDown()
	kc.MoveDown()
	require.NoError(t, kc.Commit(context.Background()))

	require.Len(t, pointer.reorders, 1)
	require.Len(t, keyboard.reorders, 1)
	assert.Equal(t, pointer.reorders[0], keyboard.reorders[0])
}

func TestKeyboardMoveClampsAtEdges(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	require.NoError(t, c.Grab("p1", "i1"))
	c.MoveUp() // already at the top
	c.MoveDown()
	c.MoveDown()
	c.MoveDown() // already at the bottom
	require.NoError(t, c.Commit(context.Background()))

	require.Len(t, f.reorders, 1)
	assert.Equal(t, []string{"i2", "i3", "i1"}, f.reorders[0])
}

func TestCommitAtOriginalPositionSkipsMutation(t *testing.T) {
	f := &fakeActions{playlist: openPlaylist()}
	c := New(f)

	require.NoError(t, c.Grab("p1", "i2"))
	c.MoveDown()
	c.MoveUp()
	require.NoError(t, c.Commit(context.Background()))

	assert.Empty(t, f.reorders)
	assert.False(t, c.State().IsDragging)
}

func TestGrabRequiresOpenPlaylist(t *testing.T) {
	c := New(&fakeActions{playlist: openPlaylist()})
	assert.Error(t, c.Grab("p-other", "i1"))
	assert.Error(t, c.Grab("p1", "ghost"))
	assert.False(t, c.State().IsDragging)
}
