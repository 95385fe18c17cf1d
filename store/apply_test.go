package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signcast/model"
	"signcast/realtime"
)

func TestItemAddedAppliesIdempotently(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	ev := mustEvent(t, realtime.EventItemAdded, "p1", realtime.ItemAddedData{
		Item:     model.PlaylistItem{ID: "i9", MediaID: "m9", Duration: 5},
		Position: 1,
	})
	tr.deliver(ev)
	tr.deliver(ev) // redelivery changes nothing

	cur := s.Current()
	require.Len(t, cur.Items, 4)
	assert.Equal(t, []string{"i1", "i9", "i2", "i3"}, itemIDs(cur))
	assertContiguousOrder(t, cur)
}

func TestItemRemovedAppliesIdempotently(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	ev := mustEvent(t, realtime.EventItemRemoved, "p1", realtime.ItemRemovedData{ItemID: "i2"})
	tr.deliver(ev)
	tr.deliver(ev)

	cur := s.Current()
	require.Len(t, cur.Items, 2)
	assert.Equal(t, []string{"i1", "i3"}, itemIDs(cur))
	assertContiguousOrder(t, cur)
}

func TestItemsReorderedReplacesSequence(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	reordered := testPlaylist()
	reordered.Items = []model.PlaylistItem{
		reordered.Items[2], reordered.Items[0], reordered.Items[1],
	}
	tr.deliver(mustEvent(t, realtime.EventItemsReordered, "p1", realtime.ItemsReorderedData{
		Items: reordered.Items,
	}))

	cur := s.Current()
	assert.Equal(t, []string{"i3", "i1", "i2"}, itemIDs(cur))
	assertContiguousOrder(t, cur)
}

func TestEntityUpdatedMetadataTouchesOnlyMetadata(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	tr.deliver(renameEvent(t, api.playlist, "Lobby Renamed", "user-b"))

	cur := s.Current()
	assert.Equal(t, "Lobby Renamed", cur.Name)
	assert.Equal(t, []string{"i1", "i2", "i3"}, itemIDs(cur))
	assert.Equal(t, []string{"s1"}, cur.AssignedScreens)
}

func TestScreensAssignedEventUnions(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	ev := mustEvent(t, realtime.EventScreensAssigned, "p1", realtime.ScreensData{
		ScreenIDs: []string{"s1", "s2"},
	})
	tr.deliver(ev)
	tr.deliver(ev)

	assert.Equal(t, []string{"s1", "s2"}, s.Current().AssignedScreens)

	tr.deliver(mustEvent(t, realtime.EventScreensUnassigned, "p1", realtime.ScreensData{
		ScreenIDs: []string{"s1"},
	}))
	assert.Equal(t, []string{"s2"}, s.Current().AssignedScreens)
}

func TestRemoteEventForOtherPlaylistIgnored(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)

	tr.deliver(mustEvent(t, realtime.EventItemRemoved, "p-other", realtime.ItemRemovedData{ItemID: "i1"}))
	require.Len(t, s.Current().Items, 3)
}

func TestRemoteEventInvalidatesEntityCache(t *testing.T) {
	api := &fakeAPI{playlist: testPlaylist()}
	s, tr := openTestStore(t, api)
	ctx := context.Background()

	api.mu.Lock()
	calls := api.getCalls
	api.mu.Unlock()

	_, err := s.FetchPlaylist(ctx, "p1")
	require.NoError(t, err)
	api.mu.Lock()
	assert.Equal(t, calls, api.getCalls, "open already cached the entity")
	api.mu.Unlock()

	tr.deliver(renameEvent(t, api.playlist, "Lobby Renamed", "user-b"))

	_, err = s.FetchPlaylist(ctx, "p1")
	require.NoError(t, err)
	api.mu.Lock()
	assert.Equal(t, calls+1, api.getCalls, "remote change forces a live fetch")
	api.mu.Unlock()
}
