package mockserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signcast/client"
	"signcast/model"
)

func seeded() *model.Playlist {
	p := &model.Playlist{
		ID:   "p1",
		Name: "Lobby",
		Items: []model.PlaylistItem{
			{ID: "i1", MediaID: "m1", Duration: 10},
			{ID: "i2", MediaID: "m2", Duration: 20},
		},
		AssignedScreens: []string{"s1"},
		IsActive:        true,
	}
	return p
}

func newTestBackend(t *testing.T) (*Server, client.API) {
	t.Helper()
	srv := NewServer()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.hub.Stop)
	return srv, client.NewClient(ts.URL + "/api")
}

func TestCRUDRoundTrip(t *testing.T) {
	_, api := newTestBackend(t)
	ctx := context.Background()

	created, err := api.CreatePlaylist(ctx, client.CreatePlaylistRequest{Name: "Lobby", Description: "front desk"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lobby", created.Name)
	assert.Empty(t, created.Items)

	name := "Lobby v2"
	active := true
	updated, err := api.UpdatePlaylist(ctx, created.ID, client.UpdatePlaylistRequest{Name: &name, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, "Lobby v2", updated.Name)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "front desk", updated.Description, "unset fields stay untouched")

	got, err := api.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lobby v2", got.Name)

	require.NoError(t, api.DeletePlaylist(ctx, created.ID))
	_, err = api.GetPlaylist(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestCreateRequiresName(t *testing.T) {
	_, api := newTestBackend(t)

	_, err := api.CreatePlaylist(context.Background(), client.CreatePlaylistRequest{})
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, client.KindValidation, apiErr.Kind)
	assert.Equal(t, "name", apiErr.Field)
}

func TestItemLifecycle(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())
	ctx := context.Background()

	pos := 1
	p, err := api.AddItem(ctx, "p1", client.AddItemRequest{MediaID: "m9", Position: &pos, Duration: 5})
	require.NoError(t, err)
	require.Len(t, p.Items, 3)
	assert.Equal(t, "m9", p.Items[1].MediaID)
	assert.Equal(t, 35, p.TotalDuration)
	for i, it := range p.Items {
		assert.Equal(t, i, it.Order)
	}

	p, err = api.ReorderItems(ctx, "p1", []string{p.Items[2].ID, p.Items[0].ID, p.Items[1].ID})
	require.NoError(t, err)
	assert.Equal(t, "m2", p.Items[0].MediaID)

	dur := 60
	p, err = api.UpdateItemSettings(ctx, "p1", "i1", client.UpdateItemRequest{Duration: &dur})
	require.NoError(t, err)
	assert.Equal(t, 85, p.TotalDuration)

	p, err = api.RemoveItem(ctx, "p1", "i2")
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	for i, it := range p.Items {
		assert.Equal(t, i, it.Order)
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())

	_, err := api.ReorderItems(context.Background(), "p1", []string{"i1"})
	assert.True(t, client.IsValidation(err))

	_, err = api.ReorderItems(context.Background(), "p1", []string{"i1", "ghost"})
	assert.True(t, client.IsValidation(err))
}

func TestDuplicateResetsAssignmentAndActivation(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())

	cp, err := api.DuplicatePlaylist(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lobby (copy)", cp.Name)
	assert.False(t, cp.IsActive)
	assert.Empty(t, cp.AssignedScreens)
	assert.NotEqual(t, "p1", cp.ID)
	require.Len(t, cp.Items, 2)
	assert.NotEqual(t, "i1", cp.Items[0].ID, "copies get fresh item ids")
}

func TestListFiltersAndPaginates(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())
	inactive := seeded()
	inactive.ID = "p2"
	inactive.Name = "Warehouse"
	inactive.IsActive = false
	inactive.AssignedScreens = []string{"s2"}
	srv.Seed(inactive)
	ctx := context.Background()

	page, err := api.ListPlaylists(ctx, model.PlaylistFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	active := true
	page, err = api.ListPlaylists(ctx, model.PlaylistFilters{IsActive: &active}, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Playlists, 1)
	assert.Equal(t, "Lobby", page.Playlists[0].Name)

	page, err = api.ListPlaylists(ctx, model.PlaylistFilters{Search: "ware"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Playlists, 1)
	assert.Equal(t, "Warehouse", page.Playlists[0].Name)

	page, err = api.ListPlaylists(ctx, model.PlaylistFilters{ScreenID: "s2"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Playlists, 1)
	assert.Equal(t, "p2", page.Playlists[0].ID)

	page, err = api.ListPlaylists(ctx, model.PlaylistFilters{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Playlists, 1)
	assert.Equal(t, "Warehouse", page.Playlists[0].Name, "name-sorted second page")
}

func TestScreenAssignment(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())
	ctx := context.Background()

	p, err := api.AssignScreens(ctx, "p1", []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, p.AssignedScreens)

	p, err = api.UnassignScreens(ctx, "p1", []string{"s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, p.AssignedScreens)
}

func TestListScreensCatalog(t *testing.T) {
	_, api := newTestBackend(t)

	screens, err := api.ListScreens(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, screens)
	assert.Equal(t, "s1", screens[0].ID)
}

func TestStatsAggregation(t *testing.T) {
	srv, api := newTestBackend(t)
	srv.Seed(seeded())
	second := seeded()
	second.ID = "p2"
	second.IsActive = false
	second.AssignedScreens = []string{"s1", "s2"}
	srv.Seed(second)

	stats, err := api.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 4, stats.TotalItems)
	assert.Equal(t, 2, stats.ScreensCovered)
}

func TestUnknownPlaylistIs404(t *testing.T) {
	_, api := newTestBackend(t)
	ctx := context.Background()

	_, err := api.GetPlaylist(ctx, "ghost")
	assert.True(t, client.IsNotFound(err))
	_, err = api.AddItem(ctx, "ghost", client.AddItemRequest{MediaID: "m1"})
	assert.True(t, client.IsNotFound(err))
	_, err = api.RemoveItem(ctx, "p1", "i1")
	assert.True(t, client.IsNotFound(err))
}
