package store

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signcast/client"
	"signcast/model"
)

func listAPI() *fakeAPI {
	return &fakeAPI{
		playlist: testPlaylist(),
		page:     model.PlaylistPage{Playlists: []model.Playlist{*testPlaylist()}, Total: 45},
		stats:    model.PlaylistStats{Total: 45, Active: 12, TotalItems: 300, ScreensCovered: 7},
	}
}

func (f *fakeAPI) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func TestFetchPlaylistsServesFromCache(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})
	ctx := context.Background()

	list, err := s.FetchPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, api.listCallCount())

	_, err = s.FetchPlaylists(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCallCount(), "fresh page served from cache")
}

func TestFetchPlaylistsDerivesPagination(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})

	_, err := s.FetchPlaylists(context.Background())
	require.NoError(t, err)

	pg := s.Pagination()
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 20, pg.Limit)
	assert.Equal(t, 45, pg.Total)
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext)
	assert.False(t, pg.HasPrev)
}

func TestSetPageRefetchesAndDerives(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})
	ctx := context.Background()

	_, err := s.FetchPlaylists(ctx)
	require.NoError(t, err)
	_, err = s.SetPage(ctx, 3)
	require.NoError(t, err)

	pg := s.Pagination()
	assert.Equal(t, 3, pg.Page)
	assert.False(t, pg.HasNext)
	assert.True(t, pg.HasPrev)
	assert.Equal(t, 2, api.listCallCount(), "page change misses the cache")
}

func TestFilterChangeResetsPage(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})
	ctx := context.Background()

	_, err := s.SetPage(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 3, s.Pagination().Page)

	_, err = s.SetActiveFilter(ctx, boolptr(true))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pagination().Page)

	_, err = s.SetPage(ctx, 2)
	require.NoError(t, err)
	_, err = s.SetScreenFilter(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pagination().Page)
}

func TestSetLimitResetsPage(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})
	ctx := context.Background()

	_, err := s.SetPage(ctx, 2)
	require.NoError(t, err)
	_, err = s.SetLimit(ctx, 50)
	require.NoError(t, err)

	pg := s.Pagination()
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 50, pg.Limit)
}

func TestMutationInvalidatesListCache(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})
	ctx := context.Background()

	_, err := s.FetchPlaylists(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, api.listCallCount())

	require.NoError(t, s.UpdatePlaylist(ctx, "p1", client.UpdatePlaylistRequest{Name: strptr("Lobby v2")}))

	_, err = s.FetchPlaylists(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCallCount(), "mutation drops all cached list pages")
}

func TestSearchDebounceCommitsLastTerm(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{SearchDebounce: 30 * time.Millisecond})

	s.SetSearch("lo")
	s.SetSearch("lob")
	s.SetSearch("lobby")
	assert.Equal(t, "lobby", s.SearchInput())
	assert.Empty(t, s.Filters().Search, "commit waits for the quiet interval")

	require.Eventually(t, func() bool {
		return s.Filters().Search == "lobby"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Pagination().Page)

	// only the final term triggered a fetch
	require.Eventually(t, func() bool {
		return api.listCallCount() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, api.listCallCount())
}

func TestFetchScreens(t *testing.T) {
	api := listAPI()
	api.screens = []model.Screen{{ID: "s1", Name: "Lobby North", Online: true}}
	s, _ := newTestStore(t, api, Options{})

	screens, err := s.FetchScreens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 1)
	assert.Equal(t, "s1", screens[0].ID)
	assert.Equal(t, screens, s.Screens())
}

func TestFetchStats(t *testing.T) {
	api := listAPI()
	s, _ := newTestStore(t, api, Options{})

	stats, err := s.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, stats.Total)
	assert.Equal(t, 12, stats.Active)

	cached := s.Stats()
	require.NotNil(t, cached)
	assert.Equal(t, 7, cached.ScreensCovered)
}

func TestPrefsSurviveRestartWithPageReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	api := listAPI()
	s, _ := newTestStore(t, api, Options{PrefsPath: path})
	ctx := context.Background()

	_, err := s.SetLimit(ctx, 50)
	require.NoError(t, err)
	_, err = s.SetActiveFilter(ctx, boolptr(true))
	require.NoError(t, err)
	_, err = s.SetPage(ctx, 4)
	require.NoError(t, err)

	reloaded, _ := newTestStore(t, listAPI(), Options{PrefsPath: path})
	require.NotNil(t, reloaded.Filters().IsActive)
	assert.True(t, *reloaded.Filters().IsActive)
	assert.Equal(t, 50, reloaded.Pagination().Limit)
	assert.Equal(t, 1, reloaded.Pagination().Page, "page always restarts at 1")
}

func TestDebouncerCancelAndReplace(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	d.Trigger(func() { fired.Add(10) })
	require.Eventually(t, func() bool {
		return fired.Load() == 10
	}, time.Second, 5*time.Millisecond, "only the replacement fires")

	d.Trigger(func() { fired.Add(100) })
	d.Cancel()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(10), fired.Load(), "cancel drops the pending call")
}
