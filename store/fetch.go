package store

import (
	"context"

	"signcast/logger"
	"signcast/model"
)

// FetchPlaylists loads the current page of the playlist list, serving from
// the list cache while fresh. Concurrent calls for the same key share one
// backend request.
func (s *Store) FetchPlaylists(ctx context.Context) ([]model.Playlist, error) {
	s.mu.RLock()
	filters := s.filters
	page := s.pagination.Page
	limit := s.pagination.Limit
	s.mu.RUnlock()

	key := ListKey(filters, page, limit)
	if cached, ok := s.cache.GetList(key); ok {
		s.mu.Lock()
		s.playlists = cached.Playlists
		s.pagination = model.NewPagination(page, limit, cached.Total)
		s.mu.Unlock()
		return s.Playlists(), nil
	}

	result, err, _ := s.group.Do("list:"+key, func() (interface{}, error) {
		return s.api.ListPlaylists(ctx, filters, page, limit)
	})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	pageResult := result.(*model.PlaylistPage)
	s.cache.SetList(key, *pageResult)

	s.mu.Lock()
	s.playlists = make([]model.Playlist, len(pageResult.Playlists))
	for i := range pageResult.Playlists {
		s.playlists[i] = *pageResult.Playlists[i].Clone()
	}
	s.pagination = model.NewPagination(page, limit, pageResult.Total)
	s.mu.Unlock()

	return s.Playlists(), nil
}

// FetchPlaylist loads one playlist through the entity cache. It does not
// change the editing target; see OpenPlaylist.
func (s *Store) FetchPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	if cached, ok := s.cache.GetEntity(id); ok {
		return cached, nil
	}

	result, err, _ := s.group.Do("entity:"+id, func() (interface{}, error) {
		return s.api.GetPlaylist(ctx, id)
	})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	p := result.(*model.Playlist)
	s.cache.SetEntity(id, p)
	return p.Clone(), nil
}

// FetchScreens loads the screen catalog for the assignment picker.
func (s *Store) FetchScreens(ctx context.Context) ([]model.Screen, error) {
	screens, err := s.api.ListScreens(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.screens = append([]model.Screen(nil), screens...)
	s.mu.Unlock()
	return screens, nil
}

// Screens returns the last fetched screen catalog.
func (s *Store) Screens() []model.Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Screen(nil), s.screens...)
}

// FetchStats loads aggregate playlist numbers for the dashboard.
func (s *Store) FetchStats(ctx context.Context) (*model.PlaylistStats, error) {
	stats, err := s.api.FetchStats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	cp := *stats
	return &cp, nil
}

// Pagination returns the derived pagination state.
func (s *Store) Pagination() model.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Filters returns the committed filter state.
func (s *Store) Filters() model.PlaylistFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetPage moves to another page and refetches.
func (s *Store) SetPage(ctx context.Context, page int) ([]model.Playlist, error) {
	s.mu.Lock()
	s.pagination = model.NewPagination(page, s.pagination.Limit, s.pagination.Total)
	s.mu.Unlock()
	return s.FetchPlaylists(ctx)
}

// SetLimit changes the page size, resets to page 1, and refetches.
func (s *Store) SetLimit(ctx context.Context, limit int) ([]model.Playlist, error) {
	s.mu.Lock()
	s.pagination = model.NewPagination(1, limit, s.pagination.Total)
	s.persistPrefsLocked()
	s.mu.Unlock()
	return s.FetchPlaylists(ctx)
}

// SetActiveFilter narrows the list to active (or inactive) playlists. Any
// filter change resets the page to 1.
func (s *Store) SetActiveFilter(ctx context.Context, isActive *bool) ([]model.Playlist, error) {
	s.mu.Lock()
	s.filters.IsActive = isActive
	s.pagination = model.NewPagination(1, s.pagination.Limit, s.pagination.Total)
	s.persistPrefsLocked()
	s.mu.Unlock()
	return s.FetchPlaylists(ctx)
}

// SetScreenFilter narrows the list to playlists assigned to a screen.
func (s *Store) SetScreenFilter(ctx context.Context, screenID string) ([]model.Playlist, error) {
	s.mu.Lock()
	s.filters.ScreenID = screenID
	s.pagination = model.NewPagination(1, s.pagination.Limit, s.pagination.Total)
	s.persistPrefsLocked()
	s.mu.Unlock()
	return s.FetchPlaylists(ctx)
}

// SetSearch records the raw search input and commits it to the filter state
// after the debounce interval. A keystroke before the interval elapses
// cancels the pending commit.
func (s *Store) SetSearch(term string) {
	s.mu.Lock()
	s.searchInput = term
	s.mu.Unlock()

	s.debouncer.Trigger(func() {
		s.mu.Lock()
		s.filters.Search = term
		s.pagination = model.NewPagination(1, s.pagination.Limit, s.pagination.Total)
		s.persistPrefsLocked()
		s.mu.Unlock()

		if _, err := s.FetchPlaylists(context.Background()); err != nil {
			logger.Warn("search refetch failed", logger.ErrorField(err))
		}
	})
}

// SearchInput returns the uncommitted search text.
func (s *Store) SearchInput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchInput
}

func (s *Store) persistPrefsLocked() {
	if s.prefsPath == "" {
		return
	}
	if err := savePrefs(s.prefsPath, prefs{Filters: s.filters, Limit: s.pagination.Limit}); err != nil {
		logger.Warn("failed to persist preferences", logger.ErrorField(err))
	}
}
