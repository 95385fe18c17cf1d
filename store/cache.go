package store

import (
	"fmt"
	"sync"
	"time"

	"signcast/model"
)

// cacheEntry is a value with its fill time; valid while now-timestamp < TTL.
type cacheEntry[T any] struct {
	data      T
	timestamp time.Time
}

// Cache is the two-tier TTL cache: full list pages keyed by
// filters+page+limit, and single entities keyed by id. It is memory-only
// and never persisted. Successful mutations invalidate the touched entity
// eagerly and drop all list pages so the next list read refetches.
type Cache struct {
	mu        sync.Mutex
	listTTL   time.Duration
	entityTTL time.Duration
	lists     map[string]cacheEntry[model.PlaylistPage]
	entities  map[string]cacheEntry[*model.Playlist]
}

// NewCache creates a cache with the given TTLs.
func NewCache(listTTL, entityTTL time.Duration) *Cache {
	return &Cache{
		listTTL:   listTTL,
		entityTTL: entityTTL,
		lists:     make(map[string]cacheEntry[model.PlaylistPage]),
		entities:  make(map[string]cacheEntry[*model.Playlist]),
	}
}

// ListKey derives the list-cache key for a filter/page/limit combination.
func ListKey(f model.PlaylistFilters, page, limit int) string {
	active := "any"
	if f.IsActive != nil {
		active = fmt.Sprintf("%t", *f.IsActive)
	}
	return fmt.Sprintf("q=%s|active=%s|screen=%s|page=%d|limit=%d",
		f.Search, active, f.ScreenID, page, limit)
}

// GetList returns a cached list page if present and fresh.
func (c *Cache) GetList(key string) (*model.PlaylistPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lists[key]
	if !ok || time.Since(e.timestamp) >= c.listTTL {
		delete(c.lists, key)
		return nil, false
	}
	page := clonePage(e.data)
	return &page, true
}

// SetList stores a list page.
func (c *Cache) SetList(key string, page model.PlaylistPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = cacheEntry[model.PlaylistPage]{data: clonePage(page), timestamp: time.Now()}
}

// InvalidateLists drops every list page, forcing a refetch on next read
// regardless of TTL.
func (c *Cache) InvalidateLists() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string]cacheEntry[model.PlaylistPage])
}

// GetEntity returns a cached playlist if present and fresh.
func (c *Cache) GetEntity(id string) (*model.Playlist, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entities[id]
	if !ok || time.Since(e.timestamp) >= c.entityTTL {
		delete(c.entities, id)
		return nil, false
	}
	return e.data.Clone(), true
}

// SetEntity stores a playlist.
func (c *Cache) SetEntity(id string, p *model.Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[id] = cacheEntry[*model.Playlist]{data: p.Clone(), timestamp: time.Now()}
}

// InvalidateEntity drops one playlist entry.
func (c *Cache) InvalidateEntity(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entities, id)
}

func clonePage(p model.PlaylistPage) model.PlaylistPage {
	out := model.PlaylistPage{Total: p.Total, Playlists: make([]model.Playlist, len(p.Playlists))}
	for i := range p.Playlists {
		out.Playlists[i] = *p.Playlists[i].Clone()
	}
	return out
}
