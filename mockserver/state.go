package mockserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signcast/model"
)

// state is the mock backend's in-memory playlist store. It enforces the
// same invariants the real backend does: contiguous item order and derived
// total duration after every mutation.
type state struct {
	mu        sync.RWMutex
	playlists map[string]*model.Playlist
	screens   []model.Screen
}

func newState() *state {
	return &state{
		playlists: make(map[string]*model.Playlist),
		screens: []model.Screen{
			{ID: "s1", Name: "Lobby North", Location: "lobby", Online: true},
			{ID: "s2", Name: "Lobby South", Location: "lobby", Online: true},
			{ID: "s3", Name: "Cafeteria", Location: "cafeteria", Online: false},
		},
	}
}

func (st *state) listScreens() []model.Screen {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]model.Screen(nil), st.screens...)
}

func (st *state) list(search string, isActive *bool, screenID string, page, limit int) model.PlaylistPage {
	st.mu.RLock()
	defer st.mu.RUnlock()

	matched := make([]model.Playlist, 0, len(st.playlists))
	for _, p := range st.playlists {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		if isActive != nil && p.IsActive != *isActive {
			continue
		}
		if screenID != "" && !containsString(p.AssignedScreens, screenID) {
			continue
		}
		matched = append(matched, *p.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return model.PlaylistPage{Playlists: matched[start:end], Total: total}
}

func (st *state) get(id string) (*model.Playlist, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	p, ok := st.playlists[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (st *state) create(name, description string, schedule *model.Schedule) *model.Playlist {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	p := &model.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Schedule:    schedule,
		Items:       []model.PlaylistItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	st.playlists[p.ID] = p
	return p.Clone()
}

// update applies non-nil fields and returns the updated playlist.
func (st *state) update(id string, name, description *string, isActive *bool, schedule *model.Schedule) (*model.Playlist, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[id]
	if !ok {
		return nil, false
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	if isActive != nil {
		p.IsActive = *isActive
	}
	if schedule != nil {
		p.Schedule = schedule
	}
	p.UpdatedAt = time.Now()
	return p.Clone(), true
}

func (st *state) delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.playlists[id]; !ok {
		return false
	}
	delete(st.playlists, id)
	return true
}

func (st *state) duplicate(id string) (*model.Playlist, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	src, ok := st.playlists[id]
	if !ok {
		return nil, false
	}
	cp := src.Clone()
	cp.ID = uuid.NewString()
	cp.Name = src.Name + " (copy)"
	cp.IsActive = false
	cp.AssignedScreens = []string{}
	for i := range cp.Items {
		cp.Items[i].ID = uuid.NewString()
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	st.playlists[cp.ID] = cp
	return cp.Clone(), true
}

func (st *state) addItem(playlistID, mediaID string, position *int, duration int) (*model.Playlist, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[playlistID]
	if !ok {
		return nil, false
	}
	pos := len(p.Items)
	if position != nil && *position >= 0 && *position < len(p.Items) {
		pos = *position
	}
	item := model.PlaylistItem{ID: uuid.NewString(), MediaID: mediaID, Duration: duration}
	p.Items = append(p.Items, model.PlaylistItem{})
	copy(p.Items[pos+1:], p.Items[pos:])
	p.Items[pos] = item
	p.Renumber()
	p.UpdatedAt = time.Now()
	return p.Clone(), true
}

func (st *state) removeItem(playlistID, itemID string) (*model.Playlist, bool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[playlistID]
	if !ok {
		return nil, false, false
	}
	i := p.ItemIndex(itemID)
	if i < 0 {
		return nil, true, false
	}
	p.Items = append(p.Items[:i], p.Items[i+1:]...)
	p.Renumber()
	p.UpdatedAt = time.Now()
	return p.Clone(), true, true
}

func (st *state) reorder(playlistID string, itemIDs []string) (*model.Playlist, bool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[playlistID]
	if !ok {
		return nil, false, false
	}
	if len(itemIDs) != len(p.Items) {
		return nil, true, false
	}
	byID := make(map[string]model.PlaylistItem, len(p.Items))
	for _, it := range p.Items {
		byID[it.ID] = it
	}
	items := make([]model.PlaylistItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := byID[id]
		if !ok {
			return nil, true, false
		}
		items = append(items, it)
		delete(byID, id)
	}
	p.Items = items
	p.Renumber()
	p.UpdatedAt = time.Now()
	return p.Clone(), true, true
}

func (st *state) updateItem(playlistID, itemID string, duration *int) (*model.Playlist, bool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[playlistID]
	if !ok {
		return nil, false, false
	}
	i := p.ItemIndex(itemID)
	if i < 0 {
		return nil, true, false
	}
	if duration != nil {
		p.Items[i].Duration = *duration
	}
	p.Renumber()
	p.UpdatedAt = time.Now()
	return p.Clone(), true, true
}

func (st *state) setScreens(playlistID string, screenIDs []string, assign bool) (*model.Playlist, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.playlists[playlistID]
	if !ok {
		return nil, false
	}
	if assign {
		for _, id := range screenIDs {
			if !containsString(p.AssignedScreens, id) {
				p.AssignedScreens = append(p.AssignedScreens, id)
			}
		}
	} else {
		out := p.AssignedScreens[:0]
		for _, e := range p.AssignedScreens {
			if !containsString(screenIDs, e) {
				out = append(out, e)
			}
		}
		p.AssignedScreens = out
	}
	p.UpdatedAt = time.Now()
	return p.Clone(), true
}

func (st *state) stats() model.PlaylistStats {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var s model.PlaylistStats
	screens := make(map[string]bool)
	for _, p := range st.playlists {
		s.Total++
		if p.IsActive {
			s.Active++
		}
		s.TotalItems += len(p.Items)
		for _, sc := range p.AssignedScreens {
			screens[sc] = true
		}
	}
	s.ScreensCovered = len(screens)
	return s
}

func containsString(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
