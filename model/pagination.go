package model

// PlaylistFilters narrow the playlist list view. Search is committed by the
// store's debouncer, not written directly on each keystroke.
type PlaylistFilters struct {
	Search   string `json:"search"`
	IsActive *bool  `json:"isActive,omitempty"`
	ScreenID string `json:"screenId,omitempty"`
}

// Pagination is fully derived from page, limit and total. Construct it with
// NewPagination; never adjust HasNext/HasPrev/TotalPages independently.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives the full pagination state.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// PlaylistPage is one page of list results plus the backend's total count.
type PlaylistPage struct {
	Playlists []Playlist `json:"playlists"`
	Total     int        `json:"total"`
}
