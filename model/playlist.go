package model

import "time"

// Playlist is a named, ordered sequence of media items shown on assigned
// screens. Items carry a contiguous zero-based Order; TotalDuration is
// derived from the items and never set directly.
type Playlist struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	IsActive        bool           `json:"isActive"`
	Items           []PlaylistItem `json:"items"`
	AssignedScreens []string       `json:"assignedScreens"`
	TotalDuration   int            `json:"totalDuration"` // seconds, derived
	Schedule        *Schedule      `json:"schedule,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// PlaylistItem is one entry in a playlist's playback sequence.
type PlaylistItem struct {
	ID       string `json:"id"`
	MediaID  string `json:"mediaId"`
	Duration int    `json:"duration"` // seconds; display time for this item
	Order    int    `json:"order"`    // zero-based position, contiguous
}

// Schedule restricts when a playlist plays.
type Schedule struct {
	StartTime  string   `json:"startTime"` // "HH:MM"
	EndTime    string   `json:"endTime"`   // "HH:MM"
	DaysOfWeek []string `json:"daysOfWeek"`
}

// PlaylistStats are backend aggregate numbers shown on the dashboard.
type PlaylistStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	TotalItems     int `json:"totalItems"`
	ScreensCovered int `json:"screensCovered"`
}

// Clone returns a deep copy of the playlist. Mutation snapshots and
// conflict records must not alias live store state.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Items = append([]PlaylistItem(nil), p.Items...)
	cp.AssignedScreens = append([]string(nil), p.AssignedScreens...)
	if p.Schedule != nil {
		sched := *p.Schedule
		sched.DaysOfWeek = append([]string(nil), p.Schedule.DaysOfWeek...)
		cp.Schedule = &sched
	}
	return &cp
}

// Renumber rewrites item orders as 0..n-1 in current slice order and
// recomputes TotalDuration.
func (p *Playlist) Renumber() {
	total := 0
	for i := range p.Items {
		p.Items[i].Order = i
		total += p.Items[i].Duration
	}
	p.TotalDuration = total
}

// ItemIndex returns the index of the item with the given id, or -1.
func (p *Playlist) ItemIndex(itemID string) int {
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
