package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	p := &Playlist{
		ID:              "p1",
		Name:            "Lobby",
		Items:           []PlaylistItem{{ID: "i1", MediaID: "m1", Duration: 10}},
		AssignedScreens: []string{"s1"},
		Schedule:        &Schedule{StartTime: "09:00", EndTime: "18:00", DaysOfWeek: []string{"mon"}},
	}

	cp := p.Clone()
	cp.Items[0].Duration = 999
	cp.AssignedScreens[0] = "s9"
	cp.Schedule.DaysOfWeek[0] = "sun"

	assert.Equal(t, 10, p.Items[0].Duration)
	assert.Equal(t, "s1", p.AssignedScreens[0])
	assert.Equal(t, "mon", p.Schedule.DaysOfWeek[0])
}

func TestCloneNil(t *testing.T) {
	var p *Playlist
	assert.Nil(t, p.Clone())
}

func TestRenumber(t *testing.T) {
	p := &Playlist{Items: []PlaylistItem{
		{ID: "i1", Duration: 10, Order: 7},
		{ID: "i2", Duration: 20, Order: 3},
	}}
	p.Renumber()

	assert.Equal(t, 0, p.Items[0].Order)
	assert.Equal(t, 1, p.Items[1].Order)
	assert.Equal(t, 30, p.TotalDuration)

	p.Items = nil
	p.Renumber()
	assert.Equal(t, 0, p.TotalDuration)
}

func TestItemIndex(t *testing.T) {
	p := &Playlist{Items: []PlaylistItem{{ID: "i1"}, {ID: "i2"}}}
	assert.Equal(t, 1, p.ItemIndex("i2"))
	assert.Equal(t, -1, p.ItemIndex("ghost"))
}

func TestNewPaginationDerivation(t *testing.T) {
	pg := NewPagination(2, 20, 45)
	require.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext)
	assert.True(t, pg.HasPrev)

	first := NewPagination(1, 20, 45)
	assert.False(t, first.HasPrev)
	assert.True(t, first.HasNext)

	last := NewPagination(3, 20, 45)
	assert.False(t, last.HasNext)

	empty := NewPagination(1, 20, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)

	defaulted := NewPagination(0, 0, 50)
	assert.Equal(t, 1, defaulted.Page)
	assert.Equal(t, 20, defaulted.Limit)
}
