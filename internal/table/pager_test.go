package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeWindow(t *testing.T) {
	tests := []struct {
		name                       string
		current, total, start, max int
		wantStart, wantEnd         int
	}{
		{name: "first page", current: 1, total: 10, start: 1, max: 4, wantStart: 1, wantEnd: 4},
		{name: "fewer pages than buttons", current: 2, total: 3, start: 2, max: 4, wantStart: 1, wantEnd: 3},
		{name: "start past the high clamp", current: 10, total: 10, start: 9, max: 4, wantStart: 7, wantEnd: 10},
		{name: "current behind window snaps", current: 1, total: 10, start: 5, max: 4, wantStart: 1, wantEnd: 4},
		{name: "current ahead of window", current: 9, total: 10, start: 1, max: 4, wantStart: 6, wantEnd: 9},
		{name: "start below one", current: 1, total: 10, start: -2, max: 4, wantStart: 1, wantEnd: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeWindow(tt.current, tt.total, tt.start, tt.max)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
			assert.Len(t, w.Pages, tt.wantEnd-tt.wantStart+1)
			assert.True(t, w.Contains(tt.current))
		})
	}
}

func TestComputeWindowNoPages(t *testing.T) {
	w := ComputeWindow(1, 0, 1, 4)
	assert.Empty(t, w.Pages)
}

func TestPagerSlidesOnlyAtWindowEdge(t *testing.T) {
	p := NewPager(10, 4)
	for i := 0; i < 3; i++ {
		assert.True(t, p.Next())
	}
	assert.Equal(t, 4, p.Current())
	assert.Equal(t, 1, p.WindowStart())

	assert.True(t, p.Next())
	assert.Equal(t, 5, p.Current())
	assert.Equal(t, 2, p.WindowStart())
	assert.Equal(t, []int{2, 3, 4, 5}, p.Window().Pages)
}

func TestPagerPreviousSlidesAtFirstEntry(t *testing.T) {
	p := RestorePager(5, 10, 2, 4)
	assert.True(t, p.Previous())
	assert.Equal(t, 4, p.Current())
	assert.Equal(t, 2, p.WindowStart())

	p = RestorePager(2, 10, 2, 4)
	assert.True(t, p.Previous())
	assert.Equal(t, 1, p.Current())
	assert.Equal(t, 1, p.WindowStart())
}

func TestPagerGuardsAtBounds(t *testing.T) {
	p := NewPager(3, 4)
	assert.False(t, p.CanPrevious())
	assert.False(t, p.Previous())
	assert.Equal(t, 1, p.Current())

	p = RestorePager(3, 3, 1, 4)
	assert.False(t, p.CanNext())
	assert.False(t, p.Next())
	assert.Equal(t, 3, p.Current())
}

func TestPagerGoToInsideWindowKeepsStart(t *testing.T) {
	p := RestorePager(5, 10, 3, 4)
	assert.True(t, p.GoTo(3))
	assert.Equal(t, 3, p.WindowStart())
	assert.True(t, p.GoTo(6))
	assert.Equal(t, 3, p.WindowStart())
}

func TestPagerGoToOutsideWindowPullsEdge(t *testing.T) {
	p := NewPager(10, 4)
	assert.True(t, p.GoTo(8))
	assert.Equal(t, 5, p.WindowStart())
	assert.True(t, p.GoTo(2))
	assert.Equal(t, 2, p.WindowStart())
	assert.True(t, p.GoTo(99))
	assert.Equal(t, 10, p.Current())
	assert.Equal(t, 7, p.WindowStart())
}

func TestPagerResetSnapsWindow(t *testing.T) {
	p := RestorePager(7, 10, 5, 4)
	p.Reset()
	assert.Equal(t, 1, p.Current())
	assert.Equal(t, 1, p.WindowStart())
}

func TestPagerSetTotalShrinks(t *testing.T) {
	p := RestorePager(8, 10, 5, 4)
	p.SetTotal(3)
	assert.Equal(t, 3, p.Current())
	assert.Equal(t, 1, p.WindowStart())
}
