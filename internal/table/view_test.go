package table

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionClearEmptiesSelected(t *testing.T) {
	v, handle := NewView(yarnSchema(t), WithPageSize[yarn](10))
	v.SetRecords(mockYarns(5), 1)

	assert.True(t, v.Toggle("0"))
	assert.True(t, v.Toggle("2"))
	require.Len(t, handle.GetSelectedRows(), 2)

	handle.ClearSelection()
	assert.Empty(t, handle.GetSelectedRows())
}

func TestSelectionReturnsOriginalRecordsInSourceOrder(t *testing.T) {
	records := mockYarns(5)
	v, handle := NewView(yarnSchema(t))
	v.SetRecords(records, 1)
	v.SetSort(SortBy("code", Descending))

	v.Select("3", "1")
	res := v.Result()
	assert.Equal(t, "Y004", res.Rows[0].Record.Code)
	assert.True(t, res.Rows[1].Selected)

	assert.Equal(t, []yarn{records[1], records[3]}, handle.GetSelectedRows())
	assert.Equal(t, []string{"1", "3"}, v.Selection().SelectedIDs())
}

func TestSelectionToggleOffAndUnknownRows(t *testing.T) {
	v, _ := NewView(yarnSchema(t))
	v.SetRecords(mockYarns(2), 1)

	assert.False(t, v.Toggle("9"))
	assert.True(t, v.Toggle("1"))
	assert.False(t, v.Toggle("1"))
	assert.Zero(t, v.Selection().Len())
}

func TestNewGenerationResetsSelectionAndPage(t *testing.T) {
	v, handle := NewView(yarnSchema(t), WithPageSize[yarn](10))
	v.SetRecords(mockYarns(48), 1)
	v.Toggle("4")
	v.SetPage(3)
	require.Equal(t, 3, v.Result().PageIndex)

	v.SetRecords(mockYarns(48), 1)
	assert.Len(t, handle.GetSelectedRows(), 1)

	v.SetRecords(mockYarns(48), 2)
	assert.Empty(t, handle.GetSelectedRows())
	assert.Equal(t, 0, v.Result().PageIndex)
}

func TestViewStoresClampedPage(t *testing.T) {
	v, _ := NewView(yarnSchema(t), WithPageSize[yarn](10))
	v.SetRecords(mockYarns(48), 1)
	v.SetPage(5)

	res := v.Result()
	assert.Equal(t, 4, res.PageIndex)
	assert.Equal(t, 4, v.Page().Index)
}

func TestViewRejectsUnusableColumns(t *testing.T) {
	v, _ := NewView(yarnSchema(t))
	assert.False(t, v.ToggleSort("color"))
	assert.True(t, v.ToggleSort("code"))
	assert.False(t, v.SetFilter("missing", Contains("x")))
	assert.True(t, v.SetFilter("color", Contains("x")))
	assert.True(t, v.SetFilter("color", nil))
	assert.Empty(t, v.Filters())

	v.ClearSort()
	assert.Empty(t, v.Sort())
}

func TestViewLoadingThenEmpty(t *testing.T) {
	v, _ := NewView(yarnSchema(t), WithPageSize[yarn](10))
	v.SetLoading(true)

	res := v.Result()
	assert.True(t, res.Loading)
	assert.False(t, res.Empty)
	assert.Equal(t, 10, res.SkeletonRows(0))
	assert.Equal(t, 3, res.SkeletonRows(3))
	assert.Len(t, res.Columns, 3)
	assert.False(t, res.CanNextPage())

	v.SetRecords(nil, 1)
	res = v.Result()
	assert.False(t, res.Loading)
	assert.True(t, res.Empty)
}

func TestViewSyncWithSource(t *testing.T) {
	src := NewStaticSource(mockYarns(3))
	v, _ := NewView(yarnSchema(t))

	v.Sync(Snapshot[yarn]{State: StateLoading})
	assert.True(t, v.Result().Loading)

	snap, err := src.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	v.Sync(snap)
	assert.Equal(t, 3, v.Result().TotalRows)
	assert.Equal(t, snap.Generation, v.Generation())
}

func TestSourceFailureLeavesEmptyCollection(t *testing.T) {
	boom := errors.New("connection refused")
	src := NewSource(func(context.Context, Query) ([]yarn, error) { return nil, boom })

	snap, err := src.Fetch(context.Background(), Query{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, snap.State)
	assert.NotNil(t, snap.Records)

	v, _ := NewView(yarnSchema(t))
	v.Sync(snap)
	assert.ErrorIs(t, v.Err(), boom)
	assert.True(t, v.Result().Empty)
}

func TestSourceDiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	src := NewSource(func(ctx context.Context, q Query) ([]yarn, error) {
		if q.Search == "slow" {
			started <- struct{}{}
			<-release
			return []yarn{{Code: "OLD"}}, nil
		}
		return []yarn{{Code: "NEW"}}, nil
	})

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = src.Fetch(context.Background(), Query{Search: "slow"})
	}()
	<-started

	snap, err := src.Fetch(context.Background(), Query{Search: "fast"})
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, staleErr, ErrStale)
	latest := src.Snapshot()
	assert.Equal(t, snap.Generation, latest.Generation)
	assert.Equal(t, StateReady, latest.State)
	require.Len(t, latest.Records, 1)
	assert.Equal(t, "NEW", latest.Records[0].Code)
}

func TestKeyedViewSelection(t *testing.T) {
	v, handle := NewView(yarnSchema(t), WithKey(func(y yarn) string { return y.Code }))
	v.SetRecords(mockYarns(3), 1)
	v.Toggle("Y002")
	got := handle.GetSelectedRows()
	require.Len(t, got, 1)
	assert.Equal(t, "Y002", got[0].Code)
}
