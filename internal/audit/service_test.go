package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/shared"
)

type stubRepo struct {
	entries    []Entry
	lastFilter Filters
	lastOffset int
	lastLimit  int
}

func (s *stubRepo) Window(_ context.Context, f Filters, offset, limit int) ([]Entry, error) {
	s.lastFilter, s.lastOffset, s.lastLimit = f, offset, limit
	return s.entries, nil
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{entries: []Entry{{Action: "create"}, {Action: "update"}, {Action: "delete"}}}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), Filters{Page: 2, PageSize: 2, To: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 1, res.Paging.PrevPage)
	assert.Equal(t, 3, res.Paging.NextPage)
	assert.Equal(t, 2, repo.lastOffset)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), repo.lastFilter.To)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	res, err := NewService(repo).Timeline(context.Background(), Filters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, res.Paging.PageSize)
	assert.Equal(t, 1, res.Paging.Page)
	assert.False(t, res.Paging.HasNext)
	assert.Zero(t, res.Paging.PrevPage)
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), Filters{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewService(nil).Export(context.Background(), Filters{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMemoryLogFiltersNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []string{"create", "update", "update", "delete"} {
		require.NoError(t, log.Record(ctx, shared.AuditLog{
			ActorID: 1, Action: action, Entity: "yarn-codes", EntityID: "7",
			Meta: map[string]any{"code": "YRN-007"}, At: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, log.Record(ctx, shared.AuditLog{ActorID: 2, Action: "create", Entity: "item-codes", EntityID: "1", At: base}))
	assert.Error(t, log.Record(ctx, shared.AuditLog{Action: "create"}))

	got, err := log.Window(ctx, Filters{Entity: "yarn-codes"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "delete", got[0].Action)
	assert.Equal(t, "YRN-007", got[0].Code())

	got, err = log.Window(ctx, Filters{Action: "update"}, 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, base.Add(time.Hour), got[0].At)

	got, err = log.Window(ctx, Filters{From: base.Add(2 * time.Hour), To: base.Add(3 * time.Hour)}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "update", got[0].Action)

	got, err = log.Window(ctx, Filters{}, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, WriteCSV(&buf, []Entry{
		{At: at, ActorID: 3, Actor: "clerk@loom.local", Action: "update", Entity: "fabric-codes", EntityID: "4", Meta: map[string]any{"code": "FAB-004"}},
		{At: at, ActorID: 3, Action: "bulk_delete", Entity: "fabric-codes", EntityID: "bulk"},
	}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2026-05-01T09:00:00Z", "3", "clerk@loom.local", "update", "fabric-codes", "4", "FAB-004"}, rows[1])
	assert.Equal(t, "", rows[2][6])
}
