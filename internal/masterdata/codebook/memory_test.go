package codebook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
)

func TestMemoryStoreAssignsIDs(t *testing.T) {
	store := NewMemoryStore(threadDef, seedThreads(3)...)
	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[2].ID)
	assert.False(t, all[0].CreatedAt.IsZero())

	created, err := store.Create(context.Background(), thread{Base: Base{Code: "NEW", Name: "New"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
}

func TestMemoryStoreListSearchSortAndPage(t *testing.T) {
	store := NewMemoryStore(threadDef, seedThreads(30)...)
	ctx := context.Background()

	items, total, err := store.List(ctx, shared.ListFilters{Page: 1, Limit: 5, Search: "blue"})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Len(t, items, 5)
	for _, it := range items {
		assert.Equal(t, "Blue", it.Color)
	}

	items, _, err = store.List(ctx, shared.ListFilters{Page: 1, Limit: 3, SortBy: "code", SortDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "T030", items[0].Code)

	items, total, err = store.List(ctx, shared.ListFilters{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 30, total)
	assert.Empty(t, items)

	items, total, err = store.List(ctx, shared.ListFilters{Page: 1, Limit: 50, Columns: map[string]string{"color": "gre"}})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Len(t, items, 10)
}

func TestMemoryStoreRejectsDuplicateCodes(t *testing.T) {
	store := NewMemoryStore(threadDef, seedThreads(2)...)
	ctx := context.Background()

	_, err := store.Create(ctx, thread{Base: Base{Code: "t001", Name: "Again"}})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = store.Update(ctx, 2, thread{Base: Base{Code: "T001", Name: "Clash"}})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	updated, err := store.Update(ctx, 2, thread{Base: Base{Code: "T002", Name: "Renamed"}, Color: "Ecru"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, int64(2), updated.ID)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(threadDef, seedThreads(5)...)
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, 99), httpx.ErrNotFound)
	require.NoError(t, store.Delete(ctx, 1))
	_, err := store.Get(ctx, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	n, err := store.DeleteMany(ctx, []int64{2, 3, 42})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, _ := store.All(ctx)
	assert.Len(t, all, 2)

	_, err = store.DeleteMany(ctx, nil)
	assert.ErrorIs(t, err, shared.ErrNoSelection)
}

func TestDefinitionDecodeAndValues(t *testing.T) {
	form := map[string]string{"code": " T9 ", "name": "Nine", "color": "Red", "weight": "12", "active": "on"}
	rec, errs := threadDef.Decode(func(name string) (string, bool) {
		v, ok := form[name]
		return v, ok
	})
	require.Nil(t, errs)
	assert.Equal(t, "T9", rec.Code)
	assert.Equal(t, 12, rec.Weight)
	assert.True(t, rec.Active)

	values := threadDef.Values(rec)
	assert.Equal(t, "12", values["weight"])
	assert.Equal(t, "true", values["active"])

	_, errs = threadDef.Decode(func(name string) (string, bool) {
		if name == "weight" {
			return "heavy", true
		}
		return "", false
	})
	assert.Equal(t, "must be a whole number", errs["weight"])
}

func TestDefinitionSchemaSkipsHiddenFields(t *testing.T) {
	var keys []string
	for _, c := range threadDef.Schema().Columns() {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"code", "name", "color", "weight", "updated_at"}, keys)
}

func TestDefinitionValidateRejectsBadFields(t *testing.T) {
	def := &Definition[thread]{
		Key:   "bad",
		Table: "bad",
		Base:  func(t *thread) *Base { return &t.Base },
		Fields: []Field[thread]{
			{Name: "code", Column: "code", Ptr: func(t *thread) any { return &t.Color }},
		},
	}
	assert.Error(t, def.Validate())

	def.Fields = []Field[thread]{{Name: "when", Column: "when", Ptr: func(t *thread) any { return &t.CreatedAt }}}
	assert.Error(t, def.Validate())
}
