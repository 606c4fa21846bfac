package codebook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
)

func newTestService(t *testing.T, n int) (*Service[thread], *auditSpy, *metricsSpy) {
	t.Helper()
	audit := &auditSpy{}
	metrics := &metricsSpy{}
	svc := NewService(threadDef, NewMemoryStore(threadDef, seedThreads(n)...), ServiceDeps{
		Cache:   newTestCache(t),
		Audit:   audit,
		Metrics: metrics,
	})
	return svc, audit, metrics
}

func TestServiceCreateValidates(t *testing.T) {
	svc, audit, _ := newTestService(t, 0)

	_, err := svc.Create(context.Background(), 1, thread{Color: "Ultramarine Blue"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	var fe httpx.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "is required", fe["code"])
	assert.Equal(t, "is required", fe["name"])
	assert.Equal(t, "must be at most 10 characters", fe["color"])
	assert.Empty(t, audit.actions())
}

func TestServiceMutationsBumpGeneration(t *testing.T) {
	svc, audit, metrics := newTestService(t, 3)
	ctx := context.Background()

	records, gen, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	created, err := svc.Create(ctx, 7, thread{Base: Base{Code: "T100", Name: "Hundred"}})
	require.NoError(t, err)

	records, next, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Greater(t, next, gen)

	_, err = svc.Update(ctx, 7, created.ID, thread{Base: Base{Code: "T100", Name: "Hundred!"}})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 7, created.ID))

	assert.Equal(t, []string{"create", "update", "delete"}, audit.actions())
	assert.Equal(t, 1, metrics.counts["thread-codes/create"])
	assert.Equal(t, 1, metrics.counts["thread-codes/delete"])
	assert.Equal(t, int64(7), audit.entries[0].ActorID)
	assert.Equal(t, "T100", audit.entries[0].Meta["code"])
}

func TestServiceListServesFreshPagesAfterMutation(t *testing.T) {
	svc, _, _ := newTestService(t, 12)
	ctx := context.Background()

	page, err := svc.List(ctx, shared.ListFilters{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 5)

	_, err = svc.Create(ctx, 1, thread{Base: Base{Code: "T200", Name: "Extra"}})
	require.NoError(t, err)

	page, err = svc.List(ctx, shared.ListFilters{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 13, page.Total)
}

func TestServiceDuplicatePicksFreeCopyCode(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	ctx := context.Background()

	first, err := svc.Duplicate(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "T001-COPY", first.Code)
	assert.Equal(t, "Thread 1", first.Name)
	assert.NotEqual(t, int64(1), first.ID)

	second, err := svc.Duplicate(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "T001-COPY2", second.Code)

	_, err = svc.Duplicate(ctx, 1, 99)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceBulkDelete(t *testing.T) {
	svc, audit, _ := newTestService(t, 6)
	ctx := context.Background()

	_, err := svc.BulkDelete(ctx, 1, nil)
	assert.ErrorIs(t, err, shared.ErrNoSelection)

	_, err = svc.BulkDelete(ctx, 1, []int64{1, -2})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, before, err := svc.All(ctx)
	require.NoError(t, err)
	n, err := svc.BulkDelete(ctx, 1, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	records, after, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Greater(t, after, before)
	assert.Equal(t, []string{"bulk_delete"}, audit.actions())
}

func TestServiceExport(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	_, err := svc.Export(context.Background(), 1)
	assert.ErrorIs(t, err, ErrExportUnavailable)

	exporter := &exporterStub{}
	svc = NewService(threadDef, NewMemoryStore(threadDef), ServiceDeps{Exporter: exporter})
	id, err := svc.Export(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.Equal(t, []string{"thread-codes"}, exporter.books)
}

func TestServiceGetRejectsInvalidID(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	_, err := svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestServiceWithoutRedisStillTracksGeneration(t *testing.T) {
	svc := NewService(threadDef, NewMemoryStore(threadDef, seedThreads(2)...), ServiceDeps{})
	ctx := context.Background()

	_, gen, err := svc.All(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 0, 1))
	records, next, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NotEqual(t, gen, next)
}
