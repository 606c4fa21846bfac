package jobs

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/loomworks/erpconsole/internal/jobs"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/masterdata/yarns"
)

func newRegistry(t *testing.T) *codebook.Registry {
	t.Helper()
	reg, err := codebook.NewRegistry(yarns.New(codebook.Deps{}))
	require.NoError(t, err)
	return reg
}

func exportTask(t *testing.T, payload ExportPayload) *asynq.Task {
	t.Helper()
	task, err := NewExportTask(payload)
	require.NoError(t, err)
	return task
}

func TestExportJobWritesCSV(t *testing.T) {
	dir := t.TempDir()
	job := NewExportJob(newRegistry(t), dir, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), exportTask(t, ExportPayload{JobID: "abc-123", Book: "yarn-codes", RequestedBy: 1}))
	require.NoError(t, err)

	f, err := os.Open(ExportPath(dir, "yarn-codes", "abc-123"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 49)
	assert.Equal(t, "id", rows[0][0])
	assert.Contains(t, rows[0], "count")
	assert.Equal(t, "YRN-001", rows[1][1])

	leftovers, err := filepath.Glob(filepath.Join(dir, ".export-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExportJobUnknownBookSkipsRetry(t *testing.T) {
	job := NewExportJob(newRegistry(t), t.TempDir(), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), exportTask(t, ExportPayload{JobID: "j1", Book: "nope"}))
	assert.ErrorIs(t, err, ErrUnknownBook)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestExportJobRejectsUnsafePayload(t *testing.T) {
	job := NewExportJob(newRegistry(t), t.TempDir(), nil, nil)

	err := job.Handle(context.Background(), exportTask(t, ExportPayload{JobID: "../../etc", Book: "yarn-codes"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskCodebookExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPruneJobRemovesOldExports(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "yarn-codes-old.csv")
	fresh := filepath.Join(dir, "yarn-codes-new.csv")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("id\n"), 0o644))
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(old, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(other, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	job := NewPruneJob(dir, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return now }
	task, err := NewPruneTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestPruneJobMissingDirIsNoop(t *testing.T) {
	job := NewPruneJob(filepath.Join(t.TempDir(), "missing"), nil, nil)
	task, err := NewPruneTask(time.Hour)
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "x", Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClientEnqueueExport(t *testing.T) {
	fake := &fakeEnqueuer{}
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := &Client{client: fake, clock: func() time.Time { return now }}

	id, err := c.EnqueueExport(context.Background(), "item-codes", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskCodebookExport, fake.tasks[0].Type())

	var payload ExportPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, id, payload.JobID)
	assert.Equal(t, "item-codes", payload.Book)
	assert.Equal(t, int64(7), payload.RequestedBy)
	assert.True(t, now.Equal(payload.RequestedAt))

	var _ codebook.Exporter = c
}

func TestClientEnqueueExportFailure(t *testing.T) {
	boom := errors.New("redis down")
	c := &Client{client: &fakeEnqueuer{err: boom}, clock: time.Now}
	_, err := c.EnqueueExport(context.Background(), "item-codes", 1)
	assert.ErrorIs(t, err, boom)

	var nilClient *Client
	_, err = nilClient.EnqueueExport(context.Background(), "item-codes", 1)
	assert.Error(t, err)
}

type inspectorStub struct {
	info *asynq.QueueInfo
	err  error
}

func (s inspectorStub) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func serveHealth(h *Handler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := serveHealth(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0,"processed_today":0,"failed_today":0}`, rec.Body.String())
}

func TestHealthReportsQueue(t *testing.T) {
	h := NewHandler(nil, nil)
	h.inspector = inspectorStub{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1, Failed: 2}}
	rec := serveHealth(h)
	require.Equal(t, http.StatusOK, rec.Code)

	var got queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Pending)
	assert.Equal(t, 1, got.Active)
	assert.Equal(t, 2, got.Failed)

	h.inspector = inspectorStub{err: errors.New("no redis")}
	assert.Equal(t, http.StatusServiceUnavailable, serveHealth(h).Code)
}
