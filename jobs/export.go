package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/loomworks/erpconsole/internal/jobs"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ErrUnknownBook is returned when an export names a book that is not registered.
var ErrUnknownBook = errors.New("jobs: unknown code book")

var safeName = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// BookLookup resolves a code book by key. *codebook.Registry satisfies it.
type BookLookup interface {
	Lookup(key string) (codebook.Book, bool)
}

// ExportJob writes a code book to <Dir>/<book>-<job id>.csv.
type ExportJob struct {
	Books   BookLookup
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewExportJob wires dependencies for the export handler.
func NewExportJob(books BookLookup, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportJob {
	return &ExportJob{Books: books, Dir: dir, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCodebookExport tasks.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Books == nil {
		return errors.New("codebook export: handler not configured")
	}
	var payload ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if !safeName.MatchString(payload.Book) || !safeName.MatchString(payload.JobID) {
		return fmt.Errorf("codebook export: invalid payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskCodebookExport)
	logger := j.logger().With(slog.String("book", payload.Book), slog.String("job_id", payload.JobID))

	book, ok := j.Books.Lookup(payload.Book)
	if !ok {
		logger.Warn("export for unknown book")
		return tracker.End(fmt.Errorf("%w: %s: %w", ErrUnknownBook, payload.Book, asynq.SkipRetry))
	}

	path, rows, err := j.write(ctx, book, payload.JobID)
	if err != nil {
		logger.Error("export failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddExportedRows(payload.Book, rows)
	logger.Info("export written", slog.String("path", path), slog.Int("rows", rows), slog.Int64("requested_by", payload.RequestedBy))
	return tracker.End(nil)
}

// write streams the book into a temporary file and renames it into place
// so readers never see a partial export.
func (j *ExportJob) write(ctx context.Context, book codebook.Book, jobID string) (string, int, error) {
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("codebook export: create dir: %w", err)
	}
	final := ExportPath(j.Dir, book.Key(), jobID)
	tmp, err := os.CreateTemp(j.Dir, ".export-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("codebook export: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	rows, err := book.WriteCSV(ctx, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("codebook export: %s: %w", book.Key(), err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", 0, fmt.Errorf("codebook export: publish: %w", err)
	}
	return final, rows, nil
}

// ExportPath returns where the export of book with jobID is written.
func ExportPath(dir, book, jobID string) string {
	return filepath.Join(dir, book+"-"+jobID+".csv")
}

func (j *ExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// PruneJob deletes CSV exports older than the payload's max age.
type PruneJob struct {
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPruneJob wires dependencies for the prune handler.
func NewPruneJob(dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *PruneJob {
	return &PruneJob{
		Dir:     dir,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskExportPrune tasks.
func (j *PruneJob) Handle(_ context.Context, t *asynq.Task) error {
	var payload PrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxAge <= 0 {
		return nil
	}
	tracker := j.metrics().Track(TaskExportPrune)
	removed, err := j.prune(payload.MaxAge)
	if err != nil {
		j.logger().Error("prune exports", slog.Any("error", err))
		return tracker.End(err)
	}
	if removed > 0 {
		j.logger().Info("pruned exports", slog.Int("removed", removed))
	}
	return tracker.End(nil)
}

func (j *PruneJob) prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(j.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := j.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.Dir, entry.Name())); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (j *PruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *PruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
