package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCodebookExport writes one code book to a CSV file.
	TaskCodebookExport = "codebook:export"
	// TaskExportPrune removes export files past their retention.
	TaskExportPrune = "codebook:export_prune"
)

// ExportPayload describes a requested code book export.
type ExportPayload struct {
	JobID       string    `json:"job_id"`
	Book        string    `json:"book"`
	RequestedBy int64     `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportTask constructs an Asynq task. The job id doubles as the task id
// so a retried enqueue cannot produce two files.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCodebookExport, data, asynq.TaskID(payload.JobID), asynq.MaxRetry(3)), nil
}

// PrunePayload configures an export prune run.
type PrunePayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewPruneTask constructs the periodic prune task.
func NewPruneTask(maxAge time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PrunePayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportPrune, data), nil
}
