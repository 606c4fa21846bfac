package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("codebook:export").End(nil))
	boom := errors.New("disk full")
	assert.ErrorIs(t, m.Track("codebook:export").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("codebook:export", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("codebook:export", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("codebook:export")))
}

func TestAddExportedRowsIgnoresEmptyRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddExportedRows("yarn-codes", 48)
	m.AddExportedRows("yarn-codes", 0)
	assert.Equal(t, 48.0, testutil.ToFloat64(m.rows.WithLabelValues("yarn-codes")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddExportedRows("yarn-codes", 3)
	assert.NoError(t, m.Track("x").End(nil))
}
