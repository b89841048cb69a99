package metrics

import (
	"testing"

	domrepo "RiskScreen/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domrepo.Metrics = (*Recorder)(nil)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWith(reg)

	r.RecordQuery("virtual_growth", 0.02, 3)
	r.RecordQuery("virtual_growth", 0.01, 0)
	r.RecordError("snapshot_panel")
	r.RecordSnapshot(1200, 4)
	r.RecordFlags("negative_streak", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.queries.WithLabelValues("virtual_growth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("snapshot_panel")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(r.snapshotRows))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.snapshotVersion))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.flagged.WithLabelValues("negative_streak")))

	n, err := testutil.GatherAndCount(reg, "riskscreen_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
