package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(batchesSubmittedTotal)
	RecordBatchSubmitted()
	assert.Equal(t, before+1, testutil.ToFloat64(batchesSubmittedTotal))

	RecordTaskCreated(true, 3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(tasksCreatedTotal.WithLabelValues("draft")), 3.0)

	RecordReviewDecision("approve")
	assert.GreaterOrEqual(t, testutil.ToFloat64(reviewDecisionsTotal.WithLabelValues("approve")), 1.0)
}

func TestUpdateTasksByStatus_ResetsStaleLabels(t *testing.T) {
	UpdateTasksByStatus(map[string]int{"draft": 2, "done": 1})
	UpdateTasksByStatus(map[string]int{"draft": 5})
	assert.Equal(t, 5.0, testutil.ToFloat64(tasksByStatus.WithLabelValues("draft")))
	assert.Equal(t, 1, testutil.CollectAndCount(tasksByStatus))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/tasks", 200, 0.01)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "api_requests_total"))
}

func TestCollector_RunsSourcesAndJobs(t *testing.T) {
	jobRuns := 0
	c := NewCollector(nil, time.Hour,
		WithStatusSource(func(context.Context) (map[string]int, error) {
			return map[string]int{"in_progress": 4}, nil
		}),
		WithJob(func(context.Context) error {
			jobRuns++
			return errors.New("ignored")
		}),
	)
	c.CollectOnce(context.Background())
	assert.Equal(t, 1, jobRuns)
	assert.Equal(t, 4.0, testutil.ToFloat64(tasksByStatus.WithLabelValues("in_progress")))
}

func TestCollector_StartStop(t *testing.T) {
	c := NewCollector(nil, 10*time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
}
