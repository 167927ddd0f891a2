package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Submission("write_file", "suspended")
	m.Submission("write_file", "suspended")
	m.Decision("approve", "execute")
	m.Storage("create")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("write_file", "suspended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approve", "execute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageErrors.WithLabelValues("create")))

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "hitl_gate_submissions_total"))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Submission("t", "proceed")
		m.Decision("approve", "execute")
		m.Pending("t", 1)
		m.Tool("t", "ok", 1)
		m.Storage("load")
		m.Breaker("t", 2)
		m.Handler()
	})
}
