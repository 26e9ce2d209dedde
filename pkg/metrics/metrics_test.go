package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.ObserveRequest(PhaseCandidate, "Success", 120*time.Millisecond)
	r.ObserveRequest(PhaseCandidate, "Success", 80*time.Millisecond)
	r.ObserveRequest(PhaseCandidate, "Timeout", 0)
	r.AddSignal("INT_OVERFLOW", "HTTP_STATUS_CODE_5XX_500")
	r.AddFinding("INT_OVERFLOW", "high")
	r.BaselineFailed("ConnectionError")
	r.CampaignDone("completed")
	r.Inflight(2)
	r.Inflight(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues(PhaseCandidate, "Success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues(PhaseCandidate, "Timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("INT_OVERFLOW", "HTTP_STATUS_CODE_5XX_500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.findingsTotal.WithLabelValues("INT_OVERFLOW", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.baselineFailuresTotal.WithLabelValues("ConnectionError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.campaignsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.inflight))
	assert.Equal(t, 1, testutil.CollectAndCount(r.responseTimeSeconds))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRequest(PhaseBaseline, "Success", time.Second)
		r.AddSignal("x", "y")
		r.AddFinding("x", "low")
		r.BaselineFailed("Timeout")
		r.CampaignDone("canceled")
		r.Inflight(1)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecorder_Handler(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	r.AddFinding("COMMAND_INJECTION", "high")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sigfuzz_findings_total{severity="high",test="COMMAND_INJECTION"} 1`)
}

func TestRecorder_Isolated(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)
	a.CampaignDone("completed")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.campaignsTotal.WithLabelValues("completed")))
}

func TestServe(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	r.CampaignDone("completed")

	s, err := Serve("127.0.0.1:0", r, nil)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	assert.True(t, strings.HasSuffix(s.URL(), "/metrics"))
	resp, err := http.Get(s.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "sigfuzz_campaigns_total")
}
