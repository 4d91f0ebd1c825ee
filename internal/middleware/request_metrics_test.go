package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager, reg := metrics.NewTestManagerAndRegistry()

	r := mux.NewRouter()
	r.HandleFunc("/workouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}).Methods("GET")
	r.Use(RequestMetrics(metricsManager))

	for _, id := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", "/workouts/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("GET", "404")))

	count, err := testutil.GatherAndCount(reg, "fittrack_test_server_request_duration_seconds")
	require.NoError(t, err)
	// one series for the route template, not one per id
	assert.Equal(t, 1, count)
}

func TestDrainAndCloseRequest(t *testing.T) {
	body := io.NopCloser(strings.NewReader("unread body"))
	var seen io.ReadCloser
	handler := DrainAndCloseRequest(DefaultMaxBodyBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Body
	}))

	req := httptest.NewRequest("POST", "/workouts", nil)
	req.Body = body
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	rest, err := io.ReadAll(seen)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestDrainAndCloseRequest_BodyTooLarge(t *testing.T) {
	var readErr error
	handler := DrainAndCloseRequest(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest("POST", "/workouts", strings.NewReader(`{"type":"Run"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxBytesErr *http.MaxBytesError
	require.ErrorAs(t, readErr, &maxBytesErr)
}
