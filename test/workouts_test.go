package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2beens/fittrack/internal/stats"
	"github.com/2beens/fittrack/internal/stopwatch"
	"github.com/2beens/fittrack/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) do(ctx context.Context, method, path string, body any) (int, []byte) {
	t := s.T()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

// storedDocument reads the persisted document straight from postgres.
func (s *IntegrationTestSuite) storedDocument(ctx context.Context) workouts.AppState {
	t := s.T()
	var raw []byte
	err := s.DB.QueryRowContext(ctx, "SELECT doc FROM fittrack_state WHERE key = $1", "fittrack").Scan(&raw)
	require.NoError(t, err)

	state, repaired := workouts.DecodeAppState(raw)
	require.False(t, repaired)
	return state
}

func (s *IntegrationTestSuite) TestWorkoutsLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, body := s.do(ctx, "POST", "/settings/reset", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(ctx, "POST", "/workouts", map[string]any{
		"type": "Run", "duration": 32, "calories": 310, "steps": 4200, "notes": "Park loops",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created workouts.Workout
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = s.do(ctx, "PUT", "/workouts/"+created.ID, map[string]any{"notes": "Park loops x3"})
	require.Equal(t, http.StatusOK, status, string(body))

	stored := s.storedDocument(ctx)
	require.Len(t, stored.Workouts, 1)
	assert.Equal(t, created.ID, stored.Workouts[0].ID)
	assert.Equal(t, "Park loops x3", stored.Workouts[0].Notes)
	assert.Equal(t, 4200, stored.Workouts[0].Steps)

	status, body = s.do(ctx, "GET", "/stats/dashboard", nil)
	require.Equal(t, http.StatusOK, status)
	var dash stats.Dashboard
	require.NoError(t, json.Unmarshal(body, &dash))
	assert.Equal(t, 4200, dash.Totals.Steps)
	assert.Equal(t, 53, dash.Rings.Steps.Percent)

	status, body = s.do(ctx, "DELETE", "/workouts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"found":true}`, string(body))

	status, body = s.do(ctx, "DELETE", "/workouts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"found":false}`, string(body))

	assert.Empty(t, s.storedDocument(ctx).Workouts)
}

func (s *IntegrationTestSuite) TestSettingsAndTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, _ := s.do(ctx, "POST", "/settings/reset", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(ctx, "PUT", "/settings/goals", map[string]any{"steps": 10000, "mins": 0})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"steps":10000,"mins":30,"cals":500}`, string(body))

	status, body = s.do(ctx, "PUT", "/settings/theme", map[string]any{"theme": "toggle"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"theme":"light"}`, string(body))

	status, _ = s.do(ctx, "POST", "/timer/start", map[string]any{"type": "Walk"})
	require.Equal(t, http.StatusOK, status)
	status, body = s.do(ctx, "POST", "/timer/stop", nil)
	require.Equal(t, http.StatusOK, status)
	var stopResp struct {
		Stopped bool              `json:"stopped"`
		Workout *workouts.Workout `json:"workout"`
	}
	require.NoError(t, json.Unmarshal(body, &stopResp))
	require.True(t, stopResp.Stopped)
	require.NotNil(t, stopResp.Workout)
	assert.Equal(t, 1, stopResp.Workout.Duration)
	assert.Equal(t, stopwatch.TimerNotes, stopResp.Workout.Notes)

	stored := s.storedDocument(ctx)
	assert.Equal(t, workouts.ThemeLight, stored.Theme)
	assert.Equal(t, 10000, stored.Goals.Steps)
	assert.Len(t, stored.Workouts, 1)

	status, body = s.do(ctx, "GET", "/export", nil)
	require.Equal(t, http.StatusOK, status)
	exported, repaired := workouts.DecodeAppState(body)
	assert.False(t, repaired)
	assert.Equal(t, stored, exported)
}
