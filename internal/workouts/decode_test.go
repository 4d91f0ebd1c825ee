package workouts_test

import (
	"encoding/json"
	"testing"

	"github.com/2beens/fittrack/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAppState_Empty(t *testing.T) {
	state, repaired := workouts.DecodeAppState(nil)
	assert.False(t, repaired)
	assert.Equal(t, workouts.DefaultAppState(), state)

	state, repaired = workouts.DecodeAppState([]byte("  \n"))
	assert.False(t, repaired)
	assert.Equal(t, workouts.DefaultAppState(), state)
}

func TestDecodeAppState_Unparsable(t *testing.T) {
	for _, raw := range []string{`{not json`, `[]`, `"text"`, `42`} {
		state, repaired := workouts.DecodeAppState([]byte(raw))
		assert.True(t, repaired, raw)
		assert.Equal(t, workouts.DefaultAppState(), state, raw)
	}
}

func TestDecodeAppState_FieldByField(t *testing.T) {
	raw := `{
		"theme": "light",
		"goals": {"steps": 10000, "mins": "oops"},
		"workouts": "not a list"
	}`
	state, repaired := workouts.DecodeAppState([]byte(raw))
	assert.True(t, repaired)
	assert.Equal(t, workouts.ThemeLight, state.Theme)
	assert.Equal(t, workouts.Goals{Steps: 10000, Mins: 30, Cals: 500}, state.Goals)
	assert.NotNil(t, state.Workouts)
	assert.Empty(t, state.Workouts)
}

func TestDecodeAppState_InvalidTheme(t *testing.T) {
	state, repaired := workouts.DecodeAppState([]byte(`{"theme":"neon","goals":{"steps":1,"mins":1,"cals":1},"workouts":[]}`))
	assert.True(t, repaired)
	assert.Equal(t, workouts.ThemeDark, state.Theme)
	assert.Equal(t, workouts.Goals{Steps: 1, Mins: 1, Cals: 1}, state.Goals)
}

func TestDecodeAppState_NullWorkouts(t *testing.T) {
	state, repaired := workouts.DecodeAppState([]byte(`{"theme":"dark","goals":{"steps":1,"mins":1,"cals":1},"workouts":null}`))
	assert.True(t, repaired)
	assert.NotNil(t, state.Workouts)
	assert.Empty(t, state.Workouts)
}

func TestDecodeAppState_RepairsWorkouts(t *testing.T) {
	raw := `{
		"theme": "dark",
		"goals": {"steps": 8000, "mins": 30, "cals": 500},
		"workouts": [
			{"id": "a", "date": "2024-01-01T10:00:00.000Z", "type": "Run", "duration": "32", "calories": 310.4, "steps": -1, "notes": null},
			7,
			{"date": "2024-01-02", "type": "Walk", "duration": 40},
			{"id": "a", "type": "Yoga"}
		]
	}`
	state, repaired := workouts.DecodeAppState([]byte(raw))
	assert.True(t, repaired)
	require.Len(t, state.Workouts, 3)

	first := state.Workouts[0]
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, 32, first.Duration)
	assert.Equal(t, 310, first.Calories)
	assert.Equal(t, 0, first.Steps)
	assert.Equal(t, "", first.Notes)

	assert.NotEmpty(t, state.Workouts[1].ID)
	assert.Equal(t, "Walk", state.Workouts[1].Type)

	assert.NotEqual(t, "a", state.Workouts[2].ID)
	assert.NotEqual(t, state.Workouts[1].ID, state.Workouts[2].ID)
	assert.Equal(t, "Yoga", state.Workouts[2].Type)
}

func TestDecodeAppState_RoundTrip(t *testing.T) {
	state := workouts.AppState{
		Theme: workouts.ThemeLight,
		Goals: workouts.Goals{
			Steps: gofakeit.Number(1, 50000),
			Mins:  gofakeit.Number(1, 300),
			Cals:  gofakeit.Number(1, 5000),
		},
	}
	for i := 0; i < 20; i++ {
		state.Workouts = append(state.Workouts, workouts.Workout{
			ID:       gofakeit.UUID(),
			Date:     gofakeit.Date().UTC().Format(workouts.DateLayout),
			Type:     workouts.WorkoutTypes[gofakeit.Number(0, len(workouts.WorkoutTypes)-1)].String(),
			Duration: gofakeit.Number(0, 240),
			Calories: gofakeit.Number(0, 2000),
			Steps:    gofakeit.Number(0, 30000),
			Notes:    gofakeit.Sentence(5),
		})
	}

	payload, err := json.Marshal(state)
	require.NoError(t, err)

	decoded, repaired := workouts.DecodeAppState(payload)
	assert.False(t, repaired)
	assert.Equal(t, state, decoded)
}
