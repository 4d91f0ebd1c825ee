package workouts

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type storedState struct {
	Theme    json.RawMessage `json:"theme"`
	Goals    json.RawMessage `json:"goals"`
	Workouts json.RawMessage `json:"workouts"`
}

type storedGoals struct {
	Steps Count `json:"steps"`
	Mins  Count `json:"mins"`
	Cals  Count `json:"cals"`
}

type storedWorkout struct {
	ID       Text  `json:"id"`
	Date     Text  `json:"date"`
	Type     Text  `json:"type"`
	Duration Count `json:"duration"`
	Calories Count `json:"calories"`
	Steps    Count `json:"steps"`
	Notes    Text  `json:"notes"`
}

// DecodeAppState turns a stored document into an AppState, never failing:
// each top-level field falls back to its default on its own, so a broken
// workouts list does not cost the goals or the theme. The second return
// value reports whether anything had to be repaired. An empty document is
// not considered broken.
func DecodeAppState(raw []byte) (AppState, bool) {
	state := DefaultAppState()
	if len(bytes.TrimSpace(raw)) == 0 {
		return state, false
	}

	var stored storedState
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Warnf("stored state unparsable, using defaults: %s", err)
		return state, true
	}

	repaired := false

	if theme, ok := decodeTheme(stored.Theme); ok {
		state.Theme = theme
	} else {
		repaired = true
	}

	if goals, ok := decodeGoals(stored.Goals); ok {
		state.Goals = goals
	} else {
		repaired = true
	}

	workouts, ok := decodeWorkouts(stored.Workouts)
	if !ok {
		repaired = true
	}
	state.Workouts = workouts

	return state, repaired
}

func decodeTheme(raw json.RawMessage) (Theme, bool) {
	if len(raw) == 0 {
		return ThemeDark, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ThemeDark, false
	}
	theme := Theme(s)
	if !theme.IsValid() {
		return ThemeDark, false
	}
	return theme, true
}

func decodeGoals(raw json.RawMessage) (Goals, bool) {
	goals := DefaultGoals()
	if len(raw) == 0 {
		return goals, false
	}

	var stored storedGoals
	if err := json.Unmarshal(raw, &stored); err != nil {
		return goals, false
	}

	ok := true
	for _, field := range []struct {
		value  Count
		target *int
	}{
		{stored.Steps, &goals.Steps},
		{stored.Mins, &goals.Mins},
		{stored.Cals, &goals.Cals},
	} {
		if field.value > 0 {
			*field.target = field.value.Int()
		} else {
			ok = false
		}
	}

	return goals, ok
}

func decodeWorkouts(raw json.RawMessage) ([]Workout, bool) {
	if len(raw) == 0 {
		return []Workout{}, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []Workout{}, false
	}

	ok := true
	workouts := make([]Workout, 0, len(items))
	for i, item := range items {
		var sw storedWorkout
		if err := json.Unmarshal(item, &sw); err != nil {
			log.Debugf("dropping stored workout #%d, not an object: %s", i, err)
			ok = false
			continue
		}

		w := Workout{
			ID:       string(sw.ID),
			Date:     string(sw.Date),
			Type:     string(sw.Type),
			Duration: sw.Duration.Int(),
			Calories: sw.Calories.Int(),
			Steps:    sw.Steps.Int(),
			Notes:    string(sw.Notes),
		}

		workouts = append(workouts, w)
	}

	if repairWorkouts(workouts) {
		ok = false
	}
	return workouts, ok
}

// repairWorkouts gives every workout a unique non-empty id and clamps
// negative numbers to 0, in place. It reports whether anything changed.
func repairWorkouts(list []Workout) bool {
	repaired := false
	seenIDs := make(map[string]bool, len(list))
	for i := range list {
		w := &list[i]
		if w.ID == "" || seenIDs[w.ID] {
			w.ID = uuid.NewString()
			repaired = true
		}
		seenIDs[w.ID] = true

		for _, n := range []*int{&w.Duration, &w.Calories, &w.Steps} {
			if *n < 0 {
				*n = 0
				repaired = true
			}
		}
	}
	return repaired
}
