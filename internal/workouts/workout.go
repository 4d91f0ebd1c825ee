package workouts

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the creation timestamp format, millisecond precision in UTC.
const DateLayout = "2006-01-02T15:04:05.000Z"

type WorkoutType string

const (
	WorkoutTypeRun      WorkoutType = "Run"
	WorkoutTypeWalk     WorkoutType = "Walk"
	WorkoutTypeCycling  WorkoutType = "Cycling"
	WorkoutTypeHIIT     WorkoutType = "HIIT"
	WorkoutTypeYoga     WorkoutType = "Yoga"
	WorkoutTypeStrength WorkoutType = "Strength"
)

// WorkoutTypes lists the types offered to the user, in display order.
var WorkoutTypes = []WorkoutType{
	WorkoutTypeRun,
	WorkoutTypeWalk,
	WorkoutTypeCycling,
	WorkoutTypeHIIT,
	WorkoutTypeYoga,
	WorkoutTypeStrength,
}

func (wt WorkoutType) String() string {
	return string(wt)
}

func (wt WorkoutType) IsValid() bool {
	for _, t := range WorkoutTypes {
		if t == wt {
			return true
		}
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Workout is a single logged session. ID and Date never change after creation.
type Workout struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Calories int    `json:"calories"`
	Steps    int    `json:"steps"`
	Notes    string `json:"notes"`
}

// Timestamp parses Date. Date-only values resolve to midnight in loc.
func (w Workout) Timestamp(loc *time.Location) (time.Time, bool) {
	if w.Date == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, w.Date); err == nil {
		return t, true
	}
	if d, err := ParseDay(w.Date); err == nil {
		return d.Start(loc), true
	}
	return time.Time{}, false
}

// Day is the calendar day the workout belongs to. In UTC (or a nil loc) that
// is the date part as written, whatever offset the timestamp carries; any
// other loc converts the instant first.
func (w Workout) Day(loc *time.Location) (Day, bool) {
	if w.Date == "" {
		return "", false
	}
	if loc == nil || loc.String() == "UTC" {
		return w.writtenDay()
	}
	if t, err := time.Parse(time.RFC3339Nano, w.Date); err == nil {
		return DayOf(t, loc), true
	}
	return w.writtenDay()
}

// writtenDay reads the day from the first 10 characters of Date.
func (w Workout) writtenDay() (Day, bool) {
	if len(w.Date) < len(DayLayout) {
		return "", false
	}
	d, err := ParseDay(w.Date[:len(DayLayout)])
	if err != nil {
		return "", false
	}
	return d, true
}

type Goals struct {
	Steps int `json:"steps"`
	Mins  int `json:"mins"`
	Cals  int `json:"cals"`
}

func DefaultGoals() Goals {
	return Goals{
		Steps: 8000,
		Mins:  30,
		Cals:  500,
	}
}

// AppState is the whole persisted document.
type AppState struct {
	Theme    Theme     `json:"theme"`
	Goals    Goals     `json:"goals"`
	Workouts []Workout `json:"workouts"`
}

func DefaultAppState() AppState {
	return AppState{
		Theme:    ThemeDark,
		Goals:    DefaultGoals(),
		Workouts: []Workout{},
	}
}

// Clone returns a copy that shares no memory with s.
func (s AppState) Clone() AppState {
	clone := s
	clone.Workouts = make([]Workout, len(s.Workouts))
	copy(clone.Workouts, s.Workouts)
	return clone
}

// Count is a non-negative integer read leniently: numbers, numeric strings
// and null are accepted, anything else (or a negative value) becomes 0.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count(coerceCount(data))
	return nil
}

func (c Count) Int() int {
	return int(c)
}

func coerceCount(data []byte) int {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return 0
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(f))
}

// Text is a string read leniently: null and non-string JSON values
// become their literal text, objects and arrays become "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "" || raw == "null":
		*t = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	case strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "["):
		*t = ""
	default:
		*t = Text(raw)
	}
	return nil
}

// NewWorkout holds the user supplied fields of a workout to be logged.
type NewWorkout struct {
	Type     Text  `json:"type"`
	Duration Count `json:"duration"`
	Calories Count `json:"calories"`
	Steps    Count `json:"steps"`
	Notes    Text  `json:"notes"`
}

// WorkoutUpdate holds the fields to merge into an existing workout.
// Nil fields are left unchanged.
type WorkoutUpdate struct {
	Type     *Text  `json:"type,omitempty"`
	Duration *Count `json:"duration,omitempty"`
	Calories *Count `json:"calories,omitempty"`
	Steps    *Count `json:"steps,omitempty"`
	Notes    *Text  `json:"notes,omitempty"`
}

func (u WorkoutUpdate) IsEmpty() bool {
	return u.Type == nil && u.Duration == nil && u.Calories == nil && u.Steps == nil && u.Notes == nil
}

func (u WorkoutUpdate) apply(w *Workout) {
	if u.Type != nil {
		w.Type = string(*u.Type)
	}
	if u.Duration != nil {
		w.Duration = u.Duration.Int()
	}
	if u.Calories != nil {
		w.Calories = u.Calories.Int()
	}
	if u.Steps != nil {
		w.Steps = u.Steps.Int()
	}
	if u.Notes != nil {
		w.Notes = string(*u.Notes)
	}
}

// GoalsUpdate carries new goal values; zero or invalid ones keep the current goal.
type GoalsUpdate struct {
	Steps Count `json:"steps"`
	Mins  Count `json:"mins"`
	Cals  Count `json:"cals"`
}

func (u GoalsUpdate) apply(g *Goals) {
	if u.Steps > 0 {
		g.Steps = u.Steps.Int()
	}
	if u.Mins > 0 {
		g.Mins = u.Mins.Int()
	}
	if u.Cals > 0 {
		g.Cals = u.Cals.Int()
	}
}
