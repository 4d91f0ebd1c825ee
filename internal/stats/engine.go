package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/workouts"
)

const (
	// DefaultRecentCount is the size of the dashboard's recent activity list.
	DefaultRecentCount = 6
	weekDays           = 7
)

type Metric string

const (
	MetricMinutes  Metric = "minutes"
	MetricCalories Metric = "calories"
	MetricSteps    Metric = "steps"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricMinutes, nil
	case MetricMinutes, MetricCalories, MetricSteps:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric [%s], expected minutes, calories or steps", s)
	}
}

type Totals struct {
	Steps    int `json:"steps"`
	Duration int `json:"duration"`
	Calories int `json:"calories"`
	Workouts int `json:"workouts"`
}

func (t Totals) value(metric Metric) int {
	switch metric {
	case MetricCalories:
		return t.Calories
	case MetricSteps:
		return t.Steps
	default:
		return t.Duration
	}
}

type SeriesPoint struct {
	Day   workouts.Day `json:"day"`
	Label string       `json:"label"`
	Value int          `json:"value"`
}

type Series struct {
	Metric Metric        `json:"metric"`
	Points []SeriesPoint `json:"points"`
	// Max is the largest point value, never below 1.
	Max int `json:"max"`
}

type Progress struct {
	Value   int `json:"value"`
	Goal    int `json:"goal"`
	Percent int `json:"percent"`
	Degrees int `json:"degrees"`
}

// ComputeProgress maps value against goal onto a percentage capped at 100
// and the matching arc of a 360 degree ring. Goals below 1 count as 1.
func ComputeProgress(value, goal int) Progress {
	g := max(1, goal)
	pct := min(100, int(math.Round(float64(value)/float64(g)*100)))
	return Progress{
		Value:   value,
		Goal:    goal,
		Percent: pct,
		Degrees: int(math.Round(360 * float64(pct) / 100)),
	}
}

type Rings struct {
	Steps    Progress `json:"steps"`
	Minutes  Progress `json:"mins"`
	Calories Progress `json:"cals"`
}

type Dashboard struct {
	Day    workouts.Day       `json:"day"`
	Totals Totals             `json:"totals"`
	Rings  Rings              `json:"rings"`
	Goals  workouts.Goals     `json:"goals"`
	Recent []workouts.Workout `json:"recent"`
}

type Filter struct {
	Type  string
	Query string
}

type snapshotter interface {
	Snapshot() workouts.AppState
}

// Engine derives every view from a fresh snapshot on each call and keeps
// no state of its own.
type Engine struct {
	source snapshotter
	loc    *time.Location

	NowFunc func() time.Time
}

func NewEngine(source snapshotter, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		source:  source,
		loc:     loc,
		NowFunc: time.Now,
	}
}

func (e *Engine) Today() workouts.Day {
	return workouts.DayOf(e.NowFunc(), e.loc)
}

func (e *Engine) DailyTotals(day workouts.Day) Totals {
	return e.dailyTotals(e.source.Snapshot().Workouts, day)
}

func (e *Engine) dailyTotals(list []workouts.Workout, day workouts.Day) Totals {
	var totals Totals
	for _, w := range list {
		if d, ok := w.Day(e.loc); !ok || d != day {
			continue
		}
		totals.Steps += w.Steps
		totals.Duration += w.Duration
		totals.Calories += w.Calories
		totals.Workouts++
	}
	return totals
}

// WeeklySeries sums metric for each of the last 7 days, oldest first, today included.
func (e *Engine) WeeklySeries(metric Metric) Series {
	list := e.source.Snapshot().Workouts
	today := e.Today()

	byDay := make(map[workouts.Day]Totals, weekDays)
	for _, w := range list {
		d, ok := w.Day(e.loc)
		if !ok {
			continue
		}
		t := byDay[d]
		t.Steps += w.Steps
		t.Duration += w.Duration
		t.Calories += w.Calories
		t.Workouts++
		byDay[d] = t
	}

	series := Series{
		Metric: metric,
		Points: make([]SeriesPoint, 0, weekDays),
		Max:    1,
	}
	for i := weekDays - 1; i >= 0; i-- {
		day := today.AddDays(-i)
		value := byDay[day].value(metric)
		series.Points = append(series.Points, SeriesPoint{
			Day:   day,
			Label: day.ShortWeekday(),
			Value: value,
		})
		series.Max = max(series.Max, value)
	}

	return series
}

// Recent returns the n latest workouts, latest first. Workouts sharing a
// timestamp come newest-inserted first.
func (e *Engine) Recent(n int) []workouts.Workout {
	if n <= 0 {
		return []workouts.Workout{}
	}
	sorted := e.sortedByDateDesc(e.source.Snapshot().Workouts)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FilteredSorted returns the workouts of the given type whose type or notes
// contain the query (case-insensitive), latest first. Empty fields match all.
func (e *Engine) FilteredSorted(filter Filter) []workouts.Workout {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	matching := make([]workouts.Workout, 0)
	for _, w := range e.sortedByDateDesc(e.source.Snapshot().Workouts) {
		if filter.Type != "" && w.Type != filter.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(w.Type), query) &&
			!strings.Contains(strings.ToLower(w.Notes), query) {
			continue
		}
		matching = append(matching, w)
	}
	return matching
}

func (e *Engine) Dashboard() Dashboard {
	state := e.source.Snapshot()
	today := e.Today()
	totals := e.dailyTotals(state.Workouts, today)

	recent := e.sortedByDateDesc(state.Workouts)
	if len(recent) > DefaultRecentCount {
		recent = recent[:DefaultRecentCount]
	}

	return Dashboard{
		Day:    today,
		Totals: totals,
		Rings: Rings{
			Steps:    ComputeProgress(totals.Steps, state.Goals.Steps),
			Minutes:  ComputeProgress(totals.Duration, state.Goals.Mins),
			Calories: ComputeProgress(totals.Calories, state.Goals.Cals),
		},
		Goals:  state.Goals,
		Recent: recent,
	}
}

// sortedByDateDesc returns a sorted copy. Unparsable dates sort last.
func (e *Engine) sortedByDateDesc(list []workouts.Workout) []workouts.Workout {
	type entry struct {
		workout workouts.Workout
		ts      time.Time
		valid   bool
	}

	// reversed insertion order, so the stable sort keeps the newest-inserted first on ties
	entries := make([]entry, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		ts, ok := list[i].Timestamp(e.loc)
		entries = append(entries, entry{workout: list[i], ts: ts, valid: ok})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.valid != b.valid {
			return a.valid
		}
		return a.ts.After(b.ts)
	})

	sorted := make([]workouts.Workout, len(entries))
	for i, en := range entries {
		sorted[i] = en.workout
	}
	return sorted
}
