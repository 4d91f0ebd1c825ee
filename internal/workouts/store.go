package workouts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=workouts_test

// ErrPersist wraps a failed state write. The in-memory mutation that
// triggered the write is kept.
var ErrPersist = errors.New("persist state")

// ErrConflict is returned by a persister that found the stored document
// replaced by another writer since it last read it.
var ErrConflict = errors.New("stored state changed by another writer")

// conflict retries before a mutation gives up
const maxConflictRetries = 2

type persister interface {
	Save(ctx context.Context, state AppState) error
}

// syncer is implemented by persisters whose backend may be written by
// another process, e.g. the stdio MCP server next to the HTTP service.
type syncer interface {
	Latest(ctx context.Context) (AppState, bool, error)
}

// Store owns the AppState of the process. Its mutation methods are the only
// write path: each one starts from the latest stored document and writes the
// full document through the persister before returning.
type Store struct {
	mutex     sync.RWMutex
	state     AppState
	persister persister
	metrics   *metrics.Manager

	// injectable for tests
	NowFunc   func() time.Time
	NewIDFunc func() string
}

func NewStore(initial AppState, persister persister, metricsManager *metrics.Manager) *Store {
	s := &Store{
		state:     normalized(initial),
		persister: persister,
		metrics:   metricsManager,
		NowFunc:   time.Now,
		NewIDFunc: uuid.NewString,
	}
	s.updateWorkoutsGauge()
	return s
}

func normalized(state AppState) AppState {
	state = state.Clone()
	if !state.Theme.IsValid() {
		state.Theme = ThemeDark
	}
	if state.Workouts == nil {
		state.Workouts = []Workout{}
	}
	return state
}

// Sync pulls in the stored document when another process changed it.
// Reads serve the cached state, so callers sync before reading.
func (s *Store) Sync(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sync(ctx)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() AppState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state.Clone()
}

func (s *Store) List() []Workout {
	return s.Snapshot().Workouts
}

func (s *Store) Get(id string) (Workout, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if i := indexOf(s.state.Workouts, id); i >= 0 {
		return s.state.Workouts[i], true
	}
	return Workout{}, false
}

func (s *Store) Goals() Goals {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state.Goals
}

func (s *Store) Theme() Theme {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state.Theme
}

// Create logs a new workout stamped with a fresh id and the current time.
func (s *Store) Create(ctx context.Context, in NewWorkout) (_ Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	w := Workout{
		ID:       s.NewIDFunc(),
		Date:     s.NowFunc().UTC().Format(DateLayout),
		Type:     string(in.Type),
		Duration: in.Duration.Int(),
		Calories: in.Calories.Int(),
		Steps:    in.Steps.Int(),
		Notes:    string(in.Notes),
	}
	span.SetAttributes(attribute.String("workout.type", w.Type))

	err = s.mutate(ctx, func(state *AppState) bool {
		state.Workouts = append(state.Workouts, w)
		return true
	})

	if s.metrics != nil {
		s.metrics.CounterWorkoutsCreated.WithLabelValues(w.Type).Inc()
	}

	log.Debugf("workout created: [%s] %s %dm", w.ID, w.Type, w.Duration)
	return w, err
}

// Update merges upd into the workout with the given id. An unknown id is a
// silent no-op reported through the found flag.
func (s *Store) Update(ctx context.Context, id string, upd WorkoutUpdate) (updated Workout, found bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.mutate(ctx, func(state *AppState) bool {
		i := indexOf(state.Workouts, id)
		found = i >= 0
		if !found {
			return false
		}
		upd.apply(&state.Workouts[i])
		updated = state.Workouts[i]
		return true
	})
	if !found {
		log.Debugf("update workout: [%s] not found", id)
		return Workout{}, false, err
	}

	if s.metrics != nil {
		s.metrics.CounterWorkoutsUpdated.Inc()
	}

	return updated, true, err
}

// Delete removes the workout with the given id. An unknown id is a silent no-op.
func (s *Store) Delete(ctx context.Context, id string) (found bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.mutate(ctx, func(state *AppState) bool {
		i := indexOf(state.Workouts, id)
		found = i >= 0
		if found {
			state.Workouts = append(state.Workouts[:i], state.Workouts[i+1:]...)
		}
		return found
	})
	if !found {
		log.Debugf("delete workout: [%s] not found", id)
		return false, err
	}

	if s.metrics != nil {
		s.metrics.CounterWorkoutsDeleted.Inc()
	}

	return true, err
}

// ReplaceAll swaps in a new workout list wholesale. The theme preference is
// kept and the goals go back to their defaults. Missing or duplicate ids are
// replaced and negative numbers clamped, as when loading a stored document.
func (s *Store) ReplaceAll(ctx context.Context, workouts []Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.workouts.replaceall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	replacement := make([]Workout, len(workouts))
	copy(replacement, workouts)
	if repairWorkouts(replacement) {
		log.Warnf("replace workouts: repaired ids or negative values in %d workouts", len(replacement))
	}
	span.SetAttributes(attribute.Int("workouts", len(replacement)))

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.mutate(ctx, func(state *AppState) bool {
		state.Goals = DefaultGoals()
		state.Workouts = append([]Workout{}, replacement...)
		return true
	})

	if s.metrics != nil {
		s.metrics.CounterStateResets.Inc()
	}

	return err
}

// Reset is the "clear data" operation: no workouts, default goals.
func (s *Store) Reset(ctx context.Context) error {
	return s.ReplaceAll(ctx, nil)
}

func (s *Store) SetGoals(ctx context.Context, upd GoalsUpdate) (goals Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.goals.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.mutate(ctx, func(state *AppState) bool {
		upd.apply(&state.Goals)
		goals = state.Goals
		return true
	})
	return goals, err
}

func (s *Store) SetTheme(ctx context.Context, theme Theme) (err error) {
	if !theme.IsValid() {
		return fmt.Errorf("invalid theme: %s", theme)
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "store.theme.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.mutate(ctx, func(state *AppState) bool {
		state.Theme = theme
		return true
	})
}

func (s *Store) ToggleTheme(ctx context.Context) (theme Theme, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.theme.toggle")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.mutate(ctx, func(state *AppState) bool {
		if state.Theme == ThemeLight {
			state.Theme = ThemeDark
		} else {
			state.Theme = ThemeLight
		}
		theme = state.Theme
		return true
	})
	return theme, err
}

// SeedDemo fills an empty store with a week of sample workouts so the first
// dashboard view is not blank. It does nothing if any workout exists.
func (s *Store) SeedDemo(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.workouts.seed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.NowFunc().UTC()
	seeded := 0
	err = s.mutate(ctx, func(state *AppState) bool {
		if len(state.Workouts) > 0 {
			seeded = 0
			return false
		}
		for _, d := range demoWorkouts {
			state.Workouts = append(state.Workouts, Workout{
				ID:       s.NewIDFunc(),
				Date:     now.AddDate(0, 0, -d.daysAgo).Format(DateLayout),
				Type:     d.workoutType.String(),
				Duration: d.duration,
				Calories: d.calories,
				Steps:    d.steps,
				Notes:    d.notes,
			})
		}
		seeded = len(demoWorkouts)
		return true
	})

	if seeded > 0 {
		log.Infof("seeded %d demo workouts", seeded)
	}
	return seeded, err
}

var demoWorkouts = []struct {
	daysAgo     int
	workoutType WorkoutType
	duration    int
	calories    int
	steps       int
	notes       string
}{
	{0, WorkoutTypeRun, 32, 310, 4200, "Park loops"},
	{0, WorkoutTypeStrength, 25, 180, 400, "Push/Pull"},
	{1, WorkoutTypeWalk, 40, 160, 5200, "Evening stroll"},
	{2, WorkoutTypeCycling, 45, 380, 0, "Hill reps"},
	{3, WorkoutTypeYoga, 30, 120, 200, "Vinyasa"},
	{4, WorkoutTypeHIIT, 22, 260, 800, "EMOM"},
	{6, WorkoutTypeWalk, 28, 110, 4100, "Commute"},
}

func indexOf(list []Workout, id string) int {
	for i, w := range list {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// mutate applies change on top of the latest stored state and persists the
// result. A write refused with ErrConflict reloads the state and applies
// change again. change reports whether it modified the state; an unmodified
// state is not written. Must be called with the write lock held.
func (s *Store) mutate(ctx context.Context, change func(state *AppState) bool) error {
	for attempt := 0; ; attempt++ {
		if err := s.sync(ctx); err != nil {
			log.Warnf("sync state before write: %s", err)
		}
		if !change(&s.state) {
			return nil
		}

		err := s.persist(ctx)
		if !errors.Is(err, ErrConflict) || attempt == maxConflictRetries {
			return err
		}
		log.Warnf("stored state changed during write, retrying (%d/%d)", attempt+1, maxConflictRetries)
	}
}

// sync must be called with the write lock held.
func (s *Store) sync(ctx context.Context) error {
	src, ok := s.persister.(syncer)
	if !ok {
		return nil
	}
	latest, changed, err := src.Latest(ctx)
	if err != nil {
		return fmt.Errorf("sync state: %w", err)
	}
	if changed {
		s.state = normalized(latest)
		s.updateWorkoutsGauge()
		log.Debugf("state reloaded from storage: %d workouts", len(s.state.Workouts))
	}
	return nil
}

// persist must be called with the write lock held.
func (s *Store) persist(ctx context.Context) error {
	s.updateWorkoutsGauge()
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, s.state.Clone()); err != nil {
		log.Errorf("persist state: %s", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) updateWorkoutsGauge() {
	if s.metrics != nil {
		s.metrics.GaugeWorkouts.Set(float64(len(s.state.Workouts)))
	}
}
