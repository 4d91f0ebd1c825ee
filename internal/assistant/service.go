package assistant

import (
	"context"
	"fmt"

	"github.com/2beens/fittrack/internal/stats"
	"github.com/2beens/fittrack/internal/workouts"

	log "github.com/sirupsen/logrus"
)

// service is what the tool handlers need from the tracker (for dependency injection and testing).
type service interface {
	Dashboard(ctx context.Context) (stats.Dashboard, error)
	DailyTotals(ctx context.Context, day workouts.Day) (stats.Totals, error)
	WeeklySeries(ctx context.Context, metric stats.Metric) (stats.Series, error)
	ListWorkouts(ctx context.Context, filter stats.Filter, limit int) ([]workouts.Workout, error)
	LogWorkout(ctx context.Context, in workouts.NewWorkout) (workouts.Workout, error)
}

type workoutStore interface {
	Sync(ctx context.Context) error
	Create(ctx context.Context, in workouts.NewWorkout) (workouts.Workout, error)
}

// TrackerService answers tool calls from the live store and stats engine.
type TrackerService struct {
	engine *stats.Engine
	store  workoutStore
}

func NewTrackerService(engine *stats.Engine, store workoutStore) *TrackerService {
	return &TrackerService{
		engine: engine,
		store:  store,
	}
}

// sync picks up workouts logged by another process on the same storage.
func (s *TrackerService) sync(ctx context.Context) {
	if err := s.store.Sync(ctx); err != nil {
		log.Warnf("assistant: serving cached state: %s", err)
	}
}

func (s *TrackerService) Dashboard(ctx context.Context) (stats.Dashboard, error) {
	s.sync(ctx)
	return s.engine.Dashboard(), nil
}

func (s *TrackerService) DailyTotals(ctx context.Context, day workouts.Day) (stats.Totals, error) {
	s.sync(ctx)
	if day == "" {
		day = s.engine.Today()
	}
	return s.engine.DailyTotals(day), nil
}

func (s *TrackerService) WeeklySeries(ctx context.Context, metric stats.Metric) (stats.Series, error) {
	s.sync(ctx)
	return s.engine.WeeklySeries(metric), nil
}

// ListWorkouts returns the filtered list, newest first. A limit <= 0 means no limit.
func (s *TrackerService) ListWorkouts(ctx context.Context, filter stats.Filter, limit int) ([]workouts.Workout, error) {
	s.sync(ctx)
	list := s.engine.FilteredSorted(filter)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *TrackerService) LogWorkout(ctx context.Context, in workouts.NewWorkout) (workouts.Workout, error) {
	if !workouts.WorkoutType(in.Type).IsValid() {
		return workouts.Workout{}, fmt.Errorf("unknown workout type %q", in.Type)
	}
	return s.store.Create(ctx, in)
}
