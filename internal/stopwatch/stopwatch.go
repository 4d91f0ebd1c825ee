package stopwatch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/workouts"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// TimerNotes is attached to every workout logged by stopping the timer.
const TimerNotes = "Logged from timer"

type workoutCreator interface {
	Create(ctx context.Context, in workouts.NewWorkout) (workouts.Workout, error)
}

type Status struct {
	Running     bool       `json:"running"`
	Type        string     `json:"type,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	ElapsedMs   int64      `json:"elapsedMs"`
	ElapsedText string     `json:"elapsed"`
}

// Stopwatch times a single session at a time and logs it as a workout when
// stopped. Only the stop has an effect on the stored data.
type Stopwatch struct {
	mutex       sync.Mutex
	running     bool
	workoutType string
	startedAt   time.Time

	creator workoutCreator
	metrics *metrics.Manager

	NowFunc func() time.Time
}

func New(creator workoutCreator, metricsManager *metrics.Manager) *Stopwatch {
	return &Stopwatch{
		creator: creator,
		metrics: metricsManager,
		NowFunc: time.Now,
	}
}

// Start begins timing a session of the given type. It returns false and
// changes nothing if a session is already running.
func (s *Stopwatch) Start(workoutType workouts.WorkoutType) (Status, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return s.status(), false
	}

	s.running = true
	s.workoutType = workoutType.String()
	s.startedAt = s.NowFunc()

	log.Debugf("timer started: %s", s.workoutType)
	return s.status(), true
}

// Stop ends the running session and logs it. A non-empty workoutType
// replaces the one given at start. Stopping an idle stopwatch is a no-op
// and returns nil.
func (s *Stopwatch) Stop(ctx context.Context, workoutType workouts.WorkoutType) (_ *workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stopwatch.stop")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return nil, nil
	}

	elapsed := s.NowFunc().Sub(s.startedAt)
	if workoutType != "" {
		s.workoutType = workoutType.String()
	}
	loggedType := s.workoutType

	s.running = false
	s.workoutType = ""
	s.startedAt = time.Time{}

	mins := SessionMinutes(elapsed)
	span.SetAttributes(
		attribute.String("workout.type", loggedType),
		attribute.Int("workout.minutes", mins),
	)

	if s.metrics != nil {
		s.metrics.CounterTimerSessions.Inc()
	}

	w, err := s.creator.Create(ctx, workouts.NewWorkout{
		Type:     workouts.Text(loggedType),
		Duration: workouts.Count(mins),
		Calories: 0,
		Steps:    0,
		Notes:    TimerNotes,
	})
	if err != nil {
		return &w, fmt.Errorf("log timed workout: %w", err)
	}

	log.Printf("logged %d min %s from timer", mins, loggedType)
	return &w, nil
}

func (s *Stopwatch) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status()
}

// status must be called with the mutex held.
func (s *Stopwatch) status() Status {
	if !s.running {
		return Status{ElapsedText: FormatHHMMSS(0)}
	}
	startedAt := s.startedAt
	elapsed := s.NowFunc().Sub(startedAt)
	return Status{
		Running:     true,
		Type:        s.workoutType,
		StartedAt:   &startedAt,
		ElapsedMs:   elapsed.Milliseconds(),
		ElapsedText: FormatHHMMSS(elapsed),
	}
}

// SessionMinutes rounds a timed session to whole minutes, never below one.
func SessionMinutes(elapsed time.Duration) int {
	return max(1, int(math.Round(float64(elapsed.Milliseconds())/60000)))
}

// FormatHHMMSS renders d as zero padded hours, minutes and seconds.
// Hours are not wrapped at 24.
func FormatHHMMSS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
