package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/workouts"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned by a Backend when no document has been written yet.
var ErrNotFound = errors.New("document not found")

// Backend stores the raw state document. Write replaces it entirely.
type Backend interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, doc []byte) error
}

// Adapter maps the AppState to and from the document held by a Backend.
// Several processes may share one backend: the adapter remembers the revision
// of the document it last read or wrote and refuses to overwrite a newer one.
type Adapter struct {
	backend Backend
	metrics *metrics.Manager

	mutex sync.Mutex
	// empty while no document exists
	revision string
}

func NewAdapter(backend Backend, metricsManager *metrics.Manager) *Adapter {
	return &Adapter{
		backend: backend,
		metrics: metricsManager,
	}
}

// Load reads the stored state. A missing or malformed document yields the
// defaults; only a failing backend is reported as an error.
func (a *Adapter) Load(ctx context.Context) (_ workouts.AppState, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "persistence.load")
	span.SetAttributes(attribute.String("backend", a.backend.Name()))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	a.mutex.Lock()
	defer a.mutex.Unlock()

	raw, revision, err := a.read(ctx)
	if err != nil {
		a.countFailure("load")
		return workouts.AppState{}, err
	}
	a.revision = revision
	if revision == "" {
		log.Infof("no stored state in %s backend, starting with defaults", a.backend.Name())
		return workouts.DefaultAppState(), nil
	}

	return a.decode(raw), nil
}

// Latest reports whether the stored document changed since this adapter
// last read or wrote it and, if so, returns the new state.
func (a *Adapter) Latest(ctx context.Context) (_ workouts.AppState, changed bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "persistence.latest")
	span.SetAttributes(attribute.String("backend", a.backend.Name()))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	a.mutex.Lock()
	defer a.mutex.Unlock()

	raw, revision, err := a.read(ctx)
	if err != nil {
		a.countFailure("load")
		return workouts.AppState{}, false, err
	}
	if revision == a.revision {
		return workouts.AppState{}, false, nil
	}

	log.Debugf("stored state in %s backend changed by another writer", a.backend.Name())
	a.revision = revision
	if revision == "" {
		return workouts.DefaultAppState(), true, nil
	}
	span.SetAttributes(attribute.Bool("changed", true))
	return a.decode(raw), true, nil
}

func (a *Adapter) decode(raw []byte) workouts.AppState {
	state, repaired := workouts.DecodeAppState(raw)
	if repaired {
		log.Warnf("stored state in %s backend was malformed, missing parts defaulted", a.backend.Name())
		if a.metrics != nil {
			a.metrics.CounterStateRepairedOnLoads.Inc()
		}
	}

	log.Debugf("state loaded from %s backend: %d workouts", a.backend.Name(), len(state.Workouts))
	return state
}

// Save writes the whole state in a single backend write. It fails with
// workouts.ErrConflict when another writer replaced the document since this
// adapter last saw it.
func (a *Adapter) Save(ctx context.Context, state workouts.AppState) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "persistence.save")
	span.SetAttributes(
		attribute.String("backend", a.backend.Name()),
		attribute.Int("workouts", len(state.Workouts)),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if state.Workouts == nil {
		state.Workouts = []workouts.Workout{}
	}

	doc, err := json.Marshal(state)
	if err != nil {
		a.countFailure("save")
		return fmt.Errorf("marshal state: %w", err)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	begin := time.Now()
	_, current, err := a.read(ctx)
	if err != nil {
		a.countFailure("save")
		return err
	}
	if current != a.revision {
		a.countFailure("conflict")
		return fmt.Errorf("%w: %s backend", workouts.ErrConflict, a.backend.Name())
	}

	if err := a.backend.Write(ctx, doc); err != nil {
		a.countFailure("save")
		return fmt.Errorf("write state to %s: %w", a.backend.Name(), err)
	}
	a.revision = revisionOf(doc)

	if a.metrics != nil {
		a.metrics.HistPersistenceSaveDuration.Observe(time.Since(begin).Seconds())
		a.metrics.CounterPersistenceSaves.Inc()
	}

	return nil
}

func (a *Adapter) BackendName() string {
	return a.backend.Name()
}

// read returns the stored document and its revision. A missing document has
// an empty revision.
func (a *Adapter) read(ctx context.Context) ([]byte, string, error) {
	raw, err := a.backend.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read state from %s: %w", a.backend.Name(), err)
	}
	return raw, revisionOf(raw), nil
}

// revisionOf hashes the document in compact form with sorted keys, so a
// backend that reformats JSON (postgres jsonb) keeps the same revision.
func revisionOf(doc []byte) string {
	canonical := doc
	var v any
	if err := json.Unmarshal(doc, &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			canonical = b
		}
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func (a *Adapter) countFailure(op string) {
	if a.metrics != nil {
		a.metrics.CounterPersistenceFailures.WithLabelValues(op).Inc()
	}
}
