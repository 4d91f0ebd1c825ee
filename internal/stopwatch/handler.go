package stopwatch

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/workouts"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	stopwatch *Stopwatch
}

func NewHandler(stopwatch *Stopwatch) *Handler {
	return &Handler{
		stopwatch: stopwatch,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/timer", h.HandleStatus).Methods("GET", "OPTIONS").Name("timer-status")
	r.HandleFunc("/timer/start", h.HandleStart).Methods("POST", "OPTIONS").Name("timer-start")
	r.HandleFunc("/timer/stop", h.HandleStop).Methods("POST", "OPTIONS").Name("timer-stop")
}

type timerRequest struct {
	Type string `json:"type"`
}

type startResponse struct {
	Started bool   `json:"started"`
	Status  Status `json:"status"`
}

type stopResponse struct {
	Stopped bool              `json:"stopped"`
	Workout *workouts.Workout `json:"workout,omitempty"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, h.stopwatch.Status(), http.StatusOK)
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	req, err := decodeTimerRequest(r.Body)
	if err != nil {
		http.Error(w, "invalid timer body", http.StatusBadRequest)
		return
	}

	workoutType := workouts.WorkoutType(req.Type)
	if workoutType == "" {
		workoutType = workouts.WorkoutTypeRun
	}
	if !workoutType.IsValid() {
		http.Error(w, "invalid workout type", http.StatusBadRequest)
		return
	}

	status, started := h.stopwatch.Start(workoutType)
	pkg.WriteJSON(w, startResponse{Started: started, Status: status}, http.StatusOK)
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.stop")
	defer span.End()

	req, err := decodeTimerRequest(r.Body)
	if err != nil {
		http.Error(w, "invalid timer body", http.StatusBadRequest)
		return
	}
	workoutType := workouts.WorkoutType(req.Type)
	if workoutType != "" && !workoutType.IsValid() {
		http.Error(w, "invalid workout type", http.StatusBadRequest)
		return
	}

	logged, err := h.stopwatch.Stop(ctx, workoutType)
	if err != nil {
		log.Errorf("stop timer: %s", err)
		http.Error(w, "timer stopped, but the workout was not saved", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, stopResponse{Stopped: logged != nil, Workout: logged}, http.StatusOK)
}

// decodeTimerRequest accepts an empty body.
func decodeTimerRequest(body io.Reader) (timerRequest, error) {
	var req timerRequest
	if body == nil {
		return req, nil
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}
