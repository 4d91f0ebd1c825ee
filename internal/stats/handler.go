package stats

import (
	"net/http"
	"strconv"

	"github.com/2beens/fittrack/internal/workouts"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{
		engine: engine,
	}
}

// SetupRoutes must run before the workouts handler registers /workouts/{id},
// otherwise "recent" is taken for an id.
func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workouts", handler.HandleList).Methods("GET").Name("list-workouts")
	r.HandleFunc("/workouts/recent", handler.HandleRecent).Methods("GET", "OPTIONS").Name("recent-workouts")
	r.HandleFunc("/stats/daily", handler.HandleDaily).Methods("GET", "OPTIONS").Name("daily-totals")
	r.HandleFunc("/stats/weekly", handler.HandleWeekly).Methods("GET", "OPTIONS").Name("weekly-series")
	r.HandleFunc("/stats/dashboard", handler.HandleDashboard).Methods("GET", "OPTIONS").Name("dashboard")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Type:  r.URL.Query().Get("type"),
		Query: r.URL.Query().Get("q"),
	}
	pkg.WriteJSON(w, handler.engine.FilteredSorted(filter), http.StatusOK)
}

func (handler *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	n := DefaultRecentCount
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		var err error
		n, err = strconv.Atoi(nStr)
		if err != nil || n < 0 {
			http.Error(w, "error, n must be a non-negative number", http.StatusBadRequest)
			return
		}
	}
	pkg.WriteJSON(w, handler.engine.Recent(n), http.StatusOK)
}

type dailyResponse struct {
	Day workouts.Day `json:"day"`
	Totals
}

func (handler *Handler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	day := handler.engine.Today()
	if dayStr := r.URL.Query().Get("day"); dayStr != "" {
		var err error
		day, err = workouts.ParseDay(dayStr)
		if err != nil {
			log.Debugf("daily totals: %s", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	pkg.WriteJSON(w, dailyResponse{
		Day:    day,
		Totals: handler.engine.DailyTotals(day),
	}, http.StatusOK)
}

func (handler *Handler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	metric, err := ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pkg.WriteJSON(w, handler.engine.WeeklySeries(metric), http.StatusOK)
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, handler.engine.Dashboard(), http.StatusOK)
}
