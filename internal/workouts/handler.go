package workouts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store: store,
	}
}

// SetupRoutes registers the single-workout routes. The list routes live in
// the stats handler since they are derived views.
func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workouts", handler.HandleAdd).Methods("POST").Name("new-workout")
	r.HandleFunc("/workouts", pkg.AllowMethods("GET", "POST")).Methods("OPTIONS").Name("workouts-options")
	r.HandleFunc("/workouts/{id}", handler.HandleGet).Methods("GET").Name("get-workout")
	r.HandleFunc("/workouts/{id}", handler.HandleUpdate).Methods("PUT").Name("update-workout")
	r.HandleFunc("/workouts/{id}", handler.HandleDelete).Methods("DELETE").Name("remove-workout")
	r.HandleFunc("/workouts/{id}", pkg.AllowMethods("GET", "PUT", "DELETE")).Methods("OPTIONS").Name("workout-options")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var newWorkout NewWorkout
	if err := json.NewDecoder(r.Body).Decode(&newWorkout); err != nil {
		log.Errorf("add workout: decode body: %s", err)
		http.Error(w, "invalid workout body", http.StatusBadRequest)
		return
	}

	if !WorkoutType(newWorkout.Type).IsValid() {
		http.Error(w, "invalid workout type", http.StatusBadRequest)
		return
	}

	added, err := handler.store.Create(r.Context(), newWorkout)
	if err != nil {
		writeStoreError(w, "add workout", err)
		return
	}

	log.Printf("new workout added: [%s] %s", added.ID, added.Type)
	pkg.WriteJSON(w, added, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	workout, found := handler.store.Get(id)
	if !found {
		http.Error(w, "workout not found", http.StatusNotFound)
		return
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

type updateResponse struct {
	Found   bool     `json:"found"`
	Workout *Workout `json:"workout,omitempty"`
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	var upd WorkoutUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Errorf("update workout %s: decode body: %s", id, err)
		http.Error(w, "invalid workout body", http.StatusBadRequest)
		return
	}
	if upd.IsEmpty() {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}
	if upd.Type != nil && !WorkoutType(*upd.Type).IsValid() {
		http.Error(w, "invalid workout type", http.StatusBadRequest)
		return
	}

	updated, found, err := handler.store.Update(r.Context(), id, upd)
	if err != nil {
		writeStoreError(w, "update workout", err)
		return
	}

	resp := updateResponse{Found: found}
	if found {
		resp.Workout = &updated
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	found, err := handler.store.Delete(r.Context(), id)
	if err != nil {
		writeStoreError(w, "delete workout", err)
		return
	}

	pkg.WriteJSON(w, map[string]bool{"found": found}, http.StatusOK)
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	log.Errorf("%s: %s", op, err)
	if errors.Is(err, ErrPersist) {
		http.Error(w, "change applied but not saved, storage error", http.StatusInternalServerError)
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
