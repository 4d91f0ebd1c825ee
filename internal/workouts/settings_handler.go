package workouts

import (
	"encoding/json"
	"net/http"

	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// ExportFileName is the attachment name of the exported document.
const ExportFileName = "fittrack-data.json"

const themeToggle = "toggle"

type SettingsHandler struct {
	store *Store
}

func NewSettingsHandler(store *Store) *SettingsHandler {
	return &SettingsHandler{
		store: store,
	}
}

func (handler *SettingsHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/settings/goals", handler.HandleGetGoals).Methods("GET").Name("get-goals")
	r.HandleFunc("/settings/goals", handler.HandleSetGoals).Methods("PUT").Name("set-goals")
	r.HandleFunc("/settings/goals", pkg.AllowMethods("GET", "PUT")).Methods("OPTIONS").Name("goals-options")
	r.HandleFunc("/settings/theme", handler.HandleGetTheme).Methods("GET").Name("get-theme")
	r.HandleFunc("/settings/theme", handler.HandleSetTheme).Methods("PUT").Name("set-theme")
	r.HandleFunc("/settings/theme", pkg.AllowMethods("GET", "PUT")).Methods("OPTIONS").Name("theme-options")
	r.HandleFunc("/settings/reset", handler.HandleReset).Methods("POST", "OPTIONS").Name("reset")
	r.HandleFunc("/export", handler.HandleExport).Methods("GET", "OPTIONS").Name("export")
}

func (handler *SettingsHandler) HandleGetGoals(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, handler.store.Goals(), http.StatusOK)
}

func (handler *SettingsHandler) HandleSetGoals(w http.ResponseWriter, r *http.Request) {
	var upd GoalsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Errorf("set goals: decode body: %s", err)
		http.Error(w, "invalid goals body", http.StatusBadRequest)
		return
	}

	goals, err := handler.store.SetGoals(r.Context(), upd)
	if err != nil {
		writeStoreError(w, "set goals", err)
		return
	}

	pkg.WriteJSON(w, goals, http.StatusOK)
}

type themePayload struct {
	Theme string `json:"theme"`
}

func (handler *SettingsHandler) HandleGetTheme(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, themePayload{Theme: string(handler.store.Theme())}, http.StatusOK)
}

func (handler *SettingsHandler) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload themePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid theme body", http.StatusBadRequest)
		return
	}

	if payload.Theme == themeToggle {
		theme, err := handler.store.ToggleTheme(r.Context())
		if err != nil {
			writeStoreError(w, "toggle theme", err)
			return
		}
		pkg.WriteJSON(w, themePayload{Theme: string(theme)}, http.StatusOK)
		return
	}

	theme := Theme(payload.Theme)
	if !theme.IsValid() {
		http.Error(w, "invalid theme, expected light, dark or toggle", http.StatusBadRequest)
		return
	}

	if err := handler.store.SetTheme(r.Context(), theme); err != nil {
		writeStoreError(w, "set theme", err)
		return
	}
	pkg.WriteJSON(w, themePayload{Theme: string(theme)}, http.StatusOK)
}

func (handler *SettingsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := handler.store.Reset(r.Context()); err != nil {
		writeStoreError(w, "reset", err)
		return
	}

	log.Warnln("all workouts cleared, goals reset")
	pkg.WriteJSON(w, handler.store.Snapshot(), http.StatusOK)
}

func (handler *SettingsHandler) HandleExport(w http.ResponseWriter, _ *http.Request) {
	payload, err := json.MarshalIndent(handler.store.Snapshot(), "", "  ")
	if err != nil {
		log.Errorf("export: marshal state: %s", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, payload)
}
