package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pillapp/pillapp-api/models"
)

// New creates a new mux router with the health check and a JSON 404
func New() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(models.HealthCheckResponse{Alive: true})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(models.Envelope{
		Success: false,
		Message: "route " + r.Method + " " + r.URL.Path + " not found",
	})
}
