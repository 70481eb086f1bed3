package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

func writeJSON(w http.ResponseWriter, status int, body models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.S().Errorw("failed to encode response", "error", err)
	}
}

func ok(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, models.Envelope{Success: true, Message: message, Data: data})
}

func created(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, models.Envelope{Success: true, Message: message, Data: data})
}

func list(w http.ResponseWriter, data interface{}, count int) {
	writeJSON(w, http.StatusOK, models.Envelope{Success: true, Count: &count, Data: data})
}

// writeError maps the typed errors of the models package onto status codes.
// Anything unrecognized is a 500 carrying message and the raw error.
func writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		conflict   *models.ConflictError
		stale      *models.StaleRevisionError
	)

	status := http.StatusInternalServerError
	body := models.Envelope{Success: false, Message: message}
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body.Errors = validation.Fields
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		body.Message = notFound.Message
	case errors.As(err, &conflict):
		status = http.StatusBadRequest
		body.Message = conflict.Message
	case errors.As(err, &stale):
		status = http.StatusConflict
		body.Message = stale.Error()
	default:
		zap.S().Errorw(message, "requestId", api.RequestID(r.Context()), "path", r.URL.Path, "error", err)
		config.ErrorStatus(message, status, w, err)
		return
	}

	zap.S().Infow(message, "requestId", api.RequestID(r.Context()), "status", status, "error", err)
	writeJSON(w, status, body)
}

// pageFromQuery reads the optional limit and page query parameters
func pageFromQuery(r *http.Request) databases.Page {
	page := databases.Page{}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page.Page = v
	}
	return page
}

func hardDelete(r *http.Request) bool {
	return r.URL.Query().Get("hard") == "true"
}
