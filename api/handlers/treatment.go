package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/adherence"
	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/models"
)

// Treatment exposes the adherence service over http
type Treatment struct {
	Service *adherence.Service
}

type createTreatmentRequest struct {
	UserID       string `json:"userId" validate:"required"`
	MedicationID string `json:"medicationId" validate:"required"`
	Dosage       string `json:"dosage" validate:"required"`
	Frequency    int    `json:"frequency" validate:"required,min=1,max=24"`
	StartTime    string `json:"startTime" validate:"omitempty,hhmm"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

type updateTreatmentRequest struct {
	Dosage    *string             `json:"dosage"`
	Frequency *int                `json:"frequency" validate:"omitempty,min=1,max=24"`
	StartTime *string             `json:"startTime" validate:"omitempty,hhmm"`
	StartDate *string             `json:"startDate"`
	EndDate   models.OptionalTime `json:"endDate"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type doseRequest struct {
	Time string `json:"time"`
}

// CreateTreatmentHandler assigns a medication to a user and generates the daily slots
func (t Treatment) CreateTreatmentHandler(w http.ResponseWriter, r *http.Request) {
	var req createTreatmentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, "invalid treatment", err)
		return
	}
	startDate, err := parseOptionalDate("startDate", req.StartDate)
	if err != nil {
		writeError(w, r, "invalid treatment", err)
		return
	}
	endDate, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		writeError(w, r, "invalid treatment", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	view, err := t.Service.CreateTreatment(ctx, adherence.CreateTreatmentInput{
		UserID:       req.UserID,
		MedicationID: req.MedicationID,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		StartTime:    req.StartTime,
		StartDate:    startDate,
		EndDate:      endDate,
	})
	if err != nil {
		writeError(w, r, "failed to create treatment", err)
		return
	}
	created(w, "treatment assigned", view)
}

// TreatmentsHandler lists non-deleted treatments, filtered by ?status=a,b.
// Without a filter active and suspended treatments are returned.
func (t Treatment) TreatmentsHandler(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	for _, s := range strings.Split(r.URL.Query().Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	views, err := t.Service.ListTreatments(ctx, statuses)
	if err != nil {
		writeError(w, r, "failed to get treatments", err)
		return
	}
	list(w, views, len(views))
}

// UserTreatmentsHandler lists the non-deleted treatments of a user
func (t Treatment) UserTreatmentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	views, err := t.Service.ListUserTreatments(ctx, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, "failed to get treatments", err)
		return
	}
	list(w, views, len(views))
}

// DueTreatmentsHandler lists the treatments a reminder goes out for at ?time=HH:MM
func (t Treatment) DueTreatmentsHandler(w http.ResponseWriter, r *http.Request) {
	timeOfDay := r.URL.Query().Get("time")
	if timeOfDay == "" {
		writeError(w, r, "invalid query", models.NewValidationError("time is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	views, err := t.Service.DueAt(ctx, timeOfDay)
	if err != nil {
		writeError(w, r, "failed to get treatments", err)
		return
	}
	list(w, views, len(views))
}

// TreatmentHandler returns a non-deleted treatment by id
func (t Treatment) TreatmentHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	view, err := t.Service.GetTreatment(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, "failed to get treatment", err)
		return
	}
	ok(w, "", view)
}

// UpdateTreatmentHandler changes dosage, schedule or dates of a treatment
func (t Treatment) UpdateTreatmentHandler(w http.ResponseWriter, r *http.Request) {
	var req updateTreatmentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, "invalid treatment", err)
		return
	}

	in := adherence.UpdateTreatmentInput{
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		StartTime: req.StartTime,
		EndDate:   req.EndDate,
	}
	if req.StartDate != nil {
		startDate, err := parseOptionalDate("startDate", *req.StartDate)
		if err != nil {
			writeError(w, r, "invalid treatment", err)
			return
		}
		in.StartDate = startDate
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	view, err := t.Service.UpdateTreatment(ctx, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, "failed to update treatment", err)
		return
	}
	ok(w, "treatment updated", view)
}

// ChangeStatusHandler moves a treatment to another status
func (t Treatment) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, "invalid status", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	view, err := t.Service.ChangeStatus(ctx, mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, r, "failed to change treatment status", err)
		return
	}
	ok(w, fmt.Sprintf("status changed to: %s", req.Status), view)
}

// MarkDoseHandler marks the dose scheduled at the given time as taken
func (t Treatment) MarkDoseHandler(w http.ResponseWriter, r *http.Request) {
	var req doseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "invalid dose", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	treatment, err := t.Service.MarkTaken(ctx, mux.Vars(r)["id"], req.Time)
	if err != nil {
		writeError(w, r, "failed to mark dose as taken", err)
		return
	}
	ok(w, fmt.Sprintf("dose at %s marked as taken", req.Time), treatment)
}

// ResetDosesHandler clears the taken flags of every active treatment
func (t Treatment) ResetDosesHandler(w http.ResponseWriter, r *http.Request) {
	count, err := t.Service.ResetDailyDoses(r.Context())
	if err != nil {
		message := fmt.Sprintf("reset %d treatments, some could not be reset", count)
		zap.S().Errorw(message, "requestId", api.RequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, models.Envelope{
			Success: false,
			Message: message,
			Count:   &count,
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: fmt.Sprintf("reset %d treatments for the new day", count),
		Count:   &count,
	})
}

// DeleteTreatmentHandler soft deletes a treatment, or removes it with ?hard=true
func (t Treatment) DeleteTreatmentHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	hard := hardDelete(r)
	treatment, err := t.Service.DeleteTreatment(ctx, mux.Vars(r)["id"], hard)
	if err != nil {
		writeError(w, r, "failed to delete treatment", err)
		return
	}

	message := "treatment deleted"
	if hard {
		message = "treatment permanently deleted"
	}
	ok(w, message, treatment)
}
