package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

// Medication represents the medication catalog handler
type Medication struct {
	DB databases.MedicationDatabase
}

type medicationRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (req *medicationRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
}

func readMedication(r *http.Request) (medicationRequest, error) {
	var req medicationRequest
	if err := decode(r, &req); err != nil {
		return req, err
	}
	req.normalize()
	return req, validateStruct(&req)
}

// CreateMedicationHandler adds a medication to the catalog
func (h Medication) CreateMedicationHandler(w http.ResponseWriter, r *http.Request) {
	req, err := readMedication(r)
	if err != nil {
		writeError(w, r, "invalid medication", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medication := &models.Medication{Name: req.Name, Description: req.Description}
	if err := h.DB.Create(ctx, medication); err != nil {
		writeError(w, r, "failed to create medication", err)
		return
	}
	created(w, "medication created", medication)
}

// MedicationsHandler lists non-deleted medications, newest first
func (h Medication) MedicationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medications, err := h.DB.List(ctx, pageFromQuery(r))
	if err != nil {
		writeError(w, r, "failed to get medications", err)
		return
	}
	list(w, medications, len(medications))
}

// MedicationHandler returns a non-deleted medication by id
func (h Medication) MedicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := databases.ObjectID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, "invalid medication id", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medication, err := h.DB.FindByID(ctx, id)
	if err != nil {
		writeError(w, r, "failed to get medication", err)
		return
	}
	ok(w, "", medication)
}

// UpdateMedicationHandler replaces the name and description of a medication
func (h Medication) UpdateMedicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := databases.ObjectID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, "invalid medication id", err)
		return
	}
	req, err := readMedication(r)
	if err != nil {
		writeError(w, r, "invalid medication", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medication, err := h.DB.Update(ctx, id, req.Name, req.Description)
	if err != nil {
		writeError(w, r, "failed to update medication", err)
		return
	}
	ok(w, "medication updated", medication)
}

// DeleteMedicationHandler soft deletes a medication, or removes it with ?hard=true
func (h Medication) DeleteMedicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := databases.ObjectID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, "invalid medication id", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if hardDelete(r) {
		medication, err := h.DB.Delete(ctx, id)
		if err != nil {
			writeError(w, r, "failed to delete medication", err)
			return
		}
		ok(w, "medication permanently deleted", medication)
		return
	}

	medication, err := h.DB.SoftDelete(ctx, id)
	if err != nil {
		writeError(w, r, "failed to delete medication", err)
		return
	}
	ok(w, "medication deleted", medication)
}
