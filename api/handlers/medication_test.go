package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/api/handlers"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/databases/mocks"
	"github.com/pillapp/pillapp-api/models"
)

func TestCreateMedicationHandler(t *testing.T) {
	db := mocks.NewMedicationDatabase(t)
	h := handlers.Medication{DB: db}
	db.On("Create", mock.Anything, &models.Medication{Name: "Ibuprofen", Description: "Pain relief"}).Return(nil)

	rr := serve(h.CreateMedicationHandler, newRequest(t, http.MethodPost, "/api/v1/medications", `{"name":"  Ibuprofen ","description":" Pain relief "}`))

	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "medication created", envelope(t, rr).Message)
}

func TestCreateMedicationHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{name: "missing name", body: `{}`, errors: []string{"name is required"}},
		{name: "blank name", body: `{"name":"   "}`, errors: []string{"name is required"}},
		{name: "short name", body: `{"name":" A "}`, errors: []string{"name must be at least 2 characters"}},
		{
			name:   "long description",
			body:   `{"name":"Ibuprofen","description":"` + strings.Repeat("x", 501) + `"}`,
			errors: []string{"description must be at most 500 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.Medication{DB: mocks.NewMedicationDatabase(t)}

			rr := serve(h.CreateMedicationHandler, newRequest(t, http.MethodPost, "/api/v1/medications", tt.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.errors, envelope(t, rr).Errors)
		})
	}
}

func TestCreateMedicationHandlerDuplicate(t *testing.T) {
	db := mocks.NewMedicationDatabase(t)
	h := handlers.Medication{DB: db}
	db.On("Create", mock.Anything, mock.Anything).Return(&models.ConflictError{Message: "a medication with that name already exists"})

	rr := serve(h.CreateMedicationHandler, newRequest(t, http.MethodPost, "/api/v1/medications", `{"name":"Ibuprofen"}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "a medication with that name already exists", envelope(t, rr).Message)
}

func TestMedicationsHandler(t *testing.T) {
	db := mocks.NewMedicationDatabase(t)
	h := handlers.Medication{DB: db}
	db.On("List", mock.Anything, databases.Page{}).Return([]models.Medication{{Name: "Ibuprofen"}}, nil)

	rr := serve(h.MedicationsHandler, newRequest(t, http.MethodGet, "/api/v1/medications", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	body := envelope(t, rr)
	require.NotNil(t, body.Count)
	assert.Equal(t, 1, *body.Count)
}

func TestMedicationHandlerNotFound(t *testing.T) {
	db := mocks.NewMedicationDatabase(t)
	h := handlers.Medication{DB: db}
	id := primitive.NewObjectID()
	db.On("FindByID", mock.Anything, id).Return(nil, models.NewNotFoundError("medication not found"))

	req := withVars(newRequest(t, http.MethodGet, "/api/v1/medications/"+id.Hex(), ""), map[string]string{"id": id.Hex()})
	rr := serve(h.MedicationHandler, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateMedicationHandler(t *testing.T) {
	db := mocks.NewMedicationDatabase(t)
	h := handlers.Medication{DB: db}
	id := primitive.NewObjectID()
	db.On("Update", mock.Anything, id, "Paracetamol", "").Return(&models.Medication{ID: id, Name: "Paracetamol"}, nil)

	req := withVars(newRequest(t, http.MethodPut, "/api/v1/medications/"+id.Hex(), `{"name":"Paracetamol"}`), map[string]string{"id": id.Hex()})
	rr := serve(h.UpdateMedicationHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "medication updated", envelope(t, rr).Message)
}

func TestDeleteMedicationHandler(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		method  string
		message string
	}{
		{name: "soft", query: "", method: "SoftDelete", message: "medication deleted"},
		{name: "hard", query: "?hard=true", method: "Delete", message: "medication permanently deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := mocks.NewMedicationDatabase(t)
			h := handlers.Medication{DB: db}
			id := primitive.NewObjectID()
			db.On(tt.method, mock.Anything, id).Return(&models.Medication{ID: id}, nil)

			req := withVars(newRequest(t, http.MethodDelete, "/api/v1/medications/"+id.Hex()+tt.query, ""), map[string]string{"id": id.Hex()})
			rr := serve(h.DeleteMedicationHandler, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.message, envelope(t, rr).Message)
		})
	}
}
