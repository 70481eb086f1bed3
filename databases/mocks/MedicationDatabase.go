package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

// MedicationDatabase is a mock type for the MedicationDatabase type
type MedicationDatabase struct {
	mock.Mock
}

func medicationResult(ret mock.Arguments) (*models.Medication, error) {
	var r0 *models.Medication
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Medication)
	}
	return r0, ret.Error(1)
}

// Create provides a mock function with given fields: ctx, medication
func (_m *MedicationDatabase) Create(ctx context.Context, medication *models.Medication) error {
	return _m.Called(ctx, medication).Error(0)
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *MedicationDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	return medicationResult(_m.Called(ctx, id))
}

// List provides a mock function with given fields: ctx, page
func (_m *MedicationDatabase) List(ctx context.Context, page databases.Page) ([]models.Medication, error) {
	ret := _m.Called(ctx, page)

	var r0 []models.Medication
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Medication)
	}
	return r0, ret.Error(1)
}

// Update provides a mock function with given fields: ctx, id, name, description
func (_m *MedicationDatabase) Update(ctx context.Context, id primitive.ObjectID, name string, description string) (*models.Medication, error) {
	return medicationResult(_m.Called(ctx, id, name, description))
}

// SoftDelete provides a mock function with given fields: ctx, id
func (_m *MedicationDatabase) SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	return medicationResult(_m.Called(ctx, id))
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MedicationDatabase) Delete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	return medicationResult(_m.Called(ctx, id))
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *MedicationDatabase) EnsureIndexes(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// NewMedicationDatabase creates a new instance of MedicationDatabase. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMedicationDatabase(t mockConstructorTestingT) *MedicationDatabase {
	m := &MedicationDatabase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
