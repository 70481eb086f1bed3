package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/models"
)

// TreatmentDatabase is a mock type for the TreatmentDatabase type
type TreatmentDatabase struct {
	mock.Mock
}

func treatmentResult(ret mock.Arguments) (*models.Treatment, error) {
	var r0 *models.Treatment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Treatment)
	}
	return r0, ret.Error(1)
}

func viewsResult(ret mock.Arguments) ([]models.TreatmentView, error) {
	var r0 []models.TreatmentView
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.TreatmentView)
	}
	return r0, ret.Error(1)
}

// Insert provides a mock function with given fields: ctx, treatment
func (_m *TreatmentDatabase) Insert(ctx context.Context, treatment *models.Treatment) error {
	return _m.Called(ctx, treatment).Error(0)
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *TreatmentDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	return treatmentResult(_m.Called(ctx, id))
}

// FindViewByID provides a mock function with given fields: ctx, id
func (_m *TreatmentDatabase) FindViewByID(ctx context.Context, id primitive.ObjectID) (*models.TreatmentView, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.TreatmentView
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.TreatmentView)
	}
	return r0, ret.Error(1)
}

// ListByStatus provides a mock function with given fields: ctx, statuses
func (_m *TreatmentDatabase) ListByStatus(ctx context.Context, statuses []string) ([]models.TreatmentView, error) {
	return viewsResult(_m.Called(ctx, statuses))
}

// ListByUser provides a mock function with given fields: ctx, userID
func (_m *TreatmentDatabase) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TreatmentView, error) {
	return viewsResult(_m.Called(ctx, userID))
}

// DueAt provides a mock function with given fields: ctx, timeOfDay
func (_m *TreatmentDatabase) DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error) {
	return viewsResult(_m.Called(ctx, timeOfDay))
}

// FindActive provides a mock function with given fields: ctx
func (_m *TreatmentDatabase) FindActive(ctx context.Context) ([]models.Treatment, error) {
	ret := _m.Called(ctx)

	var r0 []models.Treatment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Treatment)
	}
	return r0, ret.Error(1)
}

// FinishEnded provides a mock function with given fields: ctx, now
func (_m *TreatmentDatabase) FinishEnded(ctx context.Context, now time.Time) (int64, error) {
	ret := _m.Called(ctx, now)

	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, treatment
func (_m *TreatmentDatabase) Save(ctx context.Context, treatment *models.Treatment) error {
	return _m.Called(ctx, treatment).Error(0)
}

// SoftDelete provides a mock function with given fields: ctx, id
func (_m *TreatmentDatabase) SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	return treatmentResult(_m.Called(ctx, id))
}

// Delete provides a mock function with given fields: ctx, id
func (_m *TreatmentDatabase) Delete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	return treatmentResult(_m.Called(ctx, id))
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *TreatmentDatabase) EnsureIndexes(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// NewTreatmentDatabase creates a new instance of TreatmentDatabase. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTreatmentDatabase(t mockConstructorTestingT) *TreatmentDatabase {
	m := &TreatmentDatabase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
