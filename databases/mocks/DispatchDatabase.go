package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/models"
)

// DispatchDatabase is a mock type for the DispatchDatabase type
type DispatchDatabase struct {
	mock.Mock
}

// Claim provides a mock function with given fields: ctx, dispatch
func (_m *DispatchDatabase) Claim(ctx context.Context, dispatch *models.ReminderDispatch) (bool, error) {
	ret := _m.Called(ctx, dispatch)
	return ret.Bool(0), ret.Error(1)
}

// Release provides a mock function with given fields: ctx, id
func (_m *DispatchDatabase) Release(ctx context.Context, id primitive.ObjectID) error {
	return _m.Called(ctx, id).Error(0)
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *DispatchDatabase) EnsureIndexes(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// NewDispatchDatabase creates a new instance of DispatchDatabase. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewDispatchDatabase(t mockConstructorTestingT) *DispatchDatabase {
	m := &DispatchDatabase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
