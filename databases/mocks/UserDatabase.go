package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

// UserDatabase is a mock type for the UserDatabase type
type UserDatabase struct {
	mock.Mock
}

func userResult(ret mock.Arguments) (*models.User, error) {
	var r0 *models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.User)
	}
	return r0, ret.Error(1)
}

// Create provides a mock function with given fields: ctx, user
func (_m *UserDatabase) Create(ctx context.Context, user *models.User) error {
	return _m.Called(ctx, user).Error(0)
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *UserDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return userResult(_m.Called(ctx, id))
}

// FindByEmail provides a mock function with given fields: ctx, email
func (_m *UserDatabase) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return userResult(_m.Called(ctx, email))
}

// List provides a mock function with given fields: ctx, page
func (_m *UserDatabase) List(ctx context.Context, page databases.Page) ([]models.User, error) {
	ret := _m.Called(ctx, page)

	var r0 []models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.User)
	}
	return r0, ret.Error(1)
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *UserDatabase) EnsureIndexes(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// NewUserDatabase creates a new instance of UserDatabase. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewUserDatabase(t mockConstructorTestingT) *UserDatabase {
	m := &UserDatabase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
