package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pillapp/pillapp-api/models"
)

// Sender is a mock type for the Sender type
type Sender struct {
	mock.Mock
}

// IsConfigured provides a mock function with given fields:
func (_m *Sender) IsConfigured() bool {
	return _m.Called().Bool(0)
}

// Channel provides a mock function with given fields:
func (_m *Sender) Channel() string {
	return _m.Called().String(0)
}

// Recipient provides a mock function with given fields: user
func (_m *Sender) Recipient(user models.UserSummary) (string, bool) {
	ret := _m.Called(user)
	return ret.String(0), ret.Bool(1)
}

// SendReminder provides a mock function with given fields: ctx, to, medication, dosage, timeOfDay
func (_m *Sender) SendReminder(ctx context.Context, to string, medication string, dosage string, timeOfDay string) error {
	return _m.Called(ctx, to, medication, dosage, timeOfDay).Error(0)
}

type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// NewSender creates a new instance of Sender. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewSender(t mockConstructorTestingT) *Sender {
	m := &Sender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
