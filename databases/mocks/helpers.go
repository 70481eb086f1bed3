package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pillapp/pillapp-api/databases"
)

type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

func variadic(head []interface{}, opts ...interface{}) []interface{} {
	return append(head, opts...)
}

// DatabaseHelper is a mock type for the DatabaseHelper type
type DatabaseHelper struct {
	mock.Mock
}

// Client provides a mock function with given fields:
func (_m *DatabaseHelper) Client() databases.ClientHelper {
	ret := _m.Called()

	var r0 databases.ClientHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.ClientHelper)
	}
	return r0
}

// Collection provides a mock function with given fields: name
func (_m *DatabaseHelper) Collection(name string) databases.CollectionHelper {
	ret := _m.Called(name)

	var r0 databases.CollectionHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.CollectionHelper)
	}
	return r0
}

// NewDatabaseHelper creates a new instance of DatabaseHelper. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewDatabaseHelper(t mockConstructorTestingT) *DatabaseHelper {
	m := &DatabaseHelper{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ClientHelper is a mock type for the ClientHelper type
type ClientHelper struct {
	mock.Mock
}

// Database provides a mock function with given fields: name
func (_m *ClientHelper) Database(name string) databases.DatabaseHelper {
	ret := _m.Called(name)

	var r0 databases.DatabaseHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.DatabaseHelper)
	}
	return r0
}

// Connect provides a mock function with given fields: ctx
func (_m *ClientHelper) Connect(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// Ping provides a mock function with given fields: ctx
func (_m *ClientHelper) Ping(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// Disconnect provides a mock function with given fields: ctx
func (_m *ClientHelper) Disconnect(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// SingleResultHelper is a mock type for the SingleResultHelper type
type SingleResultHelper struct {
	mock.Mock
}

// Decode provides a mock function with given fields: v
func (_m *SingleResultHelper) Decode(v interface{}) error {
	return _m.Called(v).Error(0)
}

// CursorHelper is a mock type for the CursorHelper type
type CursorHelper struct {
	mock.Mock
}

// All provides a mock function with given fields: ctx, results
func (_m *CursorHelper) All(ctx context.Context, results interface{}) error {
	return _m.Called(ctx, results).Error(0)
}

// Close provides a mock function with given fields: ctx
func (_m *CursorHelper) Close(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// CollectionHelper is a mock type for the CollectionHelper type
type CollectionHelper struct {
	mock.Mock
}

// NewCollectionHelper creates a new instance of CollectionHelper. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewCollectionHelper(t mockConstructorTestingT) *CollectionHelper {
	m := &CollectionHelper{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func single(ret mock.Arguments) databases.SingleResultHelper {
	var r0 databases.SingleResultHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.SingleResultHelper)
	}
	return r0
}

func cursor(ret mock.Arguments) (databases.CursorHelper, error) {
	var r0 databases.CursorHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.CursorHelper)
	}
	return r0, ret.Error(1)
}

func updateResult(ret mock.Arguments) (*mongo.UpdateResult, error) {
	var r0 *mongo.UpdateResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*mongo.UpdateResult)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter, opts
func (_m *CollectionHelper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) databases.SingleResultHelper {
	args := []interface{}{ctx, filter}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return single(_m.Called(args...))
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *CollectionHelper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (databases.CursorHelper, error) {
	args := []interface{}{ctx, filter}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return cursor(_m.Called(args...))
}

// InsertOne provides a mock function with given fields: ctx, document, opts
func (_m *CollectionHelper) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (interface{}, error) {
	args := []interface{}{ctx, document}
	for _, o := range opts {
		args = variadic(args, o)
	}
	ret := _m.Called(args...)
	return ret.Get(0), ret.Error(1)
}

// UpdateOne provides a mock function with given fields: ctx, filter, update, opts
func (_m *CollectionHelper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := []interface{}{ctx, filter, update}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return updateResult(_m.Called(args...))
}

// UpdateMany provides a mock function with given fields: ctx, filter, update, opts
func (_m *CollectionHelper) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := []interface{}{ctx, filter, update}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return updateResult(_m.Called(args...))
}

// ReplaceOne provides a mock function with given fields: ctx, filter, replacement, opts
func (_m *CollectionHelper) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	args := []interface{}{ctx, filter, replacement}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return updateResult(_m.Called(args...))
}

// FindOneAndUpdate provides a mock function with given fields: ctx, filter, update, opts
func (_m *CollectionHelper) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) databases.SingleResultHelper {
	args := []interface{}{ctx, filter, update}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return single(_m.Called(args...))
}

// FindOneAndDelete provides a mock function with given fields: ctx, filter, opts
func (_m *CollectionHelper) FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) databases.SingleResultHelper {
	args := []interface{}{ctx, filter}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return single(_m.Called(args...))
}

// DeleteOne provides a mock function with given fields: ctx, filter, opts
func (_m *CollectionHelper) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	args := []interface{}{ctx, filter}
	for _, o := range opts {
		args = variadic(args, o)
	}
	ret := _m.Called(args...)
	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

// CountDocuments provides a mock function with given fields: ctx, filter, opts
func (_m *CollectionHelper) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	args := []interface{}{ctx, filter}
	for _, o := range opts {
		args = variadic(args, o)
	}
	ret := _m.Called(args...)
	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

// Aggregate provides a mock function with given fields: ctx, pipeline, opts
func (_m *CollectionHelper) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (databases.CursorHelper, error) {
	args := []interface{}{ctx, pipeline}
	for _, o := range opts {
		args = variadic(args, o)
	}
	return cursor(_m.Called(args...))
}

// CreateIndexes provides a mock function with given fields: ctx, models
func (_m *CollectionHelper) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	return _m.Called(ctx, models).Error(0)
}
