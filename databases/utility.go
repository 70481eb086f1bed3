package databases

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pillapp/pillapp-api/models"
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// Page selects a 1-based page of results. A zero Limit returns everything.
type Page struct {
	Limit int
	Page  int
}

func (p Page) findOptions() *options.FindOptions {
	if p.Limit <= 0 {
		return options.Find()
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return newMongoPaginate(p.Limit, page).getPaginatedOpts()
}

// ObjectID parses a hex id, returning a ValidationError when it is malformed
func ObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError(fmt.Sprintf("invalid id %q", hex))
	}
	return id, nil
}

// notFound converts mongo.ErrNoDocuments into a NotFoundError and wraps anything else
func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFoundError("%s not found", what)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// duplicate converts a duplicate key error into a ConflictError with message
func duplicate(err error, message string) error {
	if mongo.IsDuplicateKeyError(err) {
		return &models.ConflictError{Message: message}
	}
	return err
}
