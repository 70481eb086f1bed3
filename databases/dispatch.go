package databases

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pillapp/pillapp-api/models"
)

const dispatchName = "reminderDispatches"

// dispatchRetention is how long ledger entries are kept before mongo expires them
const dispatchRetention = 7 * 24 * time.Hour

// DispatchDatabase is the reminder ledger: one entry per treatment, slot and
// calendar day, so the same reminder is claimed at most once
type DispatchDatabase interface {
	Claim(ctx context.Context, dispatch *models.ReminderDispatch) (bool, error)
	Release(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type dispatchDatabase struct {
	db DatabaseHelper
}

// NewDispatchDatabase initializes the reminder ledger with the provided db connection
func NewDispatchDatabase(db DatabaseHelper) DispatchDatabase {
	return &dispatchDatabase{db: db}
}

// Claim records the dispatch. It returns false without error when another
// tick already claimed the same treatment, slot and date.
func (d *dispatchDatabase) Claim(ctx context.Context, dispatch *models.ReminderDispatch) (bool, error) {
	if dispatch.ID.IsZero() {
		dispatch.ID = primitive.NewObjectID()
	}
	_, err := d.db.Collection(dispatchName).InsertOne(ctx, dispatch)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return true, nil
}

// Release drops a claim so a later tick may try the reminder again
func (d *dispatchDatabase) Release(ctx context.Context, id primitive.ObjectID) error {
	_, err := d.db.Collection(dispatchName).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to release reminder claim: %w", err)
	}
	return nil
}

// EnsureIndexes creates the uniqueness and expiry indexes of the ledger
func (d *dispatchDatabase) EnsureIndexes(ctx context.Context) error {
	return d.db.Collection(dispatchName).CreateIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "treatment", Value: 1}, {Key: "slot", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(dispatchRetention.Seconds())),
		},
	})
}
