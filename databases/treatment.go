package databases

// go generate: mockery --name TreatmentDatabase

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

const treatmentName = "treatments"

// TreatmentDatabase contains the methods to use with the treatment database.
// Unless stated otherwise, soft-deleted treatments are never returned.
type TreatmentDatabase interface {
	Insert(ctx context.Context, treatment *models.Treatment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error)
	FindViewByID(ctx context.Context, id primitive.ObjectID) (*models.TreatmentView, error)
	ListByStatus(ctx context.Context, statuses []string) ([]models.TreatmentView, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TreatmentView, error)
	DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error)
	FindActive(ctx context.Context) ([]models.Treatment, error)
	FinishEnded(ctx context.Context, now time.Time) (int64, error)
	Save(ctx context.Context, treatment *models.Treatment) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error)
	EnsureIndexes(ctx context.Context) error
}

type treatmentDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewTreatmentDatabase initializes a new instance of treatment database with the provided db connection
func NewTreatmentDatabase(db DatabaseHelper) TreatmentDatabase {
	return &treatmentDatabase{db: db, now: time.Now}
}

// NotDeletedFilter matches treatments without a soft-delete timestamp
func NotDeletedFilter() bson.M {
	return bson.M{"deletedAt": nil}
}

// ActiveFilter matches active, non-deleted treatments
func ActiveFilter() bson.M {
	return bson.M{"status": models.StatusActive, "deletedAt": nil}
}

// DueAtFilter matches active, non-deleted treatments with a slot at timeOfDay
func DueAtFilter(timeOfDay string) bson.M {
	return bson.M{"status": models.StatusActive, "deletedAt": nil, "slots.time": timeOfDay}
}

// StatusFilter matches non-deleted treatments in any of statuses
func StatusFilter(statuses []string) bson.M {
	return bson.M{"status": bson.M{"$in": statuses}, "deletedAt": nil}
}

// UserFilter matches non-deleted treatments owned by userID
func UserFilter(userID primitive.ObjectID) bson.M {
	return bson.M{"user": userID, "deletedAt": nil}
}

// EndedFilter matches active, non-deleted treatments whose end date is before now
func EndedFilter(now time.Time) bson.M {
	return bson.M{"status": models.StatusActive, "deletedAt": nil, "endDate": bson.M{"$lt": now}}
}

// populatePipeline resolves the user and medication references of every
// treatment matching filter, newest first
func populatePipeline(filter bson.M) []bson.M {
	return []bson.M{
		{"$match": filter},
		{"$sort": bson.M{"createdAt": -1}},
		{"$lookup": bson.M{
			"from":         userName,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "userDoc",
		}},
		{"$unwind": bson.M{"path": "$userDoc", "preserveNullAndEmptyArrays": true}},
		{"$lookup": bson.M{
			"from":         medicationName,
			"localField":   "medication",
			"foreignField": "_id",
			"as":           "medicationDoc",
		}},
		{"$unwind": bson.M{"path": "$medicationDoc", "preserveNullAndEmptyArrays": true}},
		{"$project": bson.M{
			"userDoc.password":        0,
			"userDoc.birthDate":       0,
			"userDoc.status":          0,
			"userDoc.createdAt":       0,
			"userDoc.updatedAt":       0,
			"medicationDoc.deletedAt": 0,
			"medicationDoc.createdAt": 0,
			"medicationDoc.updatedAt": 0,
		}},
	}
}

func (t *treatmentDatabase) collection() CollectionHelper {
	return t.db.Collection(treatmentName)
}

func (t *treatmentDatabase) views(ctx context.Context, filter bson.M) ([]models.TreatmentView, error) {
	cursor, err := t.collection().Aggregate(ctx, populatePipeline(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query treatments: %w", err)
	}
	defer cursor.Close(ctx)

	views := []models.TreatmentView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode treatments: %w", err)
	}
	return views, nil
}

func (t *treatmentDatabase) Insert(ctx context.Context, treatment *models.Treatment) error {
	if treatment.ID.IsZero() {
		treatment.ID = primitive.NewObjectID()
	}
	treatment.Version = 0
	if _, err := t.collection().InsertOne(ctx, treatment); err != nil {
		return fmt.Errorf("failed to insert treatment: %w", err)
	}
	return nil
}

func (t *treatmentDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	filter := NotDeletedFilter()
	filter["_id"] = id

	treatment := &models.Treatment{}
	if err := t.collection().FindOne(ctx, filter).Decode(treatment); err != nil {
		return nil, notFound(err, "treatment")
	}
	return treatment, nil
}

func (t *treatmentDatabase) FindViewByID(ctx context.Context, id primitive.ObjectID) (*models.TreatmentView, error) {
	filter := NotDeletedFilter()
	filter["_id"] = id

	views, err := t.views(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, models.NewNotFoundError("treatment not found")
	}
	return &views[0], nil
}

func (t *treatmentDatabase) ListByStatus(ctx context.Context, statuses []string) ([]models.TreatmentView, error) {
	return t.views(ctx, StatusFilter(statuses))
}

func (t *treatmentDatabase) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TreatmentView, error) {
	return t.views(ctx, UserFilter(userID))
}

// DueAt is the reminder matching query: active, non-deleted treatments with a
// slot at timeOfDay, with user and medication resolved
func (t *treatmentDatabase) DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error) {
	return t.views(ctx, DueAtFilter(timeOfDay))
}

// FindActive returns every active, non-deleted treatment without resolving references
func (t *treatmentDatabase) FindActive(ctx context.Context) ([]models.Treatment, error) {
	cursor, err := t.collection().Find(ctx, ActiveFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to find active treatments: %w", err)
	}
	defer cursor.Close(ctx)

	treatments := []models.Treatment{}
	if err := cursor.All(ctx, &treatments); err != nil {
		return nil, fmt.Errorf("failed to decode active treatments: %w", err)
	}
	return treatments, nil
}

// FinishEnded moves active treatments whose end date has passed to finished
func (t *treatmentDatabase) FinishEnded(ctx context.Context, now time.Time) (int64, error) {
	update := bson.M{
		"$set": bson.M{"status": models.StatusFinished, "updatedAt": now},
		"$inc": bson.M{"__v": 1},
	}
	res, err := t.collection().UpdateMany(ctx, EndedFilter(now), update)
	if err != nil {
		return 0, fmt.Errorf("failed to finish ended treatments: %w", err)
	}
	return res.ModifiedCount, nil
}

// Save writes the whole treatment document back, guarded by its revision. The
// write only applies when the stored __v still equals treatment.Version;
// otherwise a StaleRevisionError is returned. On success Version is bumped.
func (t *treatmentDatabase) Save(ctx context.Context, treatment *models.Treatment) error {
	filter := bson.M{"_id": treatment.ID, "__v": treatment.Version}

	next := *treatment
	next.Version = treatment.Version + 1
	next.UpdatedAt = t.now()

	res, err := t.collection().ReplaceOne(ctx, filter, next)
	if err != nil {
		return fmt.Errorf("failed to save treatment: %w", err)
	}
	if res.MatchedCount == 0 {
		return &models.StaleRevisionError{ID: treatment.ID.Hex()}
	}

	treatment.Version = next.Version
	treatment.UpdatedAt = next.UpdatedAt
	return nil
}

func (t *treatmentDatabase) SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	now := t.now()
	filter := NotDeletedFilter()
	filter["_id"] = id
	update := bson.M{
		"$set": bson.M{"deletedAt": now, "updatedAt": now},
		"$inc": bson.M{"__v": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	treatment := &models.Treatment{}
	if err := t.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(treatment); err != nil {
		return nil, notFound(err, "treatment")
	}
	return treatment, nil
}

func (t *treatmentDatabase) Delete(ctx context.Context, id primitive.ObjectID) (*models.Treatment, error) {
	treatment := &models.Treatment{}
	if err := t.collection().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(treatment); err != nil {
		return nil, notFound(err, "treatment")
	}
	return treatment, nil
}

// EnsureIndexes creates the indexes backing the reminder and listing queries
func (t *treatmentDatabase) EnsureIndexes(ctx context.Context) error {
	return t.collection().CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "slots.time", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
}
