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

const medicationName = "medications"

const duplicateMedication = "a medication with that name already exists"

// MedicationDatabase defines the interface for medication catalog operations.
// Soft-deleted medications are invisible to every method except Delete.
type MedicationDatabase interface {
	Create(ctx context.Context, medication *models.Medication) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error)
	List(ctx context.Context, page Page) ([]models.Medication, error)
	Update(ctx context.Context, id primitive.ObjectID, name, description string) (*models.Medication, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error)
	EnsureIndexes(ctx context.Context) error
}

// medicationDatabase implements MedicationDatabase
type medicationDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewMedicationDatabase creates a new medication database instance
func NewMedicationDatabase(db DatabaseHelper) MedicationDatabase {
	return &medicationDatabase{db: db, now: time.Now}
}

func (m *medicationDatabase) collection() CollectionHelper {
	return m.db.Collection(medicationName)
}

// Create creates a new medication
func (m *medicationDatabase) Create(ctx context.Context, medication *models.Medication) error {
	now := m.now()
	medication.CreatedAt = now
	medication.UpdatedAt = now
	medication.DeletedAt = nil

	// Generate new ObjectID if not provided
	if medication.ID.IsZero() {
		medication.ID = primitive.NewObjectID()
	}

	_, err := m.collection().InsertOne(ctx, medication)
	if err != nil {
		return duplicate(err, duplicateMedication)
	}
	return nil
}

// FindByID retrieves a single non-deleted medication by ID
func (m *medicationDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	var medication models.Medication
	err := m.collection().FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&medication)
	if err != nil {
		return nil, notFound(err, "medication")
	}
	return &medication, nil
}

// List returns non-deleted medications, newest first
func (m *medicationDatabase) List(ctx context.Context, page Page) ([]models.Medication, error) {
	opts := page.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.collection().Find(ctx, bson.M{"deletedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer cursor.Close(ctx)

	medications := []models.Medication{}
	if err := cursor.All(ctx, &medications); err != nil {
		return nil, fmt.Errorf("failed to decode medications: %w", err)
	}
	return medications, nil
}

// Update replaces the name and description of a medication and returns the updated document
func (m *medicationDatabase) Update(ctx context.Context, id primitive.ObjectID, name, description string) (*models.Medication, error) {
	update := bson.M{
		"$set": bson.M{
			"name":        name,
			"description": description,
			"updatedAt":   m.now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var medication models.Medication
	err := m.collection().FindOneAndUpdate(ctx, bson.M{"_id": id, "deletedAt": nil}, update, opts).Decode(&medication)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.ConflictError{Message: duplicateMedication}
		}
		return nil, notFound(err, "medication")
	}
	return &medication, nil
}

// SoftDelete stamps deletedAt on a medication that is not already deleted
func (m *medicationDatabase) SoftDelete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	now := m.now()
	update := bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var medication models.Medication
	err := m.collection().FindOneAndUpdate(ctx, bson.M{"_id": id, "deletedAt": nil}, update, opts).Decode(&medication)
	if err != nil {
		return nil, notFound(err, "medication")
	}
	return &medication, nil
}

// Delete removes a medication permanently, deleted or not
func (m *medicationDatabase) Delete(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	var medication models.Medication
	err := m.collection().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&medication)
	if err != nil {
		return nil, notFound(err, "medication")
	}
	return &medication, nil
}

// EnsureIndexes creates the unique name index
func (m *medicationDatabase) EnsureIndexes(ctx context.Context) error {
	return m.collection().CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}
