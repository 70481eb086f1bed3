package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medication holds the structure for the medications catalog collection in mongo
type Medication struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	DeletedAt   *time.Time         `json:"deletedAt" bson:"deletedAt"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MedicationSummary is the subset of a medication inlined into treatment responses
type MedicationSummary struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
}
