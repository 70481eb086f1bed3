package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderDispatch records that a reminder was claimed for one slot of one
// treatment on one calendar day
type ReminderDispatch struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Treatment primitive.ObjectID `json:"treatment" bson:"treatment"`
	Slot      string             `json:"slot" bson:"slot"`
	Date      string             `json:"date" bson:"date"`
	Channel   string             `json:"channel" bson:"channel"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// ReminderEvent is pushed to live feed subscribers after a reminder is sent
type ReminderEvent struct {
	TreatmentID primitive.ObjectID `json:"treatmentId"`
	UserID      primitive.ObjectID `json:"userId"`
	UserName    string             `json:"userName"`
	Medication  string             `json:"medication"`
	Dosage      string             `json:"dosage"`
	TimeOfDay   string             `json:"time"`
	Channel     string             `json:"channel"`
	SentAt      time.Time          `json:"sentAt"`
}
