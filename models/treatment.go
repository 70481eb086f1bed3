package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Treatment lifecycle statuses. Any status may move to any other through an
// explicit status change.
const (
	StatusActive    = "active"
	StatusFinished  = "finished"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
)

// TreatmentStatuses lists every declared treatment status
var TreatmentStatuses = []string{StatusActive, StatusFinished, StatusSuspended, StatusCancelled}

// ValidTreatmentStatus reports whether status is one of TreatmentStatuses
func ValidTreatmentStatus(status string) bool {
	for _, s := range TreatmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Slot is one scheduled dose time within a treatment's daily cycle
type Slot struct {
	Time        string     `json:"time" bson:"time"`
	Taken       bool       `json:"taken" bson:"taken"`
	LastTakenAt *time.Time `json:"lastTakenAt,omitempty" bson:"lastTakenAt,omitempty"`
}

// Treatment holds the structure for the treatments collection in mongo
type Treatment struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id"`
	User          primitive.ObjectID `json:"user" bson:"user"`
	Medication    primitive.ObjectID `json:"medication" bson:"medication"`
	Dosage        string             `json:"dosage" bson:"dosage"`
	Frequency     int                `json:"frequency" bson:"frequency"`
	StartTime     string             `json:"startTime" bson:"startTime"`
	IntervalHours float64            `json:"intervalHours" bson:"intervalHours"`
	Slots         []Slot             `json:"slots" bson:"slots"`
	StartDate     time.Time          `json:"startDate" bson:"startDate"`
	EndDate       *time.Time         `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Status        string             `json:"status" bson:"status"`
	DeletedAt     *time.Time         `json:"deletedAt" bson:"deletedAt"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	Version       int32              `json:"__v" bson:"__v"`
}

// NewTreatment builds an active treatment and generates its daily slots. An
// empty startTime falls back to DefaultStartTime and a zero startDate to now.
func NewTreatment(user, medication primitive.ObjectID, dosage string, frequency int, startTime string, startDate time.Time, endDate *time.Time, now time.Time) (*Treatment, error) {
	dosage = strings.TrimSpace(dosage)
	if dosage == "" {
		return nil, NewValidationError("dosage is required")
	}
	if startTime == "" {
		startTime = DefaultStartTime
	}
	if startDate.IsZero() {
		startDate = now
	}

	t := &Treatment{
		ID:         primitive.NewObjectID(),
		User:       user,
		Medication: medication,
		Dosage:     dosage,
		StartDate:  startDate,
		EndDate:    endDate,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.regenerate(frequency, startTime); err != nil {
		return nil, err
	}
	return t, nil
}

// Reschedule applies a new frequency and start time. The slot list is rebuilt
// from scratch, discarding every taken flag, only when either value actually
// changes. It reports whether the slots were regenerated.
func (t *Treatment) Reschedule(frequency int, startTime string) (bool, error) {
	if frequency == t.Frequency && startTime == t.StartTime && len(t.Slots) == t.Frequency {
		return false, nil
	}
	if err := t.regenerate(frequency, startTime); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Treatment) regenerate(frequency int, startTime string) error {
	times, err := GenerateSlots(startTime, frequency)
	if err != nil {
		return err
	}

	slots := make([]Slot, len(times))
	for i, hhmm := range times {
		slots[i] = Slot{Time: hhmm}
	}

	t.Frequency = frequency
	t.StartTime = startTime
	t.IntervalHours = IntervalHours(frequency)
	t.Slots = slots
	return nil
}

// MarkTaken flags the slot whose time exactly matches timeOfDay as taken
func (t *Treatment) MarkTaken(timeOfDay string, at time.Time) error {
	for i := range t.Slots {
		if t.Slots[i].Time == timeOfDay {
			taken := at
			t.Slots[i].Taken = true
			t.Slots[i].LastTakenAt = &taken
			return nil
		}
	}
	return NewNotFoundError("no dose scheduled at %s", timeOfDay)
}

// ResetTaken clears the taken flag on every slot. LastTakenAt is kept.
func (t *Treatment) ResetTaken() {
	for i := range t.Slots {
		t.Slots[i].Taken = false
	}
}

// HasSlotAt reports whether one of the slots is scheduled at timeOfDay
func (t *Treatment) HasSlotAt(timeOfDay string) bool {
	for _, s := range t.Slots {
		if s.Time == timeOfDay {
			return true
		}
	}
	return false
}

// IsDeleted reports whether the treatment has been soft deleted
func (t *Treatment) IsDeleted() bool {
	return t.DeletedAt != nil
}

// DueAt reports whether a reminder should go out for this treatment at timeOfDay
func (t *Treatment) DueAt(timeOfDay string) bool {
	return t.Status == StatusActive && !t.IsDeleted() && t.HasSlotAt(timeOfDay)
}

// Ended reports whether the treatment has an end date strictly before now
func (t *Treatment) Ended(now time.Time) bool {
	return t.EndDate != nil && t.EndDate.Before(now)
}

// SetStatus moves the treatment to status
func (t *Treatment) SetStatus(status string) error {
	if !ValidTreatmentStatus(status) {
		return NewValidationError(fmt.Sprintf("invalid status, must be one of: %s", strings.Join(TreatmentStatuses, ", ")))
	}
	t.Status = status
	return nil
}

// TreatmentView is a treatment with its user and medication references resolved
type TreatmentView struct {
	Treatment  `bson:",inline"`
	User       *UserSummary       `json:"user,omitempty" bson:"userDoc,omitempty"`
	Medication *MedicationSummary `json:"medication,omitempty" bson:"medicationDoc,omitempty"`
}
