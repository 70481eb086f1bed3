// Package adherence holds the treatment operations shared by the http
// handlers and the background scheduler.
package adherence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

// DefaultListStatuses is what ListTreatments returns when no status is requested
var DefaultListStatuses = []string{models.StatusActive, models.StatusSuspended}

// Service runs treatment operations against the user, medication and treatment stores
type Service struct {
	Users       databases.UserDatabase
	Medications databases.MedicationDatabase
	Treatments  databases.TreatmentDatabase
	Now         func() time.Time
}

// NewService wires a Service using the wall clock
func NewService(users databases.UserDatabase, medications databases.MedicationDatabase, treatments databases.TreatmentDatabase) *Service {
	return &Service{
		Users:       users,
		Medications: medications,
		Treatments:  treatments,
		Now:         time.Now,
	}
}

// CreateTreatmentInput is what a caller supplies to start a treatment
type CreateTreatmentInput struct {
	UserID       string
	MedicationID string
	Dosage       string
	Frequency    int
	StartTime    string
	StartDate    *time.Time
	EndDate      *time.Time
}

// UpdateTreatmentInput carries the fields to change. Nil pointers are left
// alone; EndDate can be cleared by setting it with a nil Time.
type UpdateTreatmentInput struct {
	Dosage    *string
	Frequency *int
	StartTime *string
	StartDate *time.Time
	EndDate   models.OptionalTime
}

// CreateTreatment binds a user to a medication and generates the daily slots
func (s *Service) CreateTreatment(ctx context.Context, in CreateTreatmentInput) (*models.TreatmentView, error) {
	userID, err := databases.ObjectID(in.UserID)
	if err != nil {
		return nil, err
	}
	medicationID, err := databases.ObjectID(in.MedicationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.Medications.FindByID(ctx, medicationID); err != nil {
		return nil, err
	}

	now := s.Now()
	startDate := now
	if in.StartDate != nil {
		startDate = *in.StartDate
	}
	if err := checkDates(startDate, in.EndDate); err != nil {
		return nil, err
	}

	treatment, err := models.NewTreatment(userID, medicationID, in.Dosage, in.Frequency, in.StartTime, startDate, in.EndDate, now)
	if err != nil {
		return nil, err
	}
	if err := s.Treatments.Insert(ctx, treatment); err != nil {
		return nil, err
	}

	zap.S().Infow("treatment created",
		"treatment", treatment.ID.Hex(),
		"user", userID.Hex(),
		"frequency", treatment.Frequency,
		"slots", len(treatment.Slots))

	return s.Treatments.FindViewByID(ctx, treatment.ID)
}

// UpdateTreatment applies in to the treatment. Slots are regenerated only when
// the frequency or the start time actually change.
func (s *Service) UpdateTreatment(ctx context.Context, id string, in UpdateTreatmentInput) (*models.TreatmentView, error) {
	treatment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Dosage != nil {
		dosage := strings.TrimSpace(*in.Dosage)
		if dosage == "" {
			return nil, models.NewValidationError("dosage is required")
		}
		treatment.Dosage = dosage
	}

	frequency, startTime := treatment.Frequency, treatment.StartTime
	if in.Frequency != nil {
		frequency = *in.Frequency
	}
	if in.StartTime != nil && *in.StartTime != "" {
		startTime = *in.StartTime
	}
	regenerated, err := treatment.Reschedule(frequency, startTime)
	if err != nil {
		return nil, err
	}

	if in.StartDate != nil {
		treatment.StartDate = *in.StartDate
	}
	if in.EndDate.Set {
		treatment.EndDate = in.EndDate.Time
	}
	if err := checkDates(treatment.StartDate, treatment.EndDate); err != nil {
		return nil, err
	}

	if err := s.Treatments.Save(ctx, treatment); err != nil {
		return nil, err
	}
	if regenerated {
		zap.S().Infow("treatment slots regenerated",
			"treatment", treatment.ID.Hex(),
			"frequency", treatment.Frequency,
			"startTime", treatment.StartTime)
	}
	return s.Treatments.FindViewByID(ctx, treatment.ID)
}

// ChangeStatus moves a treatment to any declared status
func (s *Service) ChangeStatus(ctx context.Context, id, status string) (*models.TreatmentView, error) {
	if !models.ValidTreatmentStatus(status) {
		return nil, models.NewValidationError(fmt.Sprintf("invalid status, must be one of: %s", strings.Join(models.TreatmentStatuses, ", ")))
	}
	treatment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := treatment.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.Treatments.Save(ctx, treatment); err != nil {
		return nil, err
	}
	return s.Treatments.FindViewByID(ctx, treatment.ID)
}

// MarkTaken flags the dose scheduled at exactly timeOfDay as taken now
func (s *Service) MarkTaken(ctx context.Context, id, timeOfDay string) (*models.Treatment, error) {
	if timeOfDay == "" {
		return nil, models.NewValidationError("time is required")
	}
	treatment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := treatment.MarkTaken(timeOfDay, s.Now()); err != nil {
		return nil, err
	}
	if err := s.Treatments.Save(ctx, treatment); err != nil {
		return nil, err
	}
	return treatment, nil
}

// resetAttempts bounds how often one treatment is reloaded when a concurrent
// write beats the daily reset to it
const resetAttempts = 3

// ResetDailyDoses clears the taken flag of every slot of every active,
// non-deleted treatment, saving each one on its own. A treatment that fails to
// save does not stop the rest: the count of treatments reset is returned along
// with every failure joined into one error.
func (s *Service) ResetDailyDoses(ctx context.Context) (int, error) {
	treatments, err := s.Treatments.FindActive(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	var failures []error
	for i := range treatments {
		reset, err := s.resetTreatment(ctx, &treatments[i])
		if err != nil {
			zap.S().Warnw("failed to reset treatment", "treatment", treatments[i].ID.Hex(), "error", err)
			failures = append(failures, fmt.Errorf("failed to reset treatment %s: %w", treatments[i].ID.Hex(), err))
			continue
		}
		if reset {
			count++
		}
	}
	return count, errors.Join(failures...)
}

// resetTreatment saves treatment with its slots cleared. On a stale revision
// it reloads the treatment and tries again; false means the treatment was
// deleted or left the active status in the meantime.
func (s *Service) resetTreatment(ctx context.Context, treatment *models.Treatment) (bool, error) {
	for attempt := 1; ; attempt++ {
		treatment.ResetTaken()
		err := s.Treatments.Save(ctx, treatment)
		if err == nil {
			return true, nil
		}
		var stale *models.StaleRevisionError
		if !errors.As(err, &stale) || attempt == resetAttempts {
			return false, err
		}

		treatment, err = s.Treatments.FindByID(ctx, treatment.ID)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				return false, nil
			}
			return false, err
		}
		if treatment.Status != models.StatusActive {
			return false, nil
		}
	}
}

// ExpireEnded finishes active treatments whose end date has passed
func (s *Service) ExpireEnded(ctx context.Context) (int64, error) {
	return s.Treatments.FinishEnded(ctx, s.Now())
}

// DueAt lists the treatments a reminder would go out for at timeOfDay
func (s *Service) DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error) {
	if !models.ValidTimeOfDay(timeOfDay) {
		return nil, models.NewValidationError(fmt.Sprintf("invalid time %q (must be HH:MM)", timeOfDay))
	}
	return s.Treatments.DueAt(ctx, timeOfDay)
}

// ListTreatments returns non-deleted treatments in any of statuses, newest
// first. No statuses means active and suspended.
func (s *Service) ListTreatments(ctx context.Context, statuses []string) ([]models.TreatmentView, error) {
	if len(statuses) == 0 {
		statuses = DefaultListStatuses
	}
	for _, status := range statuses {
		if !models.ValidTreatmentStatus(status) {
			return nil, models.NewValidationError(fmt.Sprintf("invalid status %q, must be one of: %s", status, strings.Join(models.TreatmentStatuses, ", ")))
		}
	}
	return s.Treatments.ListByStatus(ctx, statuses)
}

// ListUserTreatments returns every non-deleted treatment of a user
func (s *Service) ListUserTreatments(ctx context.Context, userID string) ([]models.TreatmentView, error) {
	id, err := databases.ObjectID(userID)
	if err != nil {
		return nil, err
	}
	return s.Treatments.ListByUser(ctx, id)
}

// GetTreatment returns a non-deleted treatment with its references resolved
func (s *Service) GetTreatment(ctx context.Context, id string) (*models.TreatmentView, error) {
	oid, err := databases.ObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.Treatments.FindViewByID(ctx, oid)
}

// DeleteTreatment soft deletes a treatment, or removes it for good when hard is set
func (s *Service) DeleteTreatment(ctx context.Context, id string, hard bool) (*models.Treatment, error) {
	oid, err := databases.ObjectID(id)
	if err != nil {
		return nil, err
	}
	if hard {
		return s.Treatments.Delete(ctx, oid)
	}
	return s.Treatments.SoftDelete(ctx, oid)
}

func (s *Service) load(ctx context.Context, id string) (*models.Treatment, error) {
	oid, err := databases.ObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.Treatments.FindByID(ctx, oid)
}

func checkDates(start time.Time, end *time.Time) error {
	if end != nil && !start.IsZero() && end.Before(start) {
		return models.NewValidationError("endDate must not be before startDate")
	}
	return nil
}
