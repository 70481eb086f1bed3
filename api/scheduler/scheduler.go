package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/messaging"
	"github.com/pillapp/pillapp-api/models"
)

const (
	dateLayout      = "2006-01-02"
	maintenanceTime = 5 * time.Minute
)

// Planner is the part of the adherence service the background jobs drive
type Planner interface {
	DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error)
	ResetDailyDoses(ctx context.Context) (int, error)
	ExpireEnded(ctx context.Context) (int64, error)
}

// Publisher receives every reminder that was sent
type Publisher interface {
	Publish(event models.ReminderEvent)
}

// DispatchReport summarizes one reminder tick
type DispatchReport struct {
	TimeOfDay  string `json:"time"`
	Matched    int    `json:"matched"`
	Sent       int    `json:"sent"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Duplicates int    `json:"duplicates"`
}

// Tick is the outcome of the most recent reminder run
type Tick struct {
	Report DispatchReport `json:"report"`
	RanAt  time.Time      `json:"ranAt"`
	Error  string         `json:"error,omitempty"`
}

// Scheduler runs the reminder poller, the daily dose reset and the end date
// expiry as cron jobs. A job whose previous run has not finished is skipped.
type Scheduler struct {
	cron       *cron.Cron
	Planner    Planner
	Sender     messaging.Sender
	Dispatches databases.DispatchDatabase
	Publisher  Publisher

	location     *time.Location
	reminderSpec string
	resetSpec    string
	expirySpec   string
	pollTimeout  time.Duration
	now          func() time.Time

	mu       sync.Mutex
	lastTick *Tick
}

// NewScheduler creates a new scheduler instance. dispatches may be nil, and is
// ignored when reminder deduplication is disabled in conf.
func NewScheduler(conf *config.Config, planner Planner, sender messaging.Sender, dispatches databases.DispatchDatabase, publisher Publisher) *Scheduler {
	loc := conf.Location
	if loc == nil {
		loc = time.Local
	}
	if !conf.Dedupe {
		dispatches = nil
	}

	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Planner:      planner,
		Sender:       sender,
		Dispatches:   dispatches,
		Publisher:    publisher,
		location:     loc,
		reminderSpec: conf.ReminderCron,
		resetSpec:    conf.ResetCron,
		expirySpec:   conf.ExpiryCron,
		pollTimeout:  conf.PollTimeout,
		now:          time.Now,
	}
}

// Start registers every job and starts the cron loop. An invalid cron spec
// is returned as an error and nothing is started.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{name: "reminders", spec: s.reminderSpec, run: s.runReminders},
		{name: "daily reset", spec: s.resetSpec, run: s.runReset},
		{name: "expiry", spec: s.expirySpec, run: s.runExpiry},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("failed to register %s job %q: %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	zap.S().Infow("scheduler started",
		"reminders", s.reminderSpec,
		"reset", s.resetSpec,
		"expiry", s.expirySpec,
		"location", s.location.String(),
		"dedupe", s.Dispatches != nil)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

func (s *Scheduler) runReminders() {
	timeout := s.pollTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := s.DispatchReminders(ctx)
	s.recordTick(report, err)
	if err != nil {
		zap.S().Errorw("reminder tick aborted", "time", report.TimeOfDay, "error", err)
		return
	}
	if report.Matched > 0 {
		zap.S().Infow("reminder tick finished",
			"time", report.TimeOfDay,
			"matched", report.Matched,
			"sent", report.Sent,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"duplicates", report.Duplicates)
	}
}

func (s *Scheduler) recordTick(report DispatchReport, err error) {
	tick := &Tick{Report: report, RanAt: s.now()}
	if err != nil {
		tick.Error = err.Error()
	}
	s.mu.Lock()
	s.lastTick = tick
	s.mu.Unlock()
}

// LastTick returns the most recent reminder run, false before the first one
func (s *Scheduler) LastTick() (Tick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTick == nil {
		return Tick{}, false
	}
	return *s.lastTick, true
}

func (s *Scheduler) runReset() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTime)
	defer cancel()

	count, err := s.Planner.ResetDailyDoses(ctx)
	if err != nil {
		zap.S().Errorw("daily dose reset finished with failures", "reset", count, "error", err)
		return
	}
	zap.S().Infow("daily doses reset", "treatments", count)
}

func (s *Scheduler) runExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTime)
	defer cancel()

	count, err := s.Planner.ExpireEnded(ctx)
	if err != nil {
		zap.S().Errorw("treatment expiry failed", "error", err)
		return
	}
	if count > 0 {
		zap.S().Infow("ended treatments finished", "treatments", count)
	}
}

// DispatchReminders sends a reminder for every active treatment with a slot
// at the current minute. Nothing is queried when the sender is not
// configured. A failed query aborts the tick; a failed send is logged and
// the remaining treatments are still processed.
func (s *Scheduler) DispatchReminders(ctx context.Context) (DispatchReport, error) {
	now := s.now().In(s.location)
	report := DispatchReport{TimeOfDay: models.FormatTimeOfDay(now)}

	if !s.Sender.IsConfigured() {
		return report, nil
	}

	views, err := s.Planner.DueAt(ctx, report.TimeOfDay)
	if err != nil {
		return report, fmt.Errorf("failed to find due treatments: %w", err)
	}
	report.Matched = len(views)

	for i := range views {
		s.remind(ctx, now, report.TimeOfDay, &views[i], &report)
	}
	return report, nil
}

func (s *Scheduler) remind(ctx context.Context, now time.Time, timeOfDay string, view *models.TreatmentView, report *DispatchReport) {
	if view.User == nil || view.Medication == nil {
		zap.S().Warnw("treatment references are missing, skipping reminder",
			"treatment", view.ID.Hex(),
			"userFound", view.User != nil,
			"medicationFound", view.Medication != nil)
		report.Skipped++
		return
	}

	to, ok := s.Sender.Recipient(*view.User)
	if !ok {
		zap.S().Infow("user cannot be reached on channel, skipping reminder",
			"user", view.User.Name,
			"email", view.User.Email,
			"channel", s.Sender.Channel())
		report.Skipped++
		return
	}

	var claim *models.ReminderDispatch
	if s.Dispatches != nil {
		claim = &models.ReminderDispatch{
			Treatment: view.ID,
			Slot:      timeOfDay,
			Date:      now.Format(dateLayout),
			Channel:   s.Sender.Channel(),
			CreatedAt: now,
		}
		claimed, err := s.Dispatches.Claim(ctx, claim)
		switch {
		case err != nil:
			zap.S().Warnw("failed to record reminder claim, sending anyway", "treatment", view.ID.Hex(), "error", err)
			claim = nil
		case !claimed:
			report.Duplicates++
			return
		}
	}

	if err := s.Sender.SendReminder(ctx, to, view.Medication.Name, view.Dosage, timeOfDay); err != nil {
		zap.S().Errorw("failed to send reminder",
			"user", view.User.Name,
			"treatment", view.ID.Hex(),
			"error", err)
		report.Failed++
		if claim != nil {
			if err := s.Dispatches.Release(ctx, claim.ID); err != nil {
				zap.S().Warnw("failed to release reminder claim", "treatment", view.ID.Hex(), "error", err)
			}
		}
		return
	}

	report.Sent++
	zap.S().Infow("reminder sent",
		"user", view.User.Name,
		"medication", view.Medication.Name,
		"time", timeOfDay)

	if s.Publisher != nil {
		s.Publisher.Publish(models.ReminderEvent{
			TreatmentID: view.ID,
			UserID:      view.User.ID,
			UserName:    view.User.Name,
			Medication:  view.Medication.Name,
			Dosage:      view.Dosage,
			TimeOfDay:   timeOfDay,
			Channel:     s.Sender.Channel(),
			SentAt:      now,
		})
	}
}

// cronLogger routes cron's own logging to zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.S().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.S().Errorw(msg, append(keysAndValues, "error", err)...)
}
