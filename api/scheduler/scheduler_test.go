package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pillapp/pillapp-api/config"
	dbmocks "github.com/pillapp/pillapp-api/databases/mocks"
	"github.com/pillapp/pillapp-api/messaging/mocks"
	"github.com/pillapp/pillapp-api/models"
)

type plannerMock struct {
	mock.Mock
}

func (p *plannerMock) DueAt(ctx context.Context, timeOfDay string) ([]models.TreatmentView, error) {
	ret := p.Called(ctx, timeOfDay)
	var views []models.TreatmentView
	if ret.Get(0) != nil {
		views = ret.Get(0).([]models.TreatmentView)
	}
	return views, ret.Error(1)
}

func (p *plannerMock) ResetDailyDoses(ctx context.Context) (int, error) {
	ret := p.Called(ctx)
	return ret.Int(0), ret.Error(1)
}

func (p *plannerMock) ExpireEnded(ctx context.Context) (int64, error) {
	ret := p.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

type recorder struct {
	events []models.ReminderEvent
}

func (r *recorder) Publish(event models.ReminderEvent) {
	r.events = append(r.events, event)
}

var tick = time.Date(2024, 3, 10, 8, 0, 30, 0, time.UTC)

func testConfig(dedupe bool) *config.Config {
	return &config.Config{
		Location:     time.UTC,
		ReminderCron: "* * * * *",
		ResetCron:    "0 0 * * *",
		ExpiryCron:   "5 0 * * *",
		Dedupe:       dedupe,
		PollTimeout:  time.Second,
	}
}

func view(name, phone, medication string) models.TreatmentView {
	return models.TreatmentView{
		Treatment:  models.Treatment{ID: primitive.NewObjectID(), Dosage: "1 pill", Status: models.StatusActive},
		User:       &models.UserSummary{ID: primitive.NewObjectID(), Name: name, Phone: phone},
		Medication: &models.MedicationSummary{ID: primitive.NewObjectID(), Name: medication},
	}
}

func newTestScheduler(t *testing.T, dedupe bool) (*Scheduler, *plannerMock, *mocks.Sender, *dbmocks.DispatchDatabase, *recorder) {
	planner := &plannerMock{}
	sender := mocks.NewSender(t)
	dispatches := dbmocks.NewDispatchDatabase(t)
	pub := &recorder{}

	s := NewScheduler(testConfig(dedupe), planner, sender, dispatches, pub)
	s.now = func() time.Time { return tick }
	return s, planner, sender, dispatches, pub
}

func TestDispatchRemindersNotConfiguredSkipsQuery(t *testing.T) {
	s, planner, sender, _, _ := newTestScheduler(t, true)
	sender.On("IsConfigured").Return(false)

	report, err := s.DispatchReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "08:00", report.TimeOfDay)
	assert.Zero(t, report.Matched)
	planner.AssertNotCalled(t, "DueAt", mock.Anything, mock.Anything)
}

func TestDispatchRemindersQueryFailureAborts(t *testing.T) {
	s, planner, sender, _, _ := newTestScheduler(t, true)
	sender.On("IsConfigured").Return(true)
	planner.On("DueAt", mock.Anything, "08:00").Return(nil, errors.New("no reachable servers"))

	_, err := s.DispatchReminders(context.Background())

	assert.EqualError(t, err, "failed to find due treatments: no reachable servers")
	sender.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchRemindersSendsAndSkips(t *testing.T) {
	s, planner, sender, dispatches, pub := newTestScheduler(t, true)

	withPhone := view("Ana", "+5491112345678", "Ibuprofen")
	withoutPhone := view("Beto", "", "Paracetamol")

	sender.On("IsConfigured").Return(true)
	sender.On("Channel").Return(config.ChannelWhatsApp)
	sender.On("Recipient", *withPhone.User).Return("+5491112345678", true)
	sender.On("Recipient", *withoutPhone.User).Return("", false)
	sender.On("SendReminder", mock.Anything, "+5491112345678", "Ibuprofen", "1 pill", "08:00").Return(nil)
	planner.On("DueAt", mock.Anything, "08:00").Return([]models.TreatmentView{withPhone, withoutPhone}, nil)
	dispatches.On("Claim", mock.Anything, mock.MatchedBy(func(d *models.ReminderDispatch) bool {
		return d.Treatment == withPhone.ID && d.Slot == "08:00" && d.Date == "2024-03-10"
	})).Return(true, nil)

	report, err := s.DispatchReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DispatchReport{TimeOfDay: "08:00", Matched: 2, Sent: 1, Skipped: 1}, report)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "Ana", pub.events[0].UserName)
	assert.Equal(t, "Ibuprofen", pub.events[0].Medication)
	assert.Equal(t, withPhone.ID, pub.events[0].TreatmentID)
}

func TestDispatchRemindersSendFailureContinues(t *testing.T) {
	s, planner, sender, dispatches, pub := newTestScheduler(t, true)

	first := view("Ana", "+5491100000001", "Ibuprofen")
	second := view("Beto", "+5491100000002", "Paracetamol")

	sender.On("IsConfigured").Return(true)
	sender.On("Channel").Return(config.ChannelWhatsApp)
	sender.On("Recipient", *first.User).Return("+5491100000001", true)
	sender.On("Recipient", *second.User).Return("+5491100000002", true)
	sender.On("SendReminder", mock.Anything, "+5491100000001", mock.Anything, mock.Anything, "08:00").Return(errors.New("rate limited"))
	sender.On("SendReminder", mock.Anything, "+5491100000002", mock.Anything, mock.Anything, "08:00").Return(nil)
	planner.On("DueAt", mock.Anything, "08:00").Return([]models.TreatmentView{first, second}, nil)
	dispatches.On("Claim", mock.Anything, mock.AnythingOfType("*models.ReminderDispatch")).
		Return(true, nil).
		Run(func(args mock.Arguments) {
			d := args.Get(1).(*models.ReminderDispatch)
			d.ID = primitive.NewObjectID()
		})
	dispatches.On("Release", mock.Anything, mock.AnythingOfType("primitive.ObjectID")).Return(nil).Once()

	report, err := s.DispatchReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "Beto", pub.events[0].UserName)
}

func TestDispatchRemindersDuplicateClaimIsNotResent(t *testing.T) {
	s, planner, sender, dispatches, pub := newTestScheduler(t, true)

	due := view("Ana", "+5491112345678", "Ibuprofen")

	sender.On("IsConfigured").Return(true)
	sender.On("Channel").Return(config.ChannelWhatsApp)
	sender.On("Recipient", *due.User).Return("+5491112345678", true)
	planner.On("DueAt", mock.Anything, "08:00").Return([]models.TreatmentView{due}, nil)
	dispatches.On("Claim", mock.Anything, mock.Anything).Return(false, nil)

	report, err := s.DispatchReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Duplicates)
	assert.Zero(t, report.Sent)
	assert.Empty(t, pub.events)
	sender.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchRemindersWithoutDedupe(t *testing.T) {
	s, planner, sender, dispatches, _ := newTestScheduler(t, false)
	assert.Nil(t, s.Dispatches)

	due := view("Ana", "+5491112345678", "Ibuprofen")

	sender.On("IsConfigured").Return(true)
	sender.On("Channel").Return(config.ChannelWhatsApp)
	sender.On("Recipient", *due.User).Return("+5491112345678", true)
	sender.On("SendReminder", mock.Anything, "+5491112345678", "Ibuprofen", "1 pill", "08:00").Return(nil).Twice()
	planner.On("DueAt", mock.Anything, "08:00").Return([]models.TreatmentView{due}, nil)

	for i := 0; i < 2; i++ {
		report, err := s.DispatchReminders(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	}
	dispatches.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
}

func TestDispatchRemindersUsesLocation(t *testing.T) {
	s, planner, sender, _, _ := newTestScheduler(t, true)
	loc := time.FixedZone("ART", -3*60*60)
	s.location = loc

	sender.On("IsConfigured").Return(true)
	planner.On("DueAt", mock.Anything, "05:00").Return([]models.TreatmentView{}, nil)

	report, err := s.DispatchReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "05:00", report.TimeOfDay)
}

func TestRunReset(t *testing.T) {
	s, planner, _, _, _ := newTestScheduler(t, true)
	planner.On("ResetDailyDoses", mock.Anything).Return(3, nil).Once()

	s.runReset()

	planner.AssertExpectations(t)
}

func TestRunExpiry(t *testing.T) {
	s, planner, _, _, _ := newTestScheduler(t, true)
	planner.On("ExpireEnded", mock.Anything).Return(int64(1), nil).Once()

	s.runExpiry()

	planner.AssertExpectations(t)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	conf := testConfig(true)
	conf.ResetCron = "every midnight"

	s := NewScheduler(conf, &plannerMock{}, mocks.NewSender(t), nil, nil)

	err := s.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "daily reset")
}

func TestStartStop(t *testing.T) {
	sender := mocks.NewSender(t)
	sender.On("IsConfigured").Return(false).Maybe()
	s := NewScheduler(testConfig(true), &plannerMock{}, sender, nil, nil)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 3)
	s.Stop()
}

func TestRunRemindersRecordsLastTick(t *testing.T) {
	s, planner, sender, _, _ := newTestScheduler(t, true)

	_, ok := s.LastTick()
	assert.False(t, ok)

	sender.On("IsConfigured").Return(true)
	planner.On("DueAt", mock.Anything, "08:00").Return(nil, errors.New("no reachable servers")).Once()
	s.runReminders()

	last, ok := s.LastTick()
	require.True(t, ok)
	assert.Equal(t, tick, last.RanAt)
	assert.Equal(t, "08:00", last.Report.TimeOfDay)
	assert.Equal(t, "failed to find due treatments: no reachable servers", last.Error)

	planner.On("DueAt", mock.Anything, "08:00").Return([]models.TreatmentView{}, nil).Once()
	s.runReminders()

	last, ok = s.LastTick()
	require.True(t, ok)
	assert.Empty(t, last.Error)
}
