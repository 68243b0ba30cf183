package nurturing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"leadflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent    []sentEmail
	sendErr error
}

func (fm *fakeMailer) Send(to, subject, body string) error {
	if fm.sendErr != nil {
		return fm.sendErr
	}
	fm.sent = append(fm.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// fakeStore keeps everything in memory and doubles as the database between
// consecutive runs.
type fakeStore struct {
	sequences    []models.Sequence
	enrollments  []models.Enrollment
	leads        []models.Lead
	appointments []models.Appointment
	contacts     []models.Contact

	logs          []models.CommunicationLog
	tasks         []models.Task
	notifications []models.Notification
	runs          []models.NurtureRun

	counters    map[uint]map[string]int
	leadUpdates map[uint]string

	nextID uint

	loadErr          error
	createEnrollErr  error
	createTaskErr    error
	createNotifErr   error
	failEnrollLeadID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters:    make(map[uint]map[string]int),
		leadUpdates: make(map[uint]string),
		nextID:      100,
	}
}

func (fs *fakeStore) ActiveSequences() ([]models.Sequence, error) {
	if fs.loadErr != nil {
		return nil, fs.loadErr
	}
	var active []models.Sequence
	for _, sequence := range fs.sequences {
		if sequence.IsActive {
			active = append(active, sequence)
		}
	}
	return active, nil
}

func (fs *fakeStore) Enrollments() ([]models.Enrollment, error) {
	out := make([]models.Enrollment, len(fs.enrollments))
	copy(out, fs.enrollments)
	return out, nil
}

func (fs *fakeStore) RecentLeads(int) ([]models.Lead, error) {
	out := make([]models.Lead, len(fs.leads))
	copy(out, fs.leads)
	return out, nil
}

func (fs *fakeStore) RecentAppointments(int) ([]models.Appointment, error) {
	return fs.appointments, nil
}

func (fs *fakeStore) RecentContacts(int) ([]models.Contact, error) {
	return fs.contacts, nil
}

func (fs *fakeStore) CreateEnrollment(enrollment *models.Enrollment) error {
	if fs.createEnrollErr != nil && (fs.failEnrollLeadID == 0 || fs.failEnrollLeadID == enrollment.LeadID) {
		return fs.createEnrollErr
	}
	fs.nextID++
	enrollment.ID = fs.nextID
	fs.enrollments = append(fs.enrollments, *enrollment)
	return nil
}

func (fs *fakeStore) SaveEnrollment(enrollment *models.Enrollment) error {
	for i := range fs.enrollments {
		if fs.enrollments[i].ID == enrollment.ID {
			fs.enrollments[i] = *enrollment
			return nil
		}
	}
	fs.enrollments = append(fs.enrollments, *enrollment)
	return nil
}

func (fs *fakeStore) SetLeadNurturing(leadID uint, sequenceID *uint, status string) error {
	fs.leadUpdates[leadID] = status
	for i := range fs.leads {
		if fs.leads[i].ID == leadID {
			fs.leads[i].NurturingSequenceID = sequenceID
			fs.leads[i].NurturingStatus = status
		}
	}
	return nil
}

func (fs *fakeStore) IncrementSequenceCounter(sequenceID uint, counter string) error {
	if fs.counters[sequenceID] == nil {
		fs.counters[sequenceID] = make(map[string]int)
	}
	fs.counters[sequenceID][counter]++
	return nil
}

func (fs *fakeStore) CreateCommunicationLog(entry *models.CommunicationLog) error {
	fs.logs = append(fs.logs, *entry)
	return nil
}

func (fs *fakeStore) CreateTask(task *models.Task) error {
	if fs.createTaskErr != nil {
		return fs.createTaskErr
	}
	fs.tasks = append(fs.tasks, *task)
	return nil
}

func (fs *fakeStore) CreateNotification(notification *models.Notification) error {
	if fs.createNotifErr != nil {
		return fs.createNotifErr
	}
	fs.notifications = append(fs.notifications, *notification)
	return nil
}

func (fs *fakeStore) CreateRun(run *models.NurtureRun) error {
	fs.runs = append(fs.runs, *run)
	return nil
}

func newTestEngine(store *fakeStore, mailer *fakeMailer) *Engine {
	engine := NewEngine(store, mailer, log.New(io.Discard, "", 0), 500)
	engine.now = func() time.Time { return testNow }
	return engine
}

func newLead(id uint, status string, createdAgo time.Duration) models.Lead {
	return models.Lead{
		Model: gorm.Model{
			ID:        id,
			CreatedAt: testNow.Add(-createdAgo),
			UpdatedAt: testNow.Add(-createdAgo),
		},
		Status:     status,
		BuyerName:  fmt.Sprintf("Lead %d", id),
		BuyerEmail: fmt.Sprintf("lead%d@example.com", id),
	}
}

func emailSequence(id uint, triggerType string) models.Sequence {
	return models.Sequence{
		Model:       gorm.Model{ID: id},
		Name:        fmt.Sprintf("Sequence %d", id),
		IsActive:    true,
		TriggerType: triggerType,
		Steps: []models.SequenceStep{
			{
				StepNumber:   1,
				DelayDays:    0,
				DelayHours:   1,
				IsActive:     true,
				ActionType:   models.ActionEmail,
				EmailSubject: "Olá {{nome}}",
				EmailBody:    "Novidades em {{localizacao}}",
			},
		},
	}
}

func TestRunEnrollsEligibleLeads(t *testing.T) {
	store := newFakeStore()
	store.sequences = []models.Sequence{emailSequence(1, models.TriggerNewLead)}
	store.leads = []models.Lead{newLead(10, "new", 2*time.Hour)}

	engine := newTestEngine(store, &fakeMailer{})
	report := engine.Run(context.Background())

	require.True(t, report.Success)
	assert.Equal(t, 1, report.EnrollmentsCreated)
	require.Len(t, store.enrollments, 1)

	enrollment := store.enrollments[0]
	assert.Equal(t, uint(10), enrollment.LeadID)
	assert.Equal(t, uint(1), enrollment.SequenceID)
	assert.Equal(t, "Sequence 1", enrollment.SequenceName)
	assert.Equal(t, models.NurturingActive, enrollment.Status)
	assert.Equal(t, "auto", enrollment.EnrolledBy)
	assert.Equal(t, 0, enrollment.CurrentStep)
	require.NotNil(t, enrollment.NextActionAt)
	assert.Equal(t, testNow.Add(time.Hour), *enrollment.NextActionAt)

	assert.Equal(t, models.NurturingActive, store.leadUpdates[10])
	assert.Equal(t, 1, store.counters[1][CounterEnrolled])
}

func TestRunTwiceCreatesSingleEnrollment(t *testing.T) {
	store := newFakeStore()
	store.sequences = []models.Sequence{emailSequence(1, models.TriggerNewLead)}
	store.leads = []models.Lead{newLead(10, "new", 2*time.Hour)}

	engine := newTestEngine(store, &fakeMailer{})
	first := engine.Run(context.Background())
	second := engine.Run(context.Background())

	assert.Equal(t, 1, first.EnrollmentsCreated)
	assert.Equal(t, 0, second.EnrollmentsCreated)
	assert.Len(t, store.enrollments, 1)
	assert.Equal(t, 1, store.counters[1][CounterEnrolled])
}

func TestSingleRunNeverDoubleNurturesLead(t *testing.T) {
	// Two sequences both matching the same lead inside one run: the lead
	// lands in the first and the second observes the in-memory update.
	store := newFakeStore()
	store.sequences = []models.Sequence{
		emailSequence(1, models.TriggerNewLead),
		emailSequence(2, models.TriggerNewLead),
	}
	store.leads = []models.Lead{newLead(10, "new", 2*time.Hour)}

	engine := newTestEngine(store, &fakeMailer{})
	report := engine.Run(context.Background())

	assert.Equal(t, 1, report.EnrollmentsCreated)
	require.Len(t, store.enrollments, 1)
	assert.Equal(t, uint(1), store.enrollments[0].SequenceID)
}

func TestRunAbortsWhenSnapshotLoadFails(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("connection refused")

	engine := newTestEngine(store, &fakeMailer{})
	report := engine.Run(context.Background())

	assert.False(t, report.Success)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "connection refused")
	assert.Zero(t, report.Processed)
}

func TestEnrollFailureDoesNotAbortOtherLeads(t *testing.T) {
	store := newFakeStore()
	store.sequences = []models.Sequence{emailSequence(1, models.TriggerNewLead)}
	store.leads = []models.Lead{
		newLead(10, "new", 2*time.Hour),
		newLead(11, "new", 3*time.Hour),
	}
	store.createEnrollErr = errors.New("insert failed")
	store.failEnrollLeadID = 10

	engine := newTestEngine(store, &fakeMailer{})
	report := engine.Run(context.Background())

	assert.Equal(t, 1, report.EnrollmentsCreated)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "lead 10")
	require.Len(t, store.enrollments, 1)
	assert.Equal(t, uint(11), store.enrollments[0].LeadID)
}

func TestStepAdvancesExactlyOncePerRun(t *testing.T) {
	sequence := models.Sequence{
		Model:       gorm.Model{ID: 1},
		Name:        "Drip",
		IsActive:    true,
		TriggerType: models.TriggerManual,
		Steps: []models.SequenceStep{
			{StepNumber: 1, IsActive: true, ActionType: models.ActionEmail, EmailSubject: "a", EmailBody: "b"},
			{StepNumber: 2, IsActive: true, ActionType: models.ActionEmail, EmailSubject: "a", EmailBody: "b"},
			{StepNumber: 3, IsActive: true, ActionType: models.ActionEmail, EmailSubject: "a", EmailBody: "b"},
		},
	}
	store := newFakeStore()
	store.sequences = []models.Sequence{sequence}
	store.leads = []models.Lead{newLead(10, "new", 48*time.Hour)}
	store.enrollments = []models.Enrollment{{
		Model:        gorm.Model{ID: 50},
		LeadID:       10,
		SequenceID:   1,
		Status:       models.NurturingActive,
		EnrolledAt:   testNow.Add(-time.Hour),
		NextActionAt: &testNow,
	}}

	engine := newTestEngine(store, &fakeMailer{})

	for expected := 1; expected <= 3; expected++ {
		report := engine.Run(context.Background())
		require.Empty(t, report.Errors)
		assert.Equal(t, expected, store.enrollments[0].CurrentStep, "after run %d", expected)
	}

	// All steps done; one more run completes the enrollment.
	engine.Run(context.Background())
	assert.Equal(t, models.NurturingCompleted, store.enrollments[0].Status)
	assert.Equal(t, 3, store.enrollments[0].CurrentStep)
}

func TestRunRecordsHistoryRow(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, &fakeMailer{})

	engine.Run(context.Background())

	require.Len(t, store.runs, 1)
	assert.True(t, store.runs[0].Success)
	assert.Equal(t, testNow, store.runs[0].RanAt)
}
