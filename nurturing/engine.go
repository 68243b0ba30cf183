package nurturing

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"leadflow/models"
)

// Mailer sends a single outbound email.
type Mailer interface {
	Send(to, subject, body string) error
}

// Store is the persistence surface the engine reads its snapshot from and
// issues its writes to.
type Store interface {
	ActiveSequences() ([]models.Sequence, error)
	Enrollments() ([]models.Enrollment, error)
	RecentLeads(limit int) ([]models.Lead, error)
	RecentAppointments(limit int) ([]models.Appointment, error)
	RecentContacts(limit int) ([]models.Contact, error)

	CreateEnrollment(enrollment *models.Enrollment) error
	SaveEnrollment(enrollment *models.Enrollment) error
	SetLeadNurturing(leadID uint, sequenceID *uint, status string) error
	IncrementSequenceCounter(sequenceID uint, counter string) error
	CreateCommunicationLog(entry *models.CommunicationLog) error
	CreateTask(task *models.Task) error
	CreateNotification(notification *models.Notification) error
	CreateRun(run *models.NurtureRun) error
}

// Sequence counter columns
const (
	CounterEnrolled  = "total_enrolled"
	CounterExited    = "total_exited"
	CounterCompleted = "total_completed"
)

// RunReport aggregates the outcome of one engine invocation
type RunReport struct {
	Processed          int       `json:"processed"`
	EmailsSent         int       `json:"emails_sent"`
	TasksCreated       int       `json:"tasks_created"`
	EnrollmentsCreated int       `json:"enrollments_created"`
	Exits              int       `json:"exits"`
	Errors             []string  `json:"errors"`
	Success            bool      `json:"success"`
	Timestamp          time.Time `json:"timestamp"`
}

// Engine runs the nurturing automation over a snapshot of the CRM data.
// It enrolls newly eligible leads into active sequences and advances every
// active enrollment through its due step, honoring exit conditions.
type Engine struct {
	Store     Store
	Mailer    Mailer
	Logger    *log.Logger
	ScanLimit int

	now func() time.Time
}

func NewEngine(store Store, mailer Mailer, logger *log.Logger, scanLimit int) *Engine {
	return &Engine{
		Store:     store,
		Mailer:    mailer,
		Logger:    logger,
		ScanLimit: scanLimit,
		now:       time.Now,
	}
}

type enrollKey struct {
	leadID     uint
	sequenceID uint
}

// snapshot holds everything the run reads, loaded once at run start.
// Writes during the run update the snapshot in place so decisions within
// the same run observe each other.
type snapshot struct {
	sequences    []models.Sequence
	enrollments  []models.Enrollment
	leads        []models.Lead
	leadByID     map[uint]*models.Lead
	sequenceByID map[uint]*models.Sequence
	enrolledKeys map[enrollKey]struct{}
	converted    map[uint]struct{}
	appointments map[uint][]time.Time
}

func (s *snapshot) hasUpcomingAppointment(leadID uint, now time.Time) bool {
	for _, at := range s.appointments[leadID] {
		if at.After(now) {
			return true
		}
	}
	return false
}

// Run executes one full nurturing cycle: trigger evaluation and enrollment
// over every active sequence, then exit evaluation and step execution over
// every active enrollment. Per-item failures are collected in the report;
// only a failed snapshot load aborts the run.
func (e *Engine) Run(ctx context.Context) *RunReport {
	now := e.now()
	report := &RunReport{Success: true, Timestamp: now, Errors: []string{}}

	snap, err := e.loadSnapshot()
	if err != nil {
		e.Logger.Printf("Nurture run aborted: %v", err)
		report.Success = false
		report.Errors = append(report.Errors, fmt.Sprintf("loading data: %v", err))
		return report
	}

	// Phase 1: enroll newly eligible leads
	for i := range snap.sequences {
		seq := &snap.sequences[i]
		if seq.TriggerType == models.TriggerManual {
			continue
		}
		for _, lead := range eligibleLeads(seq, snap, now) {
			if err := e.enroll(seq, lead, snap, now); err != nil {
				report.Errors = append(report.Errors,
					fmt.Sprintf("enrolling lead %d in sequence %d: %v", lead.ID, seq.ID, err))
				continue
			}
			report.EnrollmentsCreated++
		}
	}

	// Phase 2: advance active enrollments
	for i := range snap.enrollments {
		enrollment := &snap.enrollments[i]
		if enrollment.Status != models.NurturingActive {
			continue
		}
		if err := e.processEnrollment(enrollment, snap, now, report); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("processing enrollment %d: %v", enrollment.ID, err))
			continue
		}
		report.Processed++
	}

	e.recordRun(report)
	return report
}

func (e *Engine) loadSnapshot() (*snapshot, error) {
	sequences, err := e.Store.ActiveSequences()
	if err != nil {
		return nil, fmt.Errorf("loading sequences: %w", err)
	}
	enrollments, err := e.Store.Enrollments()
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	leads, err := e.Store.RecentLeads(e.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("loading leads: %w", err)
	}
	appointments, err := e.Store.RecentAppointments(e.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("loading appointments: %w", err)
	}
	contacts, err := e.Store.RecentContacts(e.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}

	snap := &snapshot{
		sequences:    sequences,
		enrollments:  enrollments,
		leads:        leads,
		leadByID:     make(map[uint]*models.Lead, len(leads)),
		sequenceByID: make(map[uint]*models.Sequence, len(sequences)),
		enrolledKeys: make(map[enrollKey]struct{}, len(enrollments)),
		converted:    make(map[uint]struct{}),
		appointments: make(map[uint][]time.Time),
	}
	for i := range snap.leads {
		snap.leadByID[snap.leads[i].ID] = &snap.leads[i]
	}
	for i := range snap.sequences {
		snap.sequenceByID[snap.sequences[i].ID] = &snap.sequences[i]
	}
	for _, enrollment := range enrollments {
		snap.enrolledKeys[enrollKey{enrollment.LeadID, enrollment.SequenceID}] = struct{}{}
	}
	for _, contact := range contacts {
		for _, leadID := range contact.LinkedOpportunityIDs {
			snap.converted[leadID] = struct{}{}
		}
	}
	for _, appointment := range appointments {
		snap.appointments[appointment.LeadID] = append(
			snap.appointments[appointment.LeadID], appointment.AppointmentAt)
	}
	return snap, nil
}

// processEnrollment evaluates exits first, then runs the due step if the
// enrollment survived.
func (e *Engine) processEnrollment(enrollment *models.Enrollment, snap *snapshot, now time.Time, report *RunReport) error {
	sequence, ok := snap.sequenceByID[enrollment.SequenceID]
	if !ok {
		return fmt.Errorf("sequence %d not found or inactive", enrollment.SequenceID)
	}
	lead, ok := snap.leadByID[enrollment.LeadID]
	if !ok {
		return fmt.Errorf("lead %d not found", enrollment.LeadID)
	}

	if reason, exited := evaluateExits(sequence, enrollment, lead, snap, now); exited {
		if err := e.exitEnrollment(sequence, enrollment, lead, reason, now); err != nil {
			return err
		}
		report.Exits++
		return nil
	}

	return e.runDueStep(sequence, enrollment, lead, now, report)
}

// recordRun persists the report for the stats endpoint; best effort.
func (e *Engine) recordRun(report *RunReport) {
	run := &models.NurtureRun{
		Processed:          report.Processed,
		EmailsSent:         report.EmailsSent,
		TasksCreated:       report.TasksCreated,
		EnrollmentsCreated: report.EnrollmentsCreated,
		Exits:              report.Exits,
		Success:            report.Success,
		RanAt:              report.Timestamp,
	}
	if len(report.Errors) > 0 {
		run.Errors = strings.Join(report.Errors, "; ")
	}
	if err := e.Store.CreateRun(run); err != nil {
		e.Logger.Printf("Failed to record nurture run: %v", err)
	}
}
