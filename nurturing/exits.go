package nurturing

import (
	"time"

	"leadflow/models"
)

// Exit reasons recorded on the enrollment
const (
	ExitReplied       = "replied"
	ExitStatusChanged = "status_changed"
	ExitConverted     = "converted"
	ExitAppointment   = "appointment"
	ExitMaxDays       = "max_days"
)

// Statuses that count as the lead having replied
var repliedStatuses = []string{"contacted", "visit_scheduled", "proposal", "negotiation", "won"}

// evaluateExits checks every configured exit condition in a fixed order.
// Conditions are evaluated independently; when several match, the last
// matching one in the order below wins as the recorded reason.
func evaluateExits(sequence *models.Sequence, enrollment *models.Enrollment, lead *models.Lead, snap *snapshot, now time.Time) (string, bool) {
	conditions := sequence.ExitConditions
	reason := ""
	matched := false

	if conditions.OnReply && listMatches(repliedStatuses, lead.Status) && lead.Status != "new" {
		reason, matched = ExitReplied, true
	}
	if len(conditions.OnStatusChange) > 0 && listMatches(conditions.OnStatusChange, lead.Status) {
		reason, matched = ExitStatusChanged, true
	}
	if conditions.OnConversion {
		if _, converted := snap.converted[lead.ID]; converted {
			reason, matched = ExitConverted, true
		}
	}
	if conditions.OnAppointment && snap.hasUpcomingAppointment(lead.ID, now) {
		reason, matched = ExitAppointment, true
	}
	if conditions.MaxDays > 0 && now.Sub(enrollment.EnrolledAt) > time.Duration(conditions.MaxDays)*24*time.Hour {
		reason, matched = ExitMaxDays, true
	}

	return reason, matched
}

// exitEnrollment terminates the enrollment early. No step runs for it
// in this cycle.
func (e *Engine) exitEnrollment(sequence *models.Sequence, enrollment *models.Enrollment, lead *models.Lead, reason string, now time.Time) error {
	enrollment.Status = models.NurturingExited
	enrollment.ExitReason = reason
	enrollment.CompletedAt = &now

	if err := e.Store.SaveEnrollment(enrollment); err != nil {
		return err
	}
	if err := e.Store.SetLeadNurturing(lead.ID, lead.NurturingSequenceID, models.NurturingExited); err != nil {
		return err
	}
	if err := e.Store.IncrementSequenceCounter(sequence.ID, CounterExited); err != nil {
		return err
	}

	lead.NurturingStatus = models.NurturingExited
	e.Logger.Printf("Enrollment %d exited sequence %q: %s", enrollment.ID, sequence.Name, reason)
	return nil
}
