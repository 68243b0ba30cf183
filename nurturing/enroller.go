package nurturing

import (
	"time"

	"leadflow/models"
)

// enroll creates the enrollment for an eligible lead, marks the lead as
// nurturing and schedules the first step. The dedup key and the lead's
// nurturing status are updated on the snapshot immediately so a later
// sequence in the same run cannot double-enroll the lead.
func (e *Engine) enroll(sequence *models.Sequence, lead *models.Lead, snap *snapshot, now time.Time) error {
	firstAction := now
	if len(sequence.Steps) > 0 {
		firstAction = now.Add(stepDelay(sequence.Steps[0]))
	}

	enrollment := &models.Enrollment{
		LeadID:         lead.ID,
		ContactID:      lead.ContactID,
		SequenceID:     sequence.ID,
		SequenceName:   sequence.Name,
		CurrentStep:    0,
		Status:         models.NurturingActive,
		EnrolledAt:     now,
		EnrolledBy:     "auto",
		NextActionAt:   &firstAction,
		CompletedSteps: []models.CompletedStep{},
	}

	if err := e.Store.CreateEnrollment(enrollment); err != nil {
		return err
	}
	if err := e.Store.SetLeadNurturing(lead.ID, &sequence.ID, models.NurturingActive); err != nil {
		return err
	}
	if err := e.Store.IncrementSequenceCounter(sequence.ID, CounterEnrolled); err != nil {
		return err
	}

	snap.enrolledKeys[enrollKey{lead.ID, sequence.ID}] = struct{}{}
	lead.NurturingSequenceID = &sequence.ID
	lead.NurturingStatus = models.NurturingActive

	e.Logger.Printf("Enrolled lead %d in sequence %q", lead.ID, sequence.Name)
	return nil
}

// stepDelay resolves a step's configured delay relative to the previous step.
func stepDelay(step models.SequenceStep) time.Duration {
	return time.Duration(step.DelayDays*24+step.DelayHours) * time.Hour
}
