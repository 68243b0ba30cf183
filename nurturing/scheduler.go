package nurturing

import (
	"time"

	"leadflow/models"
)

// runDueStep advances the enrollment through at most one step. An enrollment
// past its last step is completed; otherwise nothing happens until the next
// action date has passed. Inactive and condition-gated steps advance without
// executing; everything else dispatches to the action executor.
func (e *Engine) runDueStep(sequence *models.Sequence, enrollment *models.Enrollment, lead *models.Lead, now time.Time, report *RunReport) error {
	if enrollment.CurrentStep >= len(sequence.Steps) {
		return e.completeEnrollment(sequence, enrollment, lead, now)
	}
	if enrollment.NextActionAt == nil || enrollment.NextActionAt.After(now) {
		return nil
	}

	step := sequence.Steps[enrollment.CurrentStep]

	if !step.IsActive {
		return e.advance(sequence, enrollment, now, models.CompletedStep{
			StepNumber:  step.StepNumber,
			CompletedAt: now,
			ActionType:  step.ActionType,
			Result:      models.StepResultSkipped,
			Details:     "Step inactive",
		})
	}

	if step.Condition != nil && step.Condition.SkipIfContacted && lead.Contacted() {
		return e.advance(sequence, enrollment, now, models.CompletedStep{
			StepNumber:  step.StepNumber,
			CompletedAt: now,
			ActionType:  step.ActionType,
			Result:      models.StepResultSkipped,
			Details:     "Condition not met",
		})
	}

	result, details := e.executeAction(sequence, enrollment, step, lead, now, report)

	// Fail-forward is the default: a failed action is recorded, never
	// retried, and the enrollment still advances. Steps that opt in via
	// RetryOnFailure stay due so the next run attempts them again.
	if result == models.StepResultFailed && step.RetryOnFailure {
		return e.Store.SaveEnrollment(enrollment)
	}

	return e.advance(sequence, enrollment, now, models.CompletedStep{
		StepNumber:  step.StepNumber,
		CompletedAt: now,
		ActionType:  step.ActionType,
		Result:      result,
		Details:     details,
	})
}

// advance appends the step log entry, bumps the step index and schedules
// the following step, or clears the schedule when none remains.
func (e *Engine) advance(sequence *models.Sequence, enrollment *models.Enrollment, now time.Time, entry models.CompletedStep) error {
	enrollment.CompletedSteps = append(enrollment.CompletedSteps, entry)
	enrollment.CurrentStep++

	if enrollment.CurrentStep < len(sequence.Steps) {
		next := now.Add(stepDelay(sequence.Steps[enrollment.CurrentStep]))
		enrollment.NextActionAt = &next
	} else {
		enrollment.NextActionAt = nil
	}

	return e.Store.SaveEnrollment(enrollment)
}

// completeEnrollment marks an enrollment that walked past its last step.
func (e *Engine) completeEnrollment(sequence *models.Sequence, enrollment *models.Enrollment, lead *models.Lead, now time.Time) error {
	enrollment.Status = models.NurturingCompleted
	enrollment.ExitReason = "completed"
	enrollment.CompletedAt = &now
	enrollment.NextActionAt = nil

	if err := e.Store.SaveEnrollment(enrollment); err != nil {
		return err
	}
	if err := e.Store.SetLeadNurturing(lead.ID, lead.NurturingSequenceID, models.NurturingCompleted); err != nil {
		return err
	}
	if err := e.Store.IncrementSequenceCounter(sequence.ID, CounterCompleted); err != nil {
		return err
	}

	lead.NurturingStatus = models.NurturingCompleted
	e.Logger.Printf("Enrollment %d completed sequence %q", enrollment.ID, sequence.Name)
	return nil
}
