package nurturing

import (
	"fmt"
	"time"

	"leadflow/models"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
)

// executeAction performs the concrete side effect of a step and returns the
// result recorded in the enrollment's step log.
func (e *Engine) executeAction(sequence *models.Sequence, enrollment *models.Enrollment, step models.SequenceStep, lead *models.Lead, now time.Time, report *RunReport) (string, string) {
	switch step.ActionType {
	case models.ActionEmail:
		return e.sendStepEmail(sequence, enrollment, step, lead, now, report)
	case models.ActionTask:
		return e.createStepTask(enrollment, step, lead, now, report)
	case models.ActionNotification:
		return e.createStepNotification(step, lead, report)
	}
	return models.StepResultSkipped, "Unknown action type"
}

// sendStepEmail renders and sends the step's email, then logs the touch.
// A lead without a buyer email is left alone and the step still counts as
// sent.
// TODO: record result=skipped when the buyer email is missing.
func (e *Engine) sendStepEmail(sequence *models.Sequence, enrollment *models.Enrollment, step models.SequenceStep, lead *models.Lead, now time.Time, report *RunReport) (string, string) {
	if lead.BuyerEmail == "" {
		return models.StepResultSent, ""
	}
	if err := checkmail.ValidateFormat(lead.BuyerEmail); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("email to lead %d: invalid address %q", lead.ID, lead.BuyerEmail))
		return models.StepResultFailed, "Invalid email address"
	}

	subject := renderTemplate(step.EmailSubject, lead, "Cliente")
	body := renderTemplate(step.EmailBody, lead, "Cliente")

	if err := e.Mailer.Send(lead.BuyerEmail, subject, body); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("email to lead %d: %v", lead.ID, err))
		return models.StepResultFailed, "Send failed"
	}

	enrollment.Metrics.EmailsSent++
	report.EmailsSent++

	entry := &models.CommunicationLog{
		LeadID:     lead.ID,
		ContactID:  lead.ContactID,
		Type:       "email",
		Direction:  "outbound",
		Source:     "nurturing",
		Subject:    subject,
		Body:       body,
		SequenceID: &sequence.ID,
		StepNumber: &step.StepNumber,
		MessageID:  uuid.New().String(),
		SentAt:     &now,
	}
	if err := e.Store.CreateCommunicationLog(entry); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("logging email for lead %d: %v", lead.ID, err))
	}

	return models.StepResultSent, ""
}

// createStepTask creates the follow-up task for the step, assigned to the
// step's user or falling back to the lead's owner.
func (e *Engine) createStepTask(enrollment *models.Enrollment, step models.SequenceStep, lead *models.Lead, now time.Time, report *RunReport) (string, string) {
	assignee := step.AssignedTo
	if assignee == nil {
		assignee = lead.AssignedTo
	}

	due := now.Add(24 * time.Hour)
	task := &models.Task{
		LeadID:      lead.ID,
		Title:       renderTemplate(step.TaskTitle, lead, "Lead"),
		Description: renderTemplate(step.TaskDescription, lead, "Lead"),
		AssignedTo:  assignee,
		DueAt:       &due,
		Priority:    "medium",
		Status:      "pending",
		Source:      "nurturing",
	}

	if err := e.Store.CreateTask(task); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("task for lead %d: %v", lead.ID, err))
		return models.StepResultFailed, "Task creation failed"
	}

	enrollment.Metrics.TasksCreated++
	report.TasksCreated++
	return models.StepResultSent, ""
}

// createStepNotification notifies the responsible user about the lead.
// Best effort: a missing recipient or a store error never fails the step.
func (e *Engine) createStepNotification(step models.SequenceStep, lead *models.Lead, report *RunReport) (string, string) {
	recipient := step.AssignedTo
	if recipient == nil {
		recipient = lead.AssignedTo
	}
	if recipient == nil {
		return models.StepResultSent, ""
	}

	notification := &models.Notification{
		UserID:  *recipient,
		LeadID:  &lead.ID,
		Message: step.NotificationMessage,
		Source:  "nurturing",
	}
	if err := e.Store.CreateNotification(notification); err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("notification for lead %d: %v", lead.ID, err))
	}

	return models.StepResultSent, ""
}
