package nurturing

import (
	"time"

	"leadflow/models"
)

// Defaults applied when a sequence leaves its day thresholds unset
const (
	defaultNoContactDays  = 3
	defaultInactivityDays = 7
)

// eligibleLeads returns the leads newly eligible for enrollment in the
// sequence. Pure filter over the snapshot; no side effects.
func eligibleLeads(sequence *models.Sequence, snap *snapshot, now time.Time) []*models.Lead {
	var eligible []*models.Lead
	for i := range snap.leads {
		lead := &snap.leads[i]
		if _, enrolled := snap.enrolledKeys[enrollKey{lead.ID, sequence.ID}]; enrolled {
			continue
		}
		if lead.NurturingStatus == models.NurturingActive {
			continue
		}
		if !matchesTrigger(sequence, lead, now) {
			continue
		}
		if !matchesFilters(sequence.TriggerConditions, lead) {
			continue
		}
		eligible = append(eligible, lead)
	}
	return eligible
}

// matchesTrigger applies the trigger-specific predicate.
func matchesTrigger(sequence *models.Sequence, lead *models.Lead, now time.Time) bool {
	conditions := sequence.TriggerConditions

	switch sequence.TriggerType {
	case models.TriggerNewLead:
		return now.Sub(lead.CreatedAt) <= 24*time.Hour && lead.Status == "new"

	case models.TriggerNoContact:
		days := conditions.NoContactDays
		if days == 0 {
			days = defaultNoContactDays
		}
		since := lead.CreatedAt
		if lead.LastContactAt != nil {
			since = *lead.LastContactAt
		}
		return now.Sub(since) >= time.Duration(days)*24*time.Hour

	case models.TriggerInactivity:
		days := conditions.InactivityDays
		if days == 0 {
			days = defaultInactivityDays
		}
		since := lead.UpdatedAt
		if lead.LastEngagementAt != nil {
			since = *lead.LastEngagementAt
		}
		return now.Sub(since) >= time.Duration(days)*24*time.Hour

	case models.TriggerStatusChange:
		return conditions.TargetStatus != "" && lead.Status == conditions.TargetStatus
	}

	return false
}

// matchesFilters applies the orthogonal list filters; an empty list
// matches everything.
func matchesFilters(conditions models.TriggerConditions, lead *models.Lead) bool {
	if !listMatches(conditions.LeadSource, lead.LeadSource) {
		return false
	}
	if !listMatches(conditions.LeadType, lead.LeadType) {
		return false
	}
	if !listMatches(conditions.QualificationStatus, lead.QualificationStatus) {
		return false
	}
	if !listMatches(conditions.Status, lead.Status) {
		return false
	}
	return true
}

func listMatches(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == value {
			return true
		}
	}
	return false
}
