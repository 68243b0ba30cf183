package nurturing

import (
	"testing"
	"time"

	"leadflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(leads ...models.Lead) *snapshot {
	snap := &snapshot{
		leads:        leads,
		leadByID:     make(map[uint]*models.Lead),
		sequenceByID: make(map[uint]*models.Sequence),
		enrolledKeys: make(map[enrollKey]struct{}),
		converted:    make(map[uint]struct{}),
		appointments: make(map[uint][]time.Time),
	}
	for i := range snap.leads {
		snap.leadByID[snap.leads[i].ID] = &snap.leads[i]
	}
	return snap
}

func eligibleIDs(sequence *models.Sequence, snap *snapshot) []uint {
	var ids []uint
	for _, lead := range eligibleLeads(sequence, snap, testNow) {
		ids = append(ids, lead.ID)
	}
	return ids
}

func TestNewLeadTriggerWindow(t *testing.T) {
	sequence := emailSequence(1, models.TriggerNewLead)

	cases := []struct {
		name       string
		createdAgo time.Duration
		status     string
		eligible   bool
	}{
		{"created 2h ago", 2 * time.Hour, "new", true},
		{"created 23h ago", 23 * time.Hour, "new", true},
		{"created 25h ago", 25 * time.Hour, "new", false},
		{"already contacted", 2 * time.Hour, "contacted", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := testSnapshot(newLead(10, tc.status, tc.createdAgo))
			got := eligibleIDs(&sequence, snap)
			if tc.eligible {
				assert.Equal(t, []uint{10}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestNoContactTriggerUsesLastContactOrCreation(t *testing.T) {
	sequence := emailSequence(1, models.TriggerNoContact)

	// No contact recorded: creation date is the baseline, default 3 days.
	stale := newLead(10, "contacted", 4*24*time.Hour)
	fresh := newLead(11, "contacted", 2*24*time.Hour)
	snap := testSnapshot(stale, fresh)
	assert.Equal(t, []uint{10}, eligibleIDs(&sequence, snap))

	// A recent contact resets the clock even for an old lead.
	recentContact := testNow.Add(-24 * time.Hour)
	contacted := newLead(12, "contacted", 30*24*time.Hour)
	contacted.LastContactAt = &recentContact
	snap = testSnapshot(contacted)
	assert.Empty(t, eligibleIDs(&sequence, snap))
}

func TestNoContactTriggerCustomThreshold(t *testing.T) {
	sequence := emailSequence(1, models.TriggerNoContact)
	sequence.TriggerConditions.NoContactDays = 10

	snap := testSnapshot(newLead(10, "contacted", 5*24*time.Hour))
	assert.Empty(t, eligibleIDs(&sequence, snap))

	snap = testSnapshot(newLead(10, "contacted", 11*24*time.Hour))
	assert.Equal(t, []uint{10}, eligibleIDs(&sequence, snap))
}

func TestInactivityTriggerFallsBackToUpdatedAt(t *testing.T) {
	sequence := emailSequence(1, models.TriggerInactivity)

	// UpdatedAt 8 days ago, no engagement timestamp: past the 7 day default.
	idle := newLead(10, "contacted", 8*24*time.Hour)
	snap := testSnapshot(idle)
	assert.Equal(t, []uint{10}, eligibleIDs(&sequence, snap))

	// Engagement 1 day ago overrides the stale UpdatedAt.
	engaged := newLead(11, "contacted", 8*24*time.Hour)
	lastSeen := testNow.Add(-24 * time.Hour)
	engaged.LastEngagementAt = &lastSeen
	snap = testSnapshot(engaged)
	assert.Empty(t, eligibleIDs(&sequence, snap))
}

func TestStatusChangeTriggerRequiresTarget(t *testing.T) {
	sequence := emailSequence(1, models.TriggerStatusChange)

	// No target configured: nothing matches.
	snap := testSnapshot(newLead(10, "proposal", time.Hour))
	assert.Empty(t, eligibleIDs(&sequence, snap))

	sequence.TriggerConditions.TargetStatus = "proposal"
	assert.Equal(t, []uint{10}, eligibleIDs(&sequence, snap))

	snap = testSnapshot(newLead(11, "contacted", time.Hour))
	assert.Empty(t, eligibleIDs(&sequence, snap))
}

func TestOrthogonalFiltersApply(t *testing.T) {
	sequence := emailSequence(1, models.TriggerNewLead)
	sequence.TriggerConditions.LeadSource = []string{"website", "portal"}
	sequence.TriggerConditions.LeadType = []string{"buyer"}

	matching := newLead(10, "new", time.Hour)
	matching.LeadSource = "website"
	matching.LeadType = "buyer"

	wrongSource := newLead(11, "new", time.Hour)
	wrongSource.LeadSource = "referral"
	wrongSource.LeadType = "buyer"

	snap := testSnapshot(matching, wrongSource)
	assert.Equal(t, []uint{10}, eligibleIDs(&sequence, snap))
}

func TestEnrolledAndNurturingLeadsExcluded(t *testing.T) {
	sequence := emailSequence(1, models.TriggerNewLead)

	enrolled := newLead(10, "new", time.Hour)
	nurturing := newLead(11, "new", time.Hour)
	nurturing.NurturingStatus = models.NurturingActive
	free := newLead(12, "new", time.Hour)

	snap := testSnapshot(enrolled, nurturing, free)
	snap.enrolledKeys[enrollKey{10, 1}] = struct{}{}

	assert.Equal(t, []uint{12}, eligibleIDs(&sequence, snap))
}

func TestExitedLeadCanReenroll(t *testing.T) {
	// A lead whose previous nurturing exited is eligible again for a
	// different sequence.
	sequence := emailSequence(2, models.TriggerNewLead)

	lead := newLead(10, "new", time.Hour)
	lead.NurturingStatus = models.NurturingExited

	snap := testSnapshot(lead)
	snap.enrolledKeys[enrollKey{10, 1}] = struct{}{}

	got := eligibleIDs(&sequence, snap)
	require.Equal(t, []uint{10}, got)
}
