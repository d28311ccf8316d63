package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileFor_UnknownRoleFailsClosed(t *testing.T) {
	for _, role := range []Role{"", "superuser", "ADMIN", "Admin "} {
		p := ProfileFor(role)
		assert.Equal(t, Profile{}, p, "role %q must see nothing", role)
	}
}

func TestProfileFor_EveryKnownRoleHasRow(t *testing.T) {
	for _, role := range KnownRoles() {
		p := ProfileFor(role)
		// Every internal role may at minimum see composite scores; a zero
		// profile for a known role means the matrix row went missing.
		assert.True(t, p.CompositeScores, "role %q has an empty matrix row", role)
	}
}

func TestProfileFor_AdminSeesEverything(t *testing.T) {
	p := ProfileFor(RoleAdmin)
	assert.Equal(t, Profile{
		CompositeScores: true,
		SubtestDetail:   true,
		Transcripts:     true,
		RedFlags:        true,
		Predictions:     true,
		InterviewGuide:  true,
		DevelopmentPlan: true,
		Notes:           true,
		Export:          true,
		BulkActions:     true,
		StatusChange:    true,
	}, p)
}

func TestProfileFor_ObserverIsMinimal(t *testing.T) {
	p := ProfileFor(RoleObserver)
	assert.True(t, p.CompositeScores)
	assert.False(t, p.SubtestDetail)
	assert.False(t, p.Transcripts)
	assert.False(t, p.RedFlags)
	assert.False(t, p.Export)
	assert.False(t, p.BulkActions)
	assert.False(t, p.StatusChange)
}

func TestProfileFor_RecruiterCannotExport(t *testing.T) {
	p := ProfileFor(RoleRecruiter)
	assert.True(t, p.CompositeScores)
	assert.True(t, p.InterviewGuide)
	assert.False(t, p.Export)
	assert.False(t, p.SubtestDetail)
	assert.False(t, p.Predictions)
}
