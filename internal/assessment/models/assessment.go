package models

import (
	"math"
	"time"

	id "talentgate/pkg/domain"
)

// Assessment is the record of a candidate's test session. Exactly one exists
// per candidate; stores enforce the uniqueness constraint on CandidateID.
type Assessment struct {
	ID              id.AssessmentID
	CandidateID     id.CandidateID
	InvitationID    id.InvitationID
	StartedAt       time.Time
	CompletedAt     *time.Time
	DurationMinutes *int
}

// NewAssessment creates a session record at its start time.
func NewAssessment(candidateID id.CandidateID, invitationID id.InvitationID, startedAt time.Time) *Assessment {
	return &Assessment{
		ID:           id.NewAssessmentID(),
		CandidateID:  candidateID,
		InvitationID: invitationID,
		StartedAt:    startedAt,
	}
}

// Completed reports whether the session has reached its terminal state.
func (a *Assessment) Completed() bool {
	return a.CompletedAt != nil
}

// ApplyCompletion stamps completedAt and derives durationMinutes, rounded to
// the nearest minute. Set once; callers must check Completed first.
func (a *Assessment) ApplyCompletion(now time.Time) int {
	t := now
	a.CompletedAt = &t
	duration := int(math.Round(now.Sub(a.StartedAt).Minutes()))
	a.DurationMinutes = &duration
	return duration
}
