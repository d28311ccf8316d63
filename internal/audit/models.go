// Package audit captures lifecycle transition events for the assessment
// platform. Emission is best-effort by contract: a failed audit write is
// logged and never rolls back the transition that produced it.
package audit

import (
	"time"
)

// EventType names a lifecycle transition worth recording.
type EventType string

const (
	EventInvitationIssued    EventType = "invitation_issued"
	EventInvitationOpened    EventType = "invitation_opened"
	EventInvitationExpired   EventType = "invitation_expired"
	EventAssessmentStarted   EventType = "assessment_started"
	EventResponseRecorded    EventType = "response_recorded"
	EventAssessmentCompleted EventType = "assessment_completed"
	EventSurveySubmitted     EventType = "survey_submitted"
)

// Event is emitted from the lifecycle service after a transition commits.
// Keep it transport-agnostic so sinks can fan out.
type Event struct {
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	InvitationID string    `json:"invitation_id,omitempty"`
	CandidateID  string    `json:"candidate_id,omitempty"`
	AssessmentID string    `json:"assessment_id,omitempty"`
	ItemID       string    `json:"item_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}
