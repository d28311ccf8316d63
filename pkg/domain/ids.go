// Package domain provides typed identifiers for the assessment platform.
//
// IDs are distinct types over uuid.UUID so a CandidateID can never be passed
// where an AssessmentID is expected. Parsing enforces the invariant that IDs
// are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "talentgate/pkg/domain-errors"
)

type (
	// CandidateID identifies a candidate taking an assessment.
	CandidateID uuid.UUID
	// InvitationID identifies a tokenized invitation.
	InvitationID uuid.UUID
	// AssessmentID identifies a candidate's test session.
	AssessmentID uuid.UUID
)

// NewCandidateID returns a freshly generated candidate ID.
func NewCandidateID() CandidateID { return CandidateID(uuid.New()) }

// NewInvitationID returns a freshly generated invitation ID.
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }

// NewAssessmentID returns a freshly generated assessment ID.
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }

func (id CandidateID) String() string  { return uuid.UUID(id).String() }
func (id InvitationID) String() string { return uuid.UUID(id).String() }
func (id AssessmentID) String() string { return uuid.UUID(id).String() }

func (id CandidateID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id InvitationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseCandidateID validates and returns a CandidateID.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s, "candidate id")
	return CandidateID(u), err
}

// ParseInvitationID validates and returns an InvitationID.
func ParseInvitationID(s string) (InvitationID, error) {
	u, err := parseUUID(s, "invitation id")
	return InvitationID(u), err
}

// ParseAssessmentID validates and returns an AssessmentID.
func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseUUID(s, "assessment id")
	return AssessmentID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" must not be the nil UUID")
	}
	return u, nil
}
