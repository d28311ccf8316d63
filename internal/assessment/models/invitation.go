package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

// InvitationStatus is the lifecycle state of an invitation. Transitions are
// monotonic (PENDING -> OPENED -> STARTED -> COMPLETED) except for the forced
// move into EXPIRED, which is legal from any non-terminal state once the
// deadline has passed.
type InvitationStatus string

const (
	StatusPending   InvitationStatus = "PENDING"
	StatusOpened    InvitationStatus = "OPENED"
	StatusStarted   InvitationStatus = "STARTED"
	StatusCompleted InvitationStatus = "COMPLETED"
	StatusExpired   InvitationStatus = "EXPIRED"
)

// Terminal reports whether no further transition is accepted from s.
func (s InvitationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// ParseInvitationStatus validates a persisted status value.
func ParseInvitationStatus(raw string) (InvitationStatus, error) {
	switch s := InvitationStatus(raw); s {
	case StatusPending, StatusOpened, StatusStarted, StatusCompleted, StatusExpired:
		return s, nil
	default:
		return "", fmt.Errorf("unknown invitation status %q", raw)
	}
}

// Invitation is a tokenized, time-bounded grant allowing one candidate to take
// one assessment.
type Invitation struct {
	ID           id.InvitationID
	Token        string
	CandidateID  id.CandidateID
	JobRoleID    string
	Status       InvitationStatus
	ExpiresAt    time.Time
	LinkOpenedAt *time.Time
	CreatedAt    time.Time
}

// NewInvitation builds a pending invitation with a fresh token.
func NewInvitation(candidateID id.CandidateID, jobRoleID string, now time.Time, ttl time.Duration) (*Invitation, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	return &Invitation{
		ID:          id.NewInvitationID(),
		Token:       token,
		CandidateID: candidateID,
		JobRoleID:   jobRoleID,
		Status:      StatusPending,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

// NewToken generates an unguessable URL-safe invitation token.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Expired reports whether the deadline has passed at the given time.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// RecordOpen stamps linkOpenedAt (once) and advances PENDING to OPENED when the
// invitation is still live. linkOpenedAt is recorded even on an expired
// invitation: knowing the candidate saw a dead link matters to recruiters.
// Returns true when any field changed and a write is needed.
func (i *Invitation) RecordOpen(now time.Time) bool {
	changed := false
	if i.LinkOpenedAt == nil {
		t := now
		i.LinkOpenedAt = &t
		changed = true
	}
	if i.Status == StatusPending && !i.Expired(now) {
		i.Status = StatusOpened
		changed = true
	}
	return changed
}

// ReconcileExpiry force-transitions a non-terminal invitation to EXPIRED once
// the deadline has passed. Expiry is computed on access, not by a sweeper, so
// every lifecycle entry point calls this before anything else. Returns true
// when the status changed.
func (i *Invitation) ReconcileExpiry(now time.Time) bool {
	if i.Expired(now) && !i.Status.Terminal() {
		i.Status = StatusExpired
		return true
	}
	return false
}

// CanStart validates that a start transition is legal at the given time.
// Expiry takes precedence over every prior state, including STARTED.
func (i *Invitation) CanStart(now time.Time) error {
	if i.Status == StatusCompleted {
		return sentinel.ErrAlreadyCompleted
	}
	if i.Status == StatusExpired || i.Expired(now) {
		return sentinel.ErrExpired
	}
	return nil
}

// MarkStarted advances the invitation to STARTED.
func (i *Invitation) MarkStarted() {
	i.Status = StatusStarted
}

// MarkCompleted advances a non-terminal invitation to COMPLETED.
func (i *Invitation) MarkCompleted() {
	if !i.Status.Terminal() {
		i.Status = StatusCompleted
	}
}

// CandidateStatus is the candidate's externally visible pipeline status,
// maintained by the candidate directory collaborator.
type CandidateStatus string

const (
	CandidateStatusInProgress      CandidateStatus = "assessment_in_progress"
	CandidateStatusReadyForScoring CandidateStatus = "ready_for_scoring"
)
