package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrExpired: invitation deadline has passed
// - ErrAlreadyCompleted: assessment is already in its terminal completed state
// - ErrConflict: uniqueness constraint hit (duplicate assessment, duplicate survey)
// - ErrInvalidState: record in wrong lifecycle state for the requested transition
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("expired")
	ErrAlreadyCompleted = errors.New("already completed")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
)
