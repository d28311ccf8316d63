package models

import (
	"encoding/json"
	"time"

	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// ItemResponse is one recorded answer, keyed by (AssessmentID, ItemID).
// Resubmitting the same item overwrites the value fields and never creates a
// second row: the key pair is the identity, everything else is payload.
type ItemResponse struct {
	AssessmentID   id.AssessmentID
	ItemID         string
	ItemType       string
	Payload        json.RawMessage
	ResponseTimeMs *int
	Confidence     *int
	SubmittedAt    time.Time
	UpdatedAt      time.Time
}

// Validate enforces the submission contract: identity and payload are required,
// optional measurements must be sane when present.
func (r *ItemResponse) Validate() error {
	if r.ItemID == "" {
		return dErrors.New(dErrors.CodeValidation, "item id is required")
	}
	if len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeValidation, "response payload is required")
	}
	if !json.Valid(r.Payload) {
		return dErrors.New(dErrors.CodeValidation, "response payload must be valid JSON")
	}
	if r.ResponseTimeMs != nil && *r.ResponseTimeMs < 0 {
		return dErrors.New(dErrors.CodeValidation, "response time must not be negative")
	}
	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 100) {
		return dErrors.New(dErrors.CodeValidation, "confidence must be between 0 and 100")
	}
	return nil
}

// ApplyUpdate overwrites the value fields from a resubmission, leaving the
// identity key and original SubmittedAt untouched.
func (r *ItemResponse) ApplyUpdate(update *ItemResponse, now time.Time) {
	r.ItemType = update.ItemType
	r.Payload = update.Payload
	r.ResponseTimeMs = update.ResponseTimeMs
	r.Confidence = update.Confidence
	r.UpdatedAt = now
}
