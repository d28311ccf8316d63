package models

import (
	"time"

	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// Survey is the optional post-assessment feedback form. At most one exists per
// assessment; a second submission is a conflict, not an update.
type Survey struct {
	AssessmentID id.AssessmentID
	Ratings      map[string]int
	Feedback     string
	SubmittedAt  time.Time
}

// Validate enforces the survey contract: at least one rating, each on the
// 1-5 scale.
func (s *Survey) Validate() error {
	if len(s.Ratings) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one rating is required")
	}
	for dimension, value := range s.Ratings {
		if dimension == "" {
			return dErrors.New(dErrors.CodeValidation, "rating dimension must not be empty")
		}
		if value < 1 || value > 5 {
			return dErrors.New(dErrors.CodeValidation, "ratings must be between 1 and 5")
		}
	}
	return nil
}
