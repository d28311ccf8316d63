// Package results projects raw assessment results through the access matrix
// into the payload actually serialized to a viewer.
//
// A field the viewer's role may not see is entirely absent from the output,
// not null and not empty: consuming UIs key section rendering off presence.
package results

import (
	"talentgate/internal/access"
	id "talentgate/pkg/domain"
)

// SubtestScore is a per-construct score with its raw and normalized values.
type SubtestScore struct {
	Construct  string  `json:"construct"`
	Raw        float64 `json:"raw"`
	Percentile float64 `json:"percentile"`
}

// TranscriptEntry is one recorded answer shown in the detailed transcript view.
type TranscriptEntry struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
	Response string `json:"response"`
}

// Raw is the unfiltered result set computed by scoring. It must never be
// serialized directly; Project is the only path to a client payload.
type Raw struct {
	AssessmentID    id.AssessmentID
	CandidateID     id.CandidateID
	DurationMinutes int
	CompositeScores map[string]float64
	SubtestScores   []SubtestScore
	Transcripts     []TranscriptEntry
	RedFlags        []string
	Predictions     map[string]float64
	InterviewGuide  []string
	DevelopmentPlan []string
	Notes           string
}

// Projected is the role-filtered payload. Invisible sections are nil and
// omitted from JSON.
type Projected struct {
	AssessmentID    string             `json:"assessment_id"`
	DurationMinutes int                `json:"duration_minutes"`
	CompositeScores map[string]float64 `json:"composite_scores,omitempty"`
	SubtestScores   []SubtestScore     `json:"subtest_scores,omitempty"`
	Transcripts     []TranscriptEntry  `json:"transcripts,omitempty"`
	RedFlags        []string           `json:"red_flags,omitempty"`
	Predictions     map[string]float64 `json:"predictions,omitempty"`
	InterviewGuide  []string           `json:"interview_guide,omitempty"`
	DevelopmentPlan []string           `json:"development_plan,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Capabilities    []string           `json:"capabilities,omitempty"`
}

// Project filters raw results for the given role. It never fails: an unknown
// role degrades to a payload holding only the assessment identity and duration.
func Project(role access.Role, raw Raw) Projected {
	profile := access.ProfileFor(role)

	out := Projected{
		AssessmentID:    raw.AssessmentID.String(),
		DurationMinutes: raw.DurationMinutes,
	}

	if profile.CompositeScores {
		out.CompositeScores = raw.CompositeScores
	}
	if profile.SubtestDetail {
		out.SubtestScores = raw.SubtestScores
	}
	if profile.Transcripts {
		out.Transcripts = raw.Transcripts
	}
	if profile.RedFlags {
		out.RedFlags = raw.RedFlags
	}
	if profile.Predictions {
		out.Predictions = raw.Predictions
	}
	if profile.InterviewGuide {
		out.InterviewGuide = raw.InterviewGuide
	}
	if profile.DevelopmentPlan {
		out.DevelopmentPlan = raw.DevelopmentPlan
	}
	if profile.Notes && raw.Notes != "" {
		notes := raw.Notes
		out.Notes = &notes
	}

	out.Capabilities = capabilities(profile)
	return out
}

func capabilities(p access.Profile) []string {
	var caps []string
	if p.Export {
		caps = append(caps, "export")
	}
	if p.BulkActions {
		caps = append(caps, "bulk_actions")
	}
	if p.StatusChange {
		caps = append(caps, "status_change")
	}
	return caps
}
