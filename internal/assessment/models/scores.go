package models

import (
	"time"

	id "talentgate/pkg/domain"
)

// ScoreSet holds the computed results for one assessment, written by the
// scoring pipeline after completion. The lifecycle core never computes scores;
// it only stores and projects them.
type ScoreSet struct {
	AssessmentID    id.AssessmentID
	CompositeScores map[string]float64
	SubtestScores   []SubtestScore
	RedFlags        []string
	Predictions     map[string]float64
	InterviewGuide  []string
	DevelopmentPlan []string
	Notes           string
	ScoredAt        time.Time
}

// SubtestScore is a per-construct result within a ScoreSet.
type SubtestScore struct {
	Construct  string
	Raw        float64
	Percentile float64
}
