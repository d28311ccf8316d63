package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentgate/internal/access"
	id "talentgate/pkg/domain"
)

func sampleRaw() Raw {
	return Raw{
		AssessmentID:    id.NewAssessmentID(),
		CandidateID:     id.NewCandidateID(),
		DurationMinutes: 74,
		CompositeScores: map[string]float64{"cognitive": 81.5, "technical": 66.0},
		SubtestScores:   []SubtestScore{{Construct: "working_memory", Raw: 12, Percentile: 77}},
		Transcripts:     []TranscriptEntry{{ItemID: "beh-03", ItemType: "open_text", Response: "..."}},
		RedFlags:        []string{"inconsistent_responding"},
		Predictions:     map[string]float64{"retention_12mo": 0.72},
		InterviewGuide:  []string{"Probe debugging approach on tech-03"},
		DevelopmentPlan: []string{"Pair on code review for first quarter"},
		Notes:           "strong communicator",
	}
}

func TestProject_UnknownRoleSeesNothing(t *testing.T) {
	raw := sampleRaw()
	out := Project(access.Role("no-such-role"), raw)

	body, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	// Only the identity and duration survive. Every gated field must be absent
	// from the JSON, not null or empty.
	assert.Equal(t, map[string]any{
		"assessment_id":    raw.AssessmentID.String(),
		"duration_minutes": float64(74),
	}, decoded)
}

func TestProject_AdminSeesEverything(t *testing.T) {
	raw := sampleRaw()
	out := Project(access.RoleAdmin, raw)

	assert.Equal(t, raw.CompositeScores, out.CompositeScores)
	assert.Equal(t, raw.SubtestScores, out.SubtestScores)
	assert.Equal(t, raw.Transcripts, out.Transcripts)
	assert.Equal(t, raw.RedFlags, out.RedFlags)
	assert.Equal(t, raw.Predictions, out.Predictions)
	assert.Equal(t, raw.InterviewGuide, out.InterviewGuide)
	assert.Equal(t, raw.DevelopmentPlan, out.DevelopmentPlan)
	require.NotNil(t, out.Notes)
	assert.Equal(t, raw.Notes, *out.Notes)
	assert.ElementsMatch(t, []string{"export", "bulk_actions", "status_change"}, out.Capabilities)
}

func TestProject_RecruiterFiltering(t *testing.T) {
	raw := sampleRaw()
	out := Project(access.RoleRecruiter, raw)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Contains(t, decoded, "composite_scores")
	assert.Contains(t, decoded, "red_flags")
	assert.Contains(t, decoded, "interview_guide")
	assert.Contains(t, decoded, "notes")

	assert.NotContains(t, decoded, "subtest_scores")
	assert.NotContains(t, decoded, "transcripts")
	assert.NotContains(t, decoded, "predictions")
	assert.NotContains(t, decoded, "development_plan")

	assert.ElementsMatch(t, []string{"status_change"}, out.Capabilities)
}

func TestProject_EmptyNotesOmittedEvenWhenVisible(t *testing.T) {
	raw := sampleRaw()
	raw.Notes = ""
	out := Project(access.RoleAdmin, raw)
	assert.Nil(t, out.Notes)
}

func TestProject_NeverPanicsOnZeroRaw(t *testing.T) {
	assert.NotPanics(t, func() {
		for _, role := range append(access.KnownRoles(), access.Role("bogus")) {
			_ = Project(role, Raw{})
		}
	})
}
