package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentgate/internal/assessment/models"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

func TestMemoryInvitations_CreateFindUpdate(t *testing.T) {
	s := NewMemoryInvitations()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	inv, err := models.NewInvitation(id.NewCandidateID(), "role-backend", now, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, inv))

	found, err := s.FindByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)

	// Mutating the returned copy must not leak into the store.
	found.Status = models.StatusExpired
	again, err := s.FindByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)

	inv.MarkStarted()
	require.NoError(t, s.Update(ctx, inv))
	updated, err := s.FindByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, updated.Status)
}

func TestMemoryInvitations_MissingToken(t *testing.T) {
	s := NewMemoryInvitations()
	_, err := s.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	err = s.Update(context.Background(), &models.Invitation{Token: "missing"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryAssessments_OnePerCandidate(t *testing.T) {
	s := NewMemoryAssessments()
	ctx := context.Background()
	candidateID := id.NewCandidateID()
	started := time.Now()

	first := models.NewAssessment(candidateID, id.NewInvitationID(), started)
	require.NoError(t, s.Create(ctx, first))

	second := models.NewAssessment(candidateID, id.NewInvitationID(), started)
	assert.ErrorIs(t, s.Create(ctx, second), sentinel.ErrConflict)

	found, err := s.FindByCandidate(ctx, candidateID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	byID, err := s.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, candidateID, byID.CandidateID)
}

func TestMemoryResponses_UpsertPreservesSubmittedAt(t *testing.T) {
	s := NewMemoryResponses()
	ctx := context.Background()
	assessmentID := id.NewAssessmentID()
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, &models.ItemResponse{
		AssessmentID: assessmentID,
		ItemID:       "cog-01",
		ItemType:     "multiple_choice",
		Payload:      json.RawMessage(`{"choice":"A"}`),
		SubmittedAt:  t0,
		UpdatedAt:    t0,
	}))
	require.NoError(t, s.Upsert(ctx, &models.ItemResponse{
		AssessmentID: assessmentID,
		ItemID:       "cog-01",
		ItemType:     "multiple_choice",
		Payload:      json.RawMessage(`{"choice":"D"}`),
		SubmittedAt:  t0.Add(time.Minute),
		UpdatedAt:    t0.Add(time.Minute),
	}))

	stored, err := s.ListByAssessment(ctx, assessmentID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.JSONEq(t, `{"choice":"D"}`, string(stored[0].Payload))
	assert.Equal(t, t0, stored[0].SubmittedAt)
	assert.Equal(t, t0.Add(time.Minute), stored[0].UpdatedAt)
}

func TestMemoryResponses_ListIsSortedByItem(t *testing.T) {
	s := NewMemoryResponses()
	ctx := context.Background()
	assessmentID := id.NewAssessmentID()

	for _, itemID := range []string{"tech-02", "cog-01", "style-05"} {
		require.NoError(t, s.Upsert(ctx, &models.ItemResponse{
			AssessmentID: assessmentID,
			ItemID:       itemID,
			Payload:      json.RawMessage(`{}`),
		}))
	}

	stored, err := s.ListByAssessment(ctx, assessmentID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "cog-01", stored[0].ItemID)
	assert.Equal(t, "style-05", stored[1].ItemID)
	assert.Equal(t, "tech-02", stored[2].ItemID)
}

func TestMemorySurveys_SecondCreateConflicts(t *testing.T) {
	s := NewMemorySurveys()
	ctx := context.Background()
	assessmentID := id.NewAssessmentID()

	survey := &models.Survey{AssessmentID: assessmentID, Ratings: map[string]int{"clarity": 5}}
	require.NoError(t, s.Create(ctx, survey))
	assert.ErrorIs(t, s.Create(ctx, survey), sentinel.ErrConflict)

	found, err := s.FindByAssessment(ctx, assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Ratings["clarity"])
}

func TestMemoryScores_SaveOverwrites(t *testing.T) {
	s := NewMemoryScores()
	ctx := context.Background()
	assessmentID := id.NewAssessmentID()

	require.NoError(t, s.Save(ctx, &models.ScoreSet{
		AssessmentID:    assessmentID,
		CompositeScores: map[string]float64{"overall": 55},
	}))
	require.NoError(t, s.Save(ctx, &models.ScoreSet{
		AssessmentID:    assessmentID,
		CompositeScores: map[string]float64{"overall": 62},
	}))

	found, err := s.FindByAssessment(ctx, assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 62.0, found.CompositeScores["overall"])

	_, err = s.FindByAssessment(ctx, id.NewAssessmentID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
