// Package store provides persistence for the assessment lifecycle: an
// in-memory implementation for tests and local runs, and a postgres
// implementation for production.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"talentgate/internal/assessment/models"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

// MemoryInvitations is a thread-safe in-memory invitation store.
type MemoryInvitations struct {
	mu      sync.RWMutex
	byToken map[string]*models.Invitation
}

func NewMemoryInvitations() *MemoryInvitations {
	return &MemoryInvitations{byToken: make(map[string]*models.Invitation)}
}

func (s *MemoryInvitations) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byToken[inv.Token]; exists {
		return sentinel.ErrConflict
	}
	s.byToken[inv.Token] = cloneInvitation(inv)
	return nil
}

func (s *MemoryInvitations) FindByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInvitation(inv), nil
}

func (s *MemoryInvitations) Update(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[inv.Token]; !ok {
		return sentinel.ErrNotFound
	}
	s.byToken[inv.Token] = cloneInvitation(inv)
	return nil
}

func cloneInvitation(inv *models.Invitation) *models.Invitation {
	out := *inv
	if inv.LinkOpenedAt != nil {
		t := *inv.LinkOpenedAt
		out.LinkOpenedAt = &t
	}
	return &out
}

// MemoryAssessments is a thread-safe in-memory assessment store. It enforces
// the one-assessment-per-candidate constraint the same way the postgres
// schema does, with a conflict error on the second create.
type MemoryAssessments struct {
	mu          sync.RWMutex
	byID        map[id.AssessmentID]*models.Assessment
	byCandidate map[id.CandidateID]id.AssessmentID
}

func NewMemoryAssessments() *MemoryAssessments {
	return &MemoryAssessments{
		byID:        make(map[id.AssessmentID]*models.Assessment),
		byCandidate: make(map[id.CandidateID]id.AssessmentID),
	}
}

func (s *MemoryAssessments) Create(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCandidate[a.CandidateID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[a.ID] = cloneAssessment(a)
	s.byCandidate[a.CandidateID] = a.ID
	return nil
}

func (s *MemoryAssessments) FindByID(_ context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAssessment(a), nil
}

func (s *MemoryAssessments) FindByCandidate(_ context.Context, candidateID id.CandidateID) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessmentID, ok := s.byCandidate[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAssessment(s.byID[assessmentID]), nil
}

func (s *MemoryAssessments) Update(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[a.ID] = cloneAssessment(a)
	return nil
}

func cloneAssessment(a *models.Assessment) *models.Assessment {
	out := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	if a.DurationMinutes != nil {
		d := *a.DurationMinutes
		out.DurationMinutes = &d
	}
	return &out
}

// MemoryResponses is a thread-safe in-memory response ledger with upsert
// semantics on the (assessment, item) key.
type MemoryResponses struct {
	mu     sync.RWMutex
	byItem map[id.AssessmentID]map[string]*models.ItemResponse
}

func NewMemoryResponses() *MemoryResponses {
	return &MemoryResponses{byItem: make(map[id.AssessmentID]map[string]*models.ItemResponse)}
}

func (s *MemoryResponses) Upsert(_ context.Context, r *models.ItemResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.byItem[r.AssessmentID]
	if !ok {
		items = make(map[string]*models.ItemResponse)
		s.byItem[r.AssessmentID] = items
	}
	if existing, ok := items[r.ItemID]; ok {
		existing.ApplyUpdate(r, r.UpdatedAt)
		return nil
	}
	items[r.ItemID] = cloneResponse(r)
	return nil
}

func (s *MemoryResponses) ListByAssessment(_ context.Context, assessmentID id.AssessmentID) ([]*models.ItemResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.byItem[assessmentID]
	out := make([]*models.ItemResponse, 0, len(items))
	for _, r := range items {
		out = append(out, cloneResponse(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func cloneResponse(r *models.ItemResponse) *models.ItemResponse {
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	if r.ResponseTimeMs != nil {
		v := *r.ResponseTimeMs
		out.ResponseTimeMs = &v
	}
	if r.Confidence != nil {
		v := *r.Confidence
		out.Confidence = &v
	}
	return &out
}

// MemorySurveys is a thread-safe in-memory survey store. One survey per
// assessment; the second create conflicts.
type MemorySurveys struct {
	mu           sync.RWMutex
	byAssessment map[id.AssessmentID]*models.Survey
}

func NewMemorySurveys() *MemorySurveys {
	return &MemorySurveys{byAssessment: make(map[id.AssessmentID]*models.Survey)}
}

func (s *MemorySurveys) Create(_ context.Context, survey *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byAssessment[survey.AssessmentID]; exists {
		return sentinel.ErrConflict
	}
	s.byAssessment[survey.AssessmentID] = cloneSurvey(survey)
	return nil
}

// FindByAssessment is used by tests and the postgres parity suite.
func (s *MemorySurveys) FindByAssessment(_ context.Context, assessmentID id.AssessmentID) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	survey, ok := s.byAssessment[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSurvey(survey), nil
}

func cloneSurvey(survey *models.Survey) *models.Survey {
	out := *survey
	out.Ratings = make(map[string]int, len(survey.Ratings))
	for k, v := range survey.Ratings {
		out.Ratings[k] = v
	}
	return &out
}

// MemoryScores is a thread-safe in-memory score-set store. Save overwrites:
// the scoring pipeline may re-score an assessment.
type MemoryScores struct {
	mu           sync.RWMutex
	byAssessment map[id.AssessmentID]*models.ScoreSet
}

func NewMemoryScores() *MemoryScores {
	return &MemoryScores{byAssessment: make(map[id.AssessmentID]*models.ScoreSet)}
}

func (s *MemoryScores) Save(_ context.Context, set *models.ScoreSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAssessment[set.AssessmentID] = cloneScoreSet(set)
	return nil
}

func (s *MemoryScores) FindByAssessment(_ context.Context, assessmentID id.AssessmentID) (*models.ScoreSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.byAssessment[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneScoreSet(set), nil
}

func cloneScoreSet(set *models.ScoreSet) *models.ScoreSet {
	out := *set
	out.CompositeScores = cloneFloatMap(set.CompositeScores)
	out.Predictions = cloneFloatMap(set.Predictions)
	out.SubtestScores = append([]models.SubtestScore(nil), set.SubtestScores...)
	out.RedFlags = append([]string(nil), set.RedFlags...)
	out.InterviewGuide = append([]string(nil), set.InterviewGuide...)
	out.DevelopmentPlan = append([]string(nil), set.DevelopmentPlan...)
	return &out
}

func cloneFloatMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MemoryDirectory records candidate status updates, standing in for the
// external candidate system in tests and local runs.
type MemoryDirectory struct {
	mu       sync.RWMutex
	statuses map[id.CandidateID]models.CandidateStatus
	updated  map[id.CandidateID]time.Time
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		statuses: make(map[id.CandidateID]models.CandidateStatus),
		updated:  make(map[id.CandidateID]time.Time),
	}
}

func (d *MemoryDirectory) SetStatus(_ context.Context, candidateID id.CandidateID, status models.CandidateStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[candidateID] = status
	d.updated[candidateID] = time.Now()
	return nil
}

// Status returns the recorded status and whether one exists.
func (d *MemoryDirectory) Status(candidateID id.CandidateID) (models.CandidateStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status, ok := d.statuses[candidateID]
	return status, ok
}
