// Package service implements the invitation/assessment lifecycle state machine.
//
// Every operation validates state before mutating and the multi-row
// transitions (Start, Complete) run inside a single transaction boundary, so a
// partially applied transition can never be observed. Expiry is computed on
// access: nothing sweeps invitations in the background, the first touch past
// the deadline reconciles the status.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"talentgate/internal/access"
	assessmentmetrics "talentgate/internal/assessment/metrics"
	"talentgate/internal/assessment/models"
	"talentgate/internal/audit"
	"talentgate/internal/blocks"
	"talentgate/internal/itemorder"
	"talentgate/internal/results"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/platform/sentinel"
	pstrings "talentgate/pkg/platform/strings"
	"talentgate/pkg/requestcontext"
)

// InvitationStore owns invitation records. Implementations return sentinel
// errors; the service translates them into domain errors.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	Update(ctx context.Context, inv *models.Invitation) error
}

// AssessmentStore owns assessment records. Create must fail with
// sentinel.ErrConflict when the candidate already has an assessment; that
// uniqueness constraint is what makes concurrent Start calls race-free.
type AssessmentStore interface {
	Create(ctx context.Context, a *models.Assessment) error
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error)
	FindByCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Assessment, error)
	Update(ctx context.Context, a *models.Assessment) error
}

// ResponseStore is the response ledger: one row per (assessment, item), upsert
// semantics, last write wins on value fields.
type ResponseStore interface {
	Upsert(ctx context.Context, r *models.ItemResponse) error
	ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]*models.ItemResponse, error)
}

// SurveyStore owns post-assessment surveys. Create must fail with
// sentinel.ErrConflict when one already exists for the assessment.
type SurveyStore interface {
	Create(ctx context.Context, s *models.Survey) error
}

// ScoreStore holds the score sets written by the scoring pipeline.
type ScoreStore interface {
	Save(ctx context.Context, set *models.ScoreSet) error
	FindByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.ScoreSet, error)
}

// CandidateDirectory mirrors the candidate's pipeline status to the external
// candidate system. Called inside lifecycle transactions so the mirror can
// never disagree with the invitation status.
type CandidateDirectory interface {
	SetStatus(ctx context.Context, candidateID id.CandidateID, status models.CandidateStatus) error
}

// StoreTx provides the transactional boundary for multi-row transitions.
// Implementations may wrap a database transaction or, in-memory, a sharded lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles the persistence ports the lifecycle service needs.
type Stores struct {
	Invitations InvitationStore
	Assessments AssessmentStore
	Responses   ResponseStore
	Surveys     SurveyStore
	Scores      ScoreStore
}

// Service orchestrates the assessment lifecycle.
type Service struct {
	stores    Stores
	tx        StoreTx
	directory CandidateDirectory
	auditor   audit.Publisher
	metrics   *assessmentmetrics.Metrics
	logger    *slog.Logger
}

type serviceConfig struct {
	tx        StoreTx
	directory CandidateDirectory
	auditor   audit.Publisher
	metrics   *assessmentmetrics.Metrics
	logger    *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithTx sets the transaction boundary (postgres-backed in production).
func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithDirectory sets the external candidate directory.
func WithDirectory(d CandidateDirectory) Option {
	return func(c *serviceConfig) { c.directory = d }
}

// WithAuditPublisher sets the best-effort audit publisher.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(c *serviceConfig) { c.auditor = p }
}

// WithMetrics sets the prometheus metrics collaborator.
func WithMetrics(m *assessmentmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

// NewService wires a lifecycle service. Omitted options fall back to in-memory
// locking, a no-op directory, and a no-op audit publisher, which is the right
// shape for unit tests.
func NewService(stores Stores, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = newShardedTx()
	}
	if cfg.directory == nil {
		cfg.directory = nopDirectory{}
	}
	if cfg.auditor == nil {
		cfg.auditor = audit.NopPublisher{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		stores:    stores,
		tx:        cfg.tx,
		directory: cfg.directory,
		auditor:   cfg.auditor,
		metrics:   cfg.metrics,
		logger:    cfg.logger,
	}
}

type nopDirectory struct{}

func (nopDirectory) SetStatus(context.Context, id.CandidateID, models.CandidateStatus) error {
	return nil
}

// Issue creates a pending invitation with a fresh unguessable token.
func (s *Service) Issue(ctx context.Context, candidateID id.CandidateID, jobRoleID string, ttl time.Duration) (*models.Invitation, error) {
	if candidateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "candidate id is required")
	}
	if jobRoleID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "job role id is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation ttl must be positive")
	}

	inv, err := models.NewInvitation(candidateID, jobRoleID, requestcontext.Now(ctx), ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invitation")
	}
	if err := s.stores.Invitations.Create(ctx, inv); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist invitation")
	}

	s.emit(ctx, audit.Event{
		Type:         audit.EventInvitationIssued,
		InvitationID: inv.ID.String(),
		CandidateID:  inv.CandidateID.String(),
	})
	return inv, nil
}

// OpenResult is the outcome of a candidate following their invitation link.
type OpenResult struct {
	Invitation *models.Invitation
	Expired    bool
}

// Open looks up the invitation, reconciles expiry, and records the first link
// open. Repeat calls are no-ops; an expired invitation is reported as an
// expiry notice, not an error.
func (s *Service) Open(ctx context.Context, token string) (*OpenResult, error) {
	started := time.Now()
	defer s.observeOpen(started)

	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	firstOpen := inv.LinkOpenedAt == nil
	changed := inv.RecordOpen(now)
	expired := inv.ReconcileExpiry(now)

	if changed || expired {
		if err := s.stores.Invitations.Update(ctx, inv); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update invitation")
		}
	}

	if firstOpen {
		s.incOpened()
		s.emit(ctx, audit.Event{
			Type:         audit.EventInvitationOpened,
			InvitationID: inv.ID.String(),
			CandidateID:  inv.CandidateID.String(),
		})
	}
	if expired {
		s.incExpired()
		s.emit(ctx, audit.Event{
			Type:         audit.EventInvitationExpired,
			InvitationID: inv.ID.String(),
			CandidateID:  inv.CandidateID.String(),
		})
	}

	return &OpenResult{Invitation: inv, Expired: inv.Status == models.StatusExpired}, nil
}

// Start creates the candidate's assessment, exactly once. Retried and
// concurrent calls for the same token converge on the same assessment
// identity; the store uniqueness constraint on the candidate backstops the
// in-transaction re-read.
func (s *Service) Start(ctx context.Context, token string) (id.AssessmentID, error) {
	started := time.Now()
	defer s.observeStart(started)

	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return id.AssessmentID{}, err
	}

	now := requestcontext.Now(ctx)
	if inv.ReconcileExpiry(now) {
		if err := s.stores.Invitations.Update(ctx, inv); err != nil {
			return id.AssessmentID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire invitation")
		}
		s.incExpired()
		s.emit(ctx, audit.Event{
			Type:         audit.EventInvitationExpired,
			InvitationID: inv.ID.String(),
			CandidateID:  inv.CandidateID.String(),
		})
	}
	if err := inv.CanStart(now); err != nil {
		return id.AssessmentID{}, translateState(err)
	}

	var assessmentID id.AssessmentID
	created := false
	err = s.tx.RunInTx(withTxToken(ctx, token), func(txCtx context.Context) error {
		// Re-read inside the transaction: the pre-checks above ran unlocked.
		current, err := s.stores.Invitations.FindByToken(txCtx, token)
		if err != nil {
			return err
		}
		if err := current.CanStart(requestcontext.Now(txCtx)); err != nil {
			return err
		}

		existing, err := s.stores.Assessments.FindByCandidate(txCtx, current.CandidateID)
		if err == nil {
			assessmentID = existing.ID
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		a := models.NewAssessment(current.CandidateID, current.ID, requestcontext.Now(txCtx))
		if err := s.stores.Assessments.Create(txCtx, a); err != nil {
			return err
		}
		current.MarkStarted()
		if err := s.stores.Invitations.Update(txCtx, current); err != nil {
			return err
		}
		if err := s.directory.SetStatus(txCtx, current.CandidateID, models.CandidateStatusInProgress); err != nil {
			return err
		}
		assessmentID = a.ID
		created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the creation race; the winner's row is the answer.
			existing, ferr := s.stores.Assessments.FindByCandidate(ctx, inv.CandidateID)
			if ferr == nil {
				return existing.ID, nil
			}
		}
		return id.AssessmentID{}, translateState(err)
	}

	if created {
		s.incStarted()
		s.emit(ctx, audit.Event{
			Type:         audit.EventAssessmentStarted,
			InvitationID: inv.ID.String(),
			CandidateID:  inv.CandidateID.String(),
			AssessmentID: assessmentID.String(),
		})
	}
	return assessmentID, nil
}

// ResponseInput carries one item submission.
type ResponseInput struct {
	ItemID         string
	ItemType       string
	Payload        json.RawMessage
	ResponseTimeMs *int
	Confidence     *int
}

// RecordResponse upserts the response keyed by (assessment, item). Replaying
// the same submission overwrites value fields and never duplicates the row.
func (s *Service) RecordResponse(ctx context.Context, token string, in ResponseInput) (*models.ItemResponse, error) {
	started := time.Now()
	defer s.observeRecordResponse(started)

	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	a, err := s.findAssessment(ctx, inv.CandidateID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	r := &models.ItemResponse{
		AssessmentID:   a.ID,
		ItemID:         in.ItemID,
		ItemType:       in.ItemType,
		Payload:        in.Payload,
		ResponseTimeMs: in.ResponseTimeMs,
		Confidence:     in.Confidence,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	if r.ItemType == "" {
		r.ItemType = blocks.ItemType(r.ItemID)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if err := s.stores.Responses.Upsert(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record response")
	}

	s.incResponse()
	s.emit(ctx, audit.Event{
		Type:         audit.EventResponseRecorded,
		CandidateID:  inv.CandidateID.String(),
		AssessmentID: a.ID.String(),
		ItemID:       r.ItemID,
	})
	return r, nil
}

// Complete finishes the assessment and derives its duration. Calling it again
// succeeds and returns the originally computed duration unchanged.
func (s *Service) Complete(ctx context.Context, token string) (int, error) {
	started := time.Now()
	defer s.observeComplete(started)

	var (
		duration    int
		alreadyDone bool
		candidateID id.CandidateID
		resultID    id.AssessmentID
	)
	err := s.tx.RunInTx(withTxToken(ctx, token), func(txCtx context.Context) error {
		inv, err := s.stores.Invitations.FindByToken(txCtx, token)
		if err != nil {
			return err
		}
		a, err := s.stores.Assessments.FindByCandidate(txCtx, inv.CandidateID)
		if err != nil {
			return err
		}
		candidateID = inv.CandidateID
		resultID = a.ID

		if a.Completed() {
			duration = *a.DurationMinutes
			alreadyDone = true
			return nil
		}

		duration = a.ApplyCompletion(requestcontext.Now(txCtx))
		if err := s.stores.Assessments.Update(txCtx, a); err != nil {
			return err
		}
		inv.MarkCompleted()
		if err := s.stores.Invitations.Update(txCtx, inv); err != nil {
			return err
		}
		return s.directory.SetStatus(txCtx, candidateID, models.CandidateStatusReadyForScoring)
	})
	if err != nil {
		return 0, translateState(err)
	}

	if !alreadyDone {
		s.incCompleted()
		s.emit(ctx, audit.Event{
			Type:         audit.EventAssessmentCompleted,
			CandidateID:  candidateID.String(),
			AssessmentID: resultID.String(),
		})
	}
	return duration, nil
}

// SubmitSurvey records the one-shot post-assessment survey.
func (s *Service) SubmitSurvey(ctx context.Context, token string, assessmentID id.AssessmentID, ratings map[string]int, feedback string) error {
	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return err
	}
	a, err := s.findAssessment(ctx, inv.CandidateID)
	if err != nil {
		return err
	}
	if a.ID != assessmentID {
		return dErrors.New(dErrors.CodeValidation, "assessment does not match invitation")
	}

	survey := &models.Survey{
		AssessmentID: assessmentID,
		Ratings:      ratings,
		Feedback:     feedback,
		SubmittedAt:  requestcontext.Now(ctx),
	}
	if err := survey.Validate(); err != nil {
		return err
	}

	if err := s.stores.Surveys.Create(ctx, survey); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "survey already submitted for this assessment")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record survey")
	}

	s.incSurvey()
	s.emit(ctx, audit.Event{
		Type:         audit.EventSurveySubmitted,
		CandidateID:  inv.CandidateID.String(),
		AssessmentID: assessmentID.String(),
	})
	return nil
}

// BlockItems returns the block definition and the candidate's stable item
// order. The order is derived from the candidate identity, never stored, so
// every reload sees the same permutation.
func (s *Service) BlockItems(ctx context.Context, token string, blockIndex int) (blocks.Block, []blocks.Item, error) {
	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return blocks.Block{}, nil, err
	}
	block, err := blocks.ByIndex(blockIndex)
	if err != nil {
		return blocks.Block{}, nil, err
	}
	items, err := blocks.Items(blockIndex)
	if err != nil {
		return blocks.Block{}, nil, err
	}
	ordered := itemorder.ForCandidate(inv.CandidateID.String(), blockIndex, items)
	return block, ordered, nil
}

// SaveScores ingests a score set from the scoring pipeline.
func (s *Service) SaveScores(ctx context.Context, set *models.ScoreSet) error {
	if set == nil || set.AssessmentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "assessment id is required")
	}
	if _, err := s.stores.Assessments.FindByID(ctx, set.AssessmentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	// Scoring pipelines occasionally emit duplicate findings across runs.
	set.RedFlags = pstrings.DedupeAndTrim(set.RedFlags)
	set.InterviewGuide = pstrings.DedupeAndTrim(set.InterviewGuide)
	set.DevelopmentPlan = pstrings.DedupeAndTrim(set.DevelopmentPlan)
	if set.ScoredAt.IsZero() {
		set.ScoredAt = requestcontext.Now(ctx)
	}
	if err := s.stores.Scores.Save(ctx, set); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save scores")
	}
	return nil
}

// ProjectResults loads the raw result set and filters it for the viewer's
// role. Projection itself never fails; an unknown role yields the minimal
// payload rather than an error.
func (s *Service) ProjectResults(ctx context.Context, role access.Role, assessmentID id.AssessmentID) (results.Projected, error) {
	a, err := s.stores.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return results.Projected{}, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return results.Projected{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}

	responses, err := s.stores.Responses.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return results.Projected{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load responses")
	}

	set, err := s.stores.Scores.FindByAssessment(ctx, assessmentID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return results.Projected{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scores")
	}

	return results.Project(role, buildRaw(a, responses, set)), nil
}

func buildRaw(a *models.Assessment, responses []*models.ItemResponse, set *models.ScoreSet) results.Raw {
	raw := results.Raw{
		AssessmentID: a.ID,
		CandidateID:  a.CandidateID,
	}
	if a.DurationMinutes != nil {
		raw.DurationMinutes = *a.DurationMinutes
	}
	for _, r := range responses {
		raw.Transcripts = append(raw.Transcripts, results.TranscriptEntry{
			ItemID:   r.ItemID,
			ItemType: r.ItemType,
			Response: string(r.Payload),
		})
	}
	if set != nil {
		raw.CompositeScores = set.CompositeScores
		raw.RedFlags = set.RedFlags
		raw.Predictions = set.Predictions
		raw.InterviewGuide = set.InterviewGuide
		raw.DevelopmentPlan = set.DevelopmentPlan
		raw.Notes = set.Notes
		for _, sub := range set.SubtestScores {
			raw.SubtestScores = append(raw.SubtestScores, results.SubtestScore{
				Construct:  sub.Construct,
				Raw:        sub.Raw,
				Percentile: sub.Percentile,
			})
		}
	}
	return raw
}

func (s *Service) findInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation token is required")
	}
	inv, err := s.stores.Invitations.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invitation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invitation")
	}
	return inv, nil
}

func (s *Service) findAssessment(ctx context.Context, candidateID id.CandidateID) (*models.Assessment, error) {
	a, err := s.stores.Assessments.FindByCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found for invitation")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	return a, nil
}

// translateState maps sentinel facts from stores and model checks onto the
// client-facing error taxonomy.
func translateState(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "invitation not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeExpired, "invitation has expired")
	case errors.Is(err, sentinel.ErrAlreadyCompleted):
		return dErrors.New(dErrors.CodeAlreadyCompleted, "assessment already completed")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "conflicting concurrent update")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "lifecycle operation failed")
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	s.auditor.Emit(ctx, event)
}

func (s *Service) incOpened() {
	if s.metrics != nil {
		s.metrics.InvitationsOpened.Inc()
	}
}

func (s *Service) incExpired() {
	if s.metrics != nil {
		s.metrics.InvitationsExpired.Inc()
	}
}

func (s *Service) incStarted() {
	if s.metrics != nil {
		s.metrics.AssessmentsStarted.Inc()
	}
}

func (s *Service) incCompleted() {
	if s.metrics != nil {
		s.metrics.AssessmentsCompleted.Inc()
	}
}

func (s *Service) incResponse() {
	if s.metrics != nil {
		s.metrics.ResponsesRecorded.Inc()
	}
}

func (s *Service) incSurvey() {
	if s.metrics != nil {
		s.metrics.SurveysSubmitted.Inc()
	}
}

func (s *Service) observeOpen(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOpen(start)
	}
}

func (s *Service) observeStart(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStart(start)
	}
}

func (s *Service) observeRecordResponse(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRecordResponse(start)
	}
}

func (s *Service) observeComplete(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveComplete(start)
	}
}
