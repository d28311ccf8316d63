package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"talentgate/internal/assessment/models"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
	"talentgate/pkg/platform/tx"
)

// dbtx is the slice of database/sql shared by *sql.DB and *sql.Tx. Stores pick
// the transaction from context when one is running, so the same store instance
// works inside and outside a lifecycle transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conn(ctx context.Context, db *sql.DB) dbtx {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresInvitations persists invitations in PostgreSQL.
type PostgresInvitations struct {
	db *sql.DB
}

func NewPostgresInvitations(db *sql.DB) *PostgresInvitations {
	return &PostgresInvitations{db: db}
}

func (s *PostgresInvitations) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, token, candidate_id, job_role_id, status, expires_at, link_opened_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inv.ID), inv.Token, uuid.UUID(inv.CandidateID), inv.JobRoleID,
		string(inv.Status), inv.ExpiresAt, inv.LinkOpenedAt, inv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (s *PostgresInvitations) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `
		SELECT id, token, candidate_id, job_role_id, status, expires_at, link_opened_at, created_at
		FROM invitations
		WHERE token = $1
	`
	row := conn(ctx, s.db).QueryRowContext(ctx, query, token)

	var (
		inv          models.Invitation
		invID        uuid.UUID
		candidateID  uuid.UUID
		status       string
		linkOpenedAt sql.NullTime
	)
	err := row.Scan(&invID, &inv.Token, &candidateID, &inv.JobRoleID, &status, &inv.ExpiresAt, &linkOpenedAt, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find invitation by token: %w", err)
	}

	inv.ID = id.InvitationID(invID)
	inv.CandidateID = id.CandidateID(candidateID)
	inv.Status, err = models.ParseInvitationStatus(status)
	if err != nil {
		return nil, fmt.Errorf("find invitation by token: %w", err)
	}
	if linkOpenedAt.Valid {
		t := linkOpenedAt.Time
		inv.LinkOpenedAt = &t
	}
	return &inv, nil
}

func (s *PostgresInvitations) Update(ctx context.Context, inv *models.Invitation) error {
	query := `
		UPDATE invitations
		SET status = $2, link_opened_at = $3
		WHERE token = $1
	`
	result, err := conn(ctx, s.db).ExecContext(ctx, query, inv.Token, string(inv.Status), inv.LinkOpenedAt)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresAssessments persists assessments in PostgreSQL. The unique index on
// candidate_id is the authoritative one-assessment-per-candidate guard.
type PostgresAssessments struct {
	db *sql.DB
}

func NewPostgresAssessments(db *sql.DB) *PostgresAssessments {
	return &PostgresAssessments{db: db}
}

func (s *PostgresAssessments) Create(ctx context.Context, a *models.Assessment) error {
	query := `
		INSERT INTO assessments (id, candidate_id, invitation_id, started_at, completed_at, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.CandidateID), uuid.UUID(a.InvitationID),
		a.StartedAt, a.CompletedAt, a.DurationMinutes,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

func (s *PostgresAssessments) FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	query := `
		SELECT id, candidate_id, invitation_id, started_at, completed_at, duration_minutes
		FROM assessments
		WHERE id = $1
	`
	return s.scanOne(conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(assessmentID)))
}

func (s *PostgresAssessments) FindByCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Assessment, error) {
	query := `
		SELECT id, candidate_id, invitation_id, started_at, completed_at, duration_minutes
		FROM assessments
		WHERE candidate_id = $1
	`
	return s.scanOne(conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(candidateID)))
}

func (s *PostgresAssessments) scanOne(row *sql.Row) (*models.Assessment, error) {
	var (
		a            models.Assessment
		assessmentID uuid.UUID
		candidateID  uuid.UUID
		invitationID uuid.UUID
		completedAt  sql.NullTime
		duration     sql.NullInt64
	)
	err := row.Scan(&assessmentID, &candidateID, &invitationID, &a.StartedAt, &completedAt, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assessment: %w", err)
	}

	a.ID = id.AssessmentID(assessmentID)
	a.CandidateID = id.CandidateID(candidateID)
	a.InvitationID = id.InvitationID(invitationID)
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		a.DurationMinutes = &d
	}
	return &a, nil
}

func (s *PostgresAssessments) Update(ctx context.Context, a *models.Assessment) error {
	query := `
		UPDATE assessments
		SET completed_at = $2, duration_minutes = $3
		WHERE id = $1
	`
	result, err := conn(ctx, s.db).ExecContext(ctx, query, uuid.UUID(a.ID), a.CompletedAt, a.DurationMinutes)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresResponses persists the response ledger. Upsert relies on the
// composite primary key (assessment_id, item_id); submitted_at survives
// resubmissions because the conflict branch never touches it.
type PostgresResponses struct {
	db *sql.DB
}

func NewPostgresResponses(db *sql.DB) *PostgresResponses {
	return &PostgresResponses{db: db}
}

func (s *PostgresResponses) Upsert(ctx context.Context, r *models.ItemResponse) error {
	query := `
		INSERT INTO item_responses (assessment_id, item_id, item_type, payload, response_time_ms, confidence, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (assessment_id, item_id) DO UPDATE SET
			item_type = EXCLUDED.item_type,
			payload = EXCLUDED.payload,
			response_time_ms = EXCLUDED.response_time_ms,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`
	_, err := conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.AssessmentID), r.ItemID, r.ItemType, []byte(r.Payload),
		r.ResponseTimeMs, r.Confidence, r.SubmittedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (s *PostgresResponses) ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]*models.ItemResponse, error) {
	query := `
		SELECT assessment_id, item_id, item_type, payload, response_time_ms, confidence, submitted_at, updated_at
		FROM item_responses
		WHERE assessment_id = $1
		ORDER BY item_id
	`
	rows, err := conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(assessmentID))
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []*models.ItemResponse
	for rows.Next() {
		var (
			r            models.ItemResponse
			aID          uuid.UUID
			payload      []byte
			responseTime sql.NullInt64
			confidence   sql.NullInt64
		)
		if err := rows.Scan(&aID, &r.ItemID, &r.ItemType, &payload, &responseTime, &confidence, &r.SubmittedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.AssessmentID = id.AssessmentID(aID)
		r.Payload = json.RawMessage(payload)
		if responseTime.Valid {
			v := int(responseTime.Int64)
			r.ResponseTimeMs = &v
		}
		if confidence.Valid {
			v := int(confidence.Int64)
			r.Confidence = &v
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return out, nil
}

// PostgresSurveys persists post-assessment surveys.
type PostgresSurveys struct {
	db *sql.DB
}

func NewPostgresSurveys(db *sql.DB) *PostgresSurveys {
	return &PostgresSurveys{db: db}
}

func (s *PostgresSurveys) Create(ctx context.Context, survey *models.Survey) error {
	ratings, err := json.Marshal(survey.Ratings)
	if err != nil {
		return fmt.Errorf("marshal survey ratings: %w", err)
	}
	query := `
		INSERT INTO surveys (assessment_id, ratings, feedback, submitted_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(survey.AssessmentID), ratings, survey.Feedback, survey.SubmittedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create survey: %w", err)
	}
	return nil
}

// PostgresScores persists the score sets written by the scoring pipeline.
// Save overwrites: re-scoring an assessment is a supported operation.
type PostgresScores struct {
	db *sql.DB
}

func NewPostgresScores(db *sql.DB) *PostgresScores {
	return &PostgresScores{db: db}
}

func (s *PostgresScores) Save(ctx context.Context, set *models.ScoreSet) error {
	composite, err := json.Marshal(set.CompositeScores)
	if err != nil {
		return fmt.Errorf("marshal composite scores: %w", err)
	}
	subtests, err := json.Marshal(set.SubtestScores)
	if err != nil {
		return fmt.Errorf("marshal subtest scores: %w", err)
	}
	predictions, err := json.Marshal(set.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}

	query := `
		INSERT INTO score_sets (assessment_id, composite_scores, subtest_scores, red_flags, predictions, interview_guide, development_plan, notes, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (assessment_id) DO UPDATE SET
			composite_scores = EXCLUDED.composite_scores,
			subtest_scores = EXCLUDED.subtest_scores,
			red_flags = EXCLUDED.red_flags,
			predictions = EXCLUDED.predictions,
			interview_guide = EXCLUDED.interview_guide,
			development_plan = EXCLUDED.development_plan,
			notes = EXCLUDED.notes,
			scored_at = EXCLUDED.scored_at
	`
	_, err = conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(set.AssessmentID), composite, subtests, pq.Array(set.RedFlags),
		predictions, pq.Array(set.InterviewGuide), pq.Array(set.DevelopmentPlan),
		set.Notes, set.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("save score set: %w", err)
	}
	return nil
}

func (s *PostgresScores) FindByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.ScoreSet, error) {
	query := `
		SELECT assessment_id, composite_scores, subtest_scores, red_flags, predictions, interview_guide, development_plan, notes, scored_at
		FROM score_sets
		WHERE assessment_id = $1
	`
	row := conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(assessmentID))

	var (
		set         models.ScoreSet
		aID         uuid.UUID
		composite   []byte
		subtests    []byte
		predictions []byte
	)
	err := row.Scan(&aID, &composite, &subtests, pq.Array(&set.RedFlags), &predictions,
		pq.Array(&set.InterviewGuide), pq.Array(&set.DevelopmentPlan), &set.Notes, &set.ScoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find score set: %w", err)
	}

	set.AssessmentID = id.AssessmentID(aID)
	if err := json.Unmarshal(composite, &set.CompositeScores); err != nil {
		return nil, fmt.Errorf("unmarshal composite scores: %w", err)
	}
	if err := json.Unmarshal(subtests, &set.SubtestScores); err != nil {
		return nil, fmt.Errorf("unmarshal subtest scores: %w", err)
	}
	if err := json.Unmarshal(predictions, &set.Predictions); err != nil {
		return nil, fmt.Errorf("unmarshal predictions: %w", err)
	}
	return &set, nil
}
