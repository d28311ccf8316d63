// Package handler exposes the assessment lifecycle over HTTP. Candidate
// routes are token-authenticated by the invitation itself; staff routes
// require a bearer token and go through the access matrix downstream.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"talentgate/internal/access"
	"talentgate/internal/assessment/models"
	"talentgate/internal/assessment/service"
	"talentgate/internal/blocks"
	"talentgate/internal/platform/middleware"
	"talentgate/internal/results"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/platform/httputil"
	"talentgate/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	Issue(ctx context.Context, candidateID id.CandidateID, jobRoleID string, ttl time.Duration) (*models.Invitation, error)
	Open(ctx context.Context, token string) (*service.OpenResult, error)
	Start(ctx context.Context, token string) (id.AssessmentID, error)
	BlockItems(ctx context.Context, token string, blockIndex int) (blocks.Block, []blocks.Item, error)
	RecordResponse(ctx context.Context, token string, in service.ResponseInput) (*models.ItemResponse, error)
	Complete(ctx context.Context, token string) (int, error)
	SubmitSurvey(ctx context.Context, token string, assessmentID id.AssessmentID, ratings map[string]int, feedback string) error
	SaveScores(ctx context.Context, set *models.ScoreSet) error
	ProjectResults(ctx context.Context, role access.Role, assessmentID id.AssessmentID) (results.Projected, error)
}

// Handler handles assessment lifecycle endpoints.
type Handler struct {
	logger        *slog.Logger
	svc           Service
	jwtValidator  middleware.JWTValidator
	invitationTTL time.Duration
}

// New creates an assessment Handler.
func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, invitationTTL time.Duration) *Handler {
	return &Handler{
		logger:        logger,
		svc:           svc,
		jwtValidator:  jwtValidator,
		invitationTTL: invitationTTL,
	}
}

// Register mounts the lifecycle routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	// Candidate-facing routes. The invitation token in the path is the only
	// credential a candidate has.
	router.Post("/invitations/{token}/open", h.handleOpen)
	router.Post("/invitations/{token}/start", h.handleStart)
	router.Get("/invitations/{token}/blocks/{index}/items", h.handleBlockItems)
	router.Put("/invitations/{token}/responses/{itemID}", h.handleRecordResponse)
	router.Post("/invitations/{token}/complete", h.handleComplete)
	router.Post("/invitations/{token}/survey", h.handleSurvey)

	// Staff routes.
	router.Group(func(staff chi.Router) {
		staff.Use(middleware.RequireStaff(h.jwtValidator, h.logger))
		staff.Post("/invitations", h.handleIssue)
		staff.Get("/results/{assessmentID}", h.handleResults)
		staff.Put("/results/{assessmentID}/scores", h.handleSaveScores)
	})

	r.Mount("/", router)
}

type issueRequest struct {
	CandidateID string `json:"candidate_id"`
	JobRoleID   string `json:"job_role_id"`
	TTLHours    int    `json:"ttl_hours,omitempty"`
}

type invitationResponse struct {
	InvitationID string     `json:"invitation_id"`
	Token        string     `json:"token"`
	CandidateID  string     `json:"candidate_id"`
	JobRoleID    string     `json:"job_role_id"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LinkOpenedAt *time.Time `json:"link_opened_at,omitempty"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	candidateID, err := id.ParseCandidateID(req.CandidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ttl := h.invitationTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	inv, err := h.svc.Issue(ctx, candidateID, req.JobRoleID, ttl)
	if err != nil {
		h.logFailure(ctx, "issue invitation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

type openResponse struct {
	Status       string     `json:"status"`
	Expired      bool       `json:"expired"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LinkOpenedAt *time.Time `json:"link_opened_at,omitempty"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.svc.Open(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logFailure(ctx, "open invitation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, openResponse{
		Status:       string(result.Invitation.Status),
		Expired:      result.Expired,
		ExpiresAt:    result.Invitation.ExpiresAt,
		LinkOpenedAt: result.Invitation.LinkOpenedAt,
	})
}

type startResponse struct {
	AssessmentID string `json:"assessment_id"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := h.svc.Start(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logFailure(ctx, "start assessment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, startResponse{AssessmentID: assessmentID.String()})
}

type blockResponse struct {
	Index            int      `json:"index"`
	Name             string   `json:"name"`
	Constructs       []string `json:"constructs"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

type blockItemsResponse struct {
	Block blockResponse  `json:"block"`
	Items []itemResponse `json:"items"`
}

type itemResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (h *Handler) handleBlockItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "block index must be an integer"))
		return
	}

	block, items, err := h.svc.BlockItems(ctx, chi.URLParam(r, "token"), index)
	if err != nil {
		h.logFailure(ctx, "list block items failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := blockItemsResponse{
		Block: blockResponse{
			Index:            block.Index,
			Name:             block.Name,
			Constructs:       block.Constructs,
			EstimatedMinutes: block.EstimatedMinutes,
		},
		Items: make([]itemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse{ID: item.ID, Type: item.Type})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type recordResponseRequest struct {
	ItemType       string          `json:"item_type,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	ResponseTimeMs *int            `json:"response_time_ms,omitempty"`
	Confidence     *int            `json:"confidence,omitempty"`
}

type recordResponseAck struct {
	ItemID      string    `json:"item_id"`
	ItemType    string    `json:"item_type"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) handleRecordResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	recorded, err := h.svc.RecordResponse(ctx, chi.URLParam(r, "token"), service.ResponseInput{
		ItemID:         chi.URLParam(r, "itemID"),
		ItemType:       req.ItemType,
		Payload:        req.Payload,
		ResponseTimeMs: req.ResponseTimeMs,
		Confidence:     req.Confidence,
	})
	if err != nil {
		h.logFailure(ctx, "record response failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordResponseAck{
		ItemID:      recorded.ItemID,
		ItemType:    recorded.ItemType,
		SubmittedAt: recorded.SubmittedAt,
		UpdatedAt:   recorded.UpdatedAt,
	})
}

type completeResponse struct {
	DurationMinutes int `json:"duration_minutes"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	duration, err := h.svc.Complete(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logFailure(ctx, "complete assessment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, completeResponse{DurationMinutes: duration})
}

type surveyRequest struct {
	AssessmentID string         `json:"assessment_id"`
	Ratings      map[string]int `json:"ratings"`
	Feedback     string         `json:"feedback,omitempty"`
}

func (h *Handler) handleSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req surveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	assessmentID, err := id.ParseAssessmentID(req.AssessmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.SubmitSurvey(ctx, chi.URLParam(r, "token"), assessmentID, req.Ratings, req.Feedback); err != nil {
		h.logFailure(ctx, "submit survey failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	role := access.Role(requestcontext.ViewerRole(ctx))
	projected, err := h.svc.ProjectResults(ctx, role, assessmentID)
	if err != nil {
		h.logFailure(ctx, "project results failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projected)
}

type scoresRequest struct {
	CompositeScores map[string]float64 `json:"composite_scores"`
	SubtestScores   []subtestScore     `json:"subtest_scores,omitempty"`
	RedFlags        []string           `json:"red_flags,omitempty"`
	Predictions     map[string]float64 `json:"predictions,omitempty"`
	InterviewGuide  []string           `json:"interview_guide,omitempty"`
	DevelopmentPlan []string           `json:"development_plan,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

type subtestScore struct {
	Construct  string  `json:"construct"`
	Raw        float64 `json:"raw"`
	Percentile float64 `json:"percentile"`
}

func (h *Handler) handleSaveScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req scoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	set := &models.ScoreSet{
		AssessmentID:    assessmentID,
		CompositeScores: req.CompositeScores,
		RedFlags:        req.RedFlags,
		Predictions:     req.Predictions,
		InterviewGuide:  req.InterviewGuide,
		DevelopmentPlan: req.DevelopmentPlan,
		Notes:           req.Notes,
	}
	for _, sub := range req.SubtestScores {
		set.SubtestScores = append(set.SubtestScores, models.SubtestScore{
			Construct:  sub.Construct,
			Raw:        sub.Raw,
			Percentile: sub.Percentile,
		})
	}

	if err := h.svc.SaveScores(ctx, set); err != nil {
		h.logFailure(ctx, "save scores failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toInvitationResponse(inv *models.Invitation) invitationResponse {
	return invitationResponse{
		InvitationID: inv.ID.String(),
		Token:        inv.Token,
		CandidateID:  inv.CandidateID.String(),
		JobRoleID:    inv.JobRoleID,
		Status:       string(inv.Status),
		ExpiresAt:    inv.ExpiresAt,
		LinkOpenedAt: inv.LinkOpenedAt,
	}
}

// logFailure logs at warn for client-caused errors and error for the rest.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}
