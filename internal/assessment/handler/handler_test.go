package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentgate/internal/assessment/handler"
	"talentgate/internal/assessment/service"
	"talentgate/internal/assessment/store"
	jwttoken "talentgate/internal/jwt_token"
	id "talentgate/pkg/domain"
)

type testEnv struct {
	server *httptest.Server
	jwt    *jwttoken.JWTService
	stores service.Stores
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stores := service.Stores{
		Invitations: store.NewMemoryInvitations(),
		Assessments: store.NewMemoryAssessments(),
		Responses:   store.NewMemoryResponses(),
		Surveys:     store.NewMemorySurveys(),
		Scores:      store.NewMemoryScores(),
	}
	svc := service.NewService(stores)
	jwtSvc := jwttoken.NewJWTService("test-signing-key", "talentgate", "talentgate-internal")

	h := handler.New(svc, slog.New(slog.DiscardHandler), jwtSvc, 7*24*time.Hour)
	router := chi.NewRouter()
	h.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, jwt: jwtSvc, stores: stores}
}

func (e *testEnv) staffToken(t *testing.T, role string) string {
	t.Helper()
	token, err := e.jwt.GenerateStaffToken("staff-1", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) issue(t *testing.T) (token string, candidateID string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/invitations", e.staffToken(t, "admin"), map[string]any{
		"candidate_id": id.NewCandidateID().String(),
		"job_role_id":  "role-backend",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	return body["token"].(string), body["candidate_id"].(string)
}

func TestIssue_RequiresStaffToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/invitations", "", map[string]any{
		"candidate_id": id.NewCandidateID().String(),
		"job_role_id":  "role-backend",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLifecycle_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodPost, "/invitations/"+token+"/open", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opened := decode[map[string]any](t, resp)
	assert.Equal(t, "OPENED", opened["status"])
	assert.Equal(t, false, opened["expired"])

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[map[string]string](t, resp)
	assessmentID := started["assessment_id"]
	require.NotEmpty(t, assessmentID)

	resp = env.do(t, http.MethodGet, "/invitations/"+token+"/blocks/0/items", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blockBody := decode[struct {
		Block struct {
			Name string `json:"name"`
		} `json:"block"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, resp)
	assert.Equal(t, "Cognitive Reasoning", blockBody.Block.Name)
	assert.Len(t, blockBody.Items, 6)

	resp = env.do(t, http.MethodPut, "/invitations/"+token+"/responses/cog-01", "", map[string]any{
		"payload": map[string]string{"choice": "B"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ack := decode[map[string]any](t, resp)
	assert.Equal(t, "cog-01", ack["item_id"])
	assert.Equal(t, "multiple_choice", ack["item_type"])

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/complete", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/survey", "", map[string]any{
		"assessment_id": assessmentID,
		"ratings":       map[string]int{"clarity": 4},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestOpen_UnknownTokenIs404(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/invitations/bogus/open", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "not_found", body["error"])
}

func TestStart_RetryReturnsSameAssessmentID(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[map[string]string](t, resp)

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[map[string]string](t, resp)

	assert.Equal(t, first["assessment_id"], second["assessment_id"])
}

func TestRecordResponse_InvalidPayloadIs400(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/invitations/"+token+"/responses/cog-01", "", map[string]any{
		"payload": nil,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSurvey_SecondSubmissionIs409(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[map[string]string](t, resp)

	body := map[string]any{
		"assessment_id": started["assessment_id"],
		"ratings":       map[string]int{"clarity": 5},
	}
	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/survey", "", body)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/survey", "", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResults_RoleFiltersSections(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodPost, "/invitations/"+token+"/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[map[string]string](t, resp)
	assessmentID := started["assessment_id"]

	resp = env.do(t, http.MethodPost, "/invitations/"+token+"/complete", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/results/%s/scores", assessmentID), env.staffToken(t, "admin"), map[string]any{
		"composite_scores": map[string]float64{"overall": 71.5},
		"red_flags":        []string{"inconsistent timing"},
		"notes":            "strong debugging",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/results/"+assessmentID, env.staffToken(t, "admin"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminView := decode[map[string]any](t, resp)
	assert.Contains(t, adminView, "red_flags")
	assert.Contains(t, adminView, "notes")

	resp = env.do(t, http.MethodGet, "/results/"+assessmentID, env.staffToken(t, "observer"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	observerView := decode[map[string]any](t, resp)
	assert.Contains(t, observerView, "composite_scores")
	assert.NotContains(t, observerView, "red_flags")
	assert.NotContains(t, observerView, "notes")
	assert.NotContains(t, observerView, "transcripts")

	// Unknown role degrades to the minimal payload instead of erroring.
	resp = env.do(t, http.MethodGet, "/results/"+assessmentID, env.staffToken(t, "intern"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unknownView := decode[map[string]any](t, resp)
	assert.Contains(t, unknownView, "assessment_id")
	assert.Contains(t, unknownView, "duration_minutes")
	assert.NotContains(t, unknownView, "composite_scores")
	assert.NotContains(t, unknownView, "capabilities")
}

func TestResults_RequiresStaffToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/results/"+id.NewAssessmentID().String(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBlockItems_UnknownIndexIs404(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.issue(t)

	resp := env.do(t, http.MethodGet, "/invitations/"+token+"/blocks/7/items", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
