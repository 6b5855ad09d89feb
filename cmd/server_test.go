package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysch/matchd/internal/match"
	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/store"
)

type fakeSchools struct {
	schools    []model.School
	lastFilter model.SchoolFilters
	getErr     error
}

func (f *fakeSchools) Fetch(ctx context.Context, filters model.SchoolFilters) ([]model.School, error) {
	f.lastFilter = filters
	return f.schools, nil
}

func (f *fakeSchools) Get(ctx context.Context, id string) (*model.School, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.schools {
		if f.schools[i].ID == id {
			return &f.schools[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeMatcher struct {
	session *model.MatchSession
	err     error
	userID  string
	inputs  model.MatchInputs
}

func (f *fakeMatcher) Run(ctx context.Context, userID string, inputs model.MatchInputs) (*model.MatchSession, error) {
	f.userID = userID
	f.inputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeSessions struct {
	sessions  []model.MatchSession
	lastUser  string
	lastLimit int
}

func (f *fakeSessions) ListMatchSessions(ctx context.Context, userID string, limit int) ([]model.MatchSession, error) {
	f.lastUser = userID
	f.lastLimit = limit
	return f.sessions, nil
}

func testServer() (*server, *fakeSchools, *fakeMatcher, *fakeSessions) {
	sc := &fakeSchools{schools: []model.School{
		{ID: "s1", Name: "Bayside Flyers", TrustTier: model.TierVerified},
	}}
	m := &fakeMatcher{session: &model.MatchSession{
		ID:       "sess-1",
		Rankings: []model.SchoolRanking{{SchoolID: "s1", Score: 90, Reason: "fit"}},
		Debrief:  "One strong option.",
	}}
	ls := &fakeSessions{}
	return &server{schools: sc, matcher: m, sessions: ls}, sc, m, ls
}

func doRequest(t *testing.T, s *server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	newRouter(s).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListSchoolsParsesFilters(t *testing.T) {
	s, sc, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet,
		"/api/schools?search=bay&programs=PPL,IR&tiers=Verified&budget_max=15000&has_g1000=true&lat=37.77&lng=-122.41&radius=50", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bay", sc.lastFilter.Search)
	assert.Equal(t, []model.ProgramType{model.ProgramPPL, model.ProgramIR}, sc.lastFilter.Programs)
	assert.Equal(t, []model.TrustTier{model.TierVerified}, sc.lastFilter.TrustTiers)
	require.NotNil(t, sc.lastFilter.BudgetMax)
	assert.InDelta(t, 15000.0, *sc.lastFilter.BudgetMax, 1e-9)
	require.NotNil(t, sc.lastFilter.HasG1000)
	assert.True(t, *sc.lastFilter.HasG1000)
	require.NotNil(t, sc.lastFilter.Location)
	assert.InDelta(t, 50.0, sc.lastFilter.Location.RadiusKm, 1e-9)
}

func TestListSchoolsRejectsBadParams(t *testing.T) {
	s, _, _, _ := testServer()

	rec := doRequest(t, s, http.MethodGet, "/api/schools?budget_max=cheap", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/schools?lat=37.77&radius=50", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "partial geo params are rejected")
}

func TestGetSchoolNotFound(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet, "/api/schools/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSchool(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet, "/api/schools/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.School
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Bayside Flyers", got.Name)
}

func TestRecommendations(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet, "/api/schools/s1/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		SchoolID        string   `json:"schoolId"`
		CurrentTier     string   `json:"currentTier"`
		Recommendations []string `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "s1", got.SchoolID)
	assert.Equal(t, string(model.TierUnverified), got.CurrentTier, "tier is derived from signals, not the stored column")
	assert.NotEmpty(t, got.Recommendations)
}

func TestMatchSuccess(t *testing.T) {
	s, _, m, _ := testServer()
	rec := doRequest(t, s, http.MethodPost, "/api/match",
		`{"userId":"u1","maxBudget":15000,"trainingGoals":["PPL"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", m.userID)
	assert.InDelta(t, 15000.0, m.inputs.MaxBudget, 1e-9)
	assert.Equal(t, []model.ProgramType{model.ProgramPPL}, m.inputs.TrainingGoals)

	var got model.MatchSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sess-1", got.ID)
}

func TestMatchBadBody(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodPost, "/api/match", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid inputs", match.ErrInvalidInputs, http.StatusBadRequest},
		{"no schools", match.ErrNoSchools, http.StatusNotFound},
		{"no candidates", &match.NoCandidatesError{}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, m, _ := testServer()
			m.err = tc.err
			rec := doRequest(t, s, http.MethodPost, "/api/match",
				`{"maxBudget":15000,"trainingGoals":["PPL"]}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestMatchNoCandidatesIncludesDiagnostics(t *testing.T) {
	s, _, m, _ := testServer()
	m.err = &match.NoCandidatesError{Diagnostics: match.Diagnostics{
		TotalSchools:    3,
		MinBudgetNeeded: 25000,
	}}

	rec := doRequest(t, s, http.MethodPost, "/api/match",
		`{"maxBudget":10000,"trainingGoals":["PPL"]}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var got struct {
		Diagnostics match.Diagnostics `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Diagnostics.TotalSchools)
	assert.InDelta(t, 25000.0, got.Diagnostics.MinBudgetNeeded, 1e-9)
}

func TestListMatches(t *testing.T) {
	s, _, _, ls := testServer()
	ls.sessions = []model.MatchSession{{ID: "sess-1", UserID: "u1"}}

	rec := doRequest(t, s, http.MethodGet, "/api/matches?user=u1&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", ls.lastUser)
	assert.Equal(t, 5, ls.lastLimit)
}

func TestListMatchesBadLimit(t *testing.T) {
	s, _, _, _ := testServer()
	rec := doRequest(t, s, http.MethodGet, "/api/matches?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
