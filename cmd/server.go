package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/match"
	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/store"
	"github.com/flysch/matchd/internal/tier"
)

// matcher runs a match session for a user.
type matcher interface {
	Run(ctx context.Context, userID string, inputs model.MatchInputs) (*model.MatchSession, error)
}

// schoolProvider serves normalized schools.
type schoolProvider interface {
	Fetch(ctx context.Context, filters model.SchoolFilters) ([]model.School, error)
	Get(ctx context.Context, id string) (*model.School, error)
}

// sessionLister lists past match sessions.
type sessionLister interface {
	ListMatchSessions(ctx context.Context, userID string, limit int) ([]model.MatchSession, error)
}

type server struct {
	schools  schoolProvider
	matcher  matcher
	sessions sessionLister
}

func newRouter(s *server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/schools", s.handleListSchools)
		r.Get("/schools/{id}", s.handleGetSchool)
		r.Get("/schools/{id}/recommendations", s.handleRecommendations)
		r.Post("/match", s.handleMatch)
		r.Get("/matches", s.handleListMatches)
	})

	return r
}

func (s *server) handleListSchools(w http.ResponseWriter, r *http.Request) {
	filters, err := parseSchoolFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.schools.Fetch(r.Context(), filters)
	if err != nil {
		zap.L().Error("list schools", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"schools": out, "count": len(out)})
}

func (s *server) handleGetSchool(w http.ResponseWriter, r *http.Request) {
	school, err := s.schools.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "school not found")
			return
		}
		zap.L().Error("get school", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, school)
}

func (s *server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	school, err := s.schools.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "school not found")
			return
		}
		zap.L().Error("get school", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schoolId":        school.ID,
		"currentTier":     tier.Classify(school),
		"recommendations": tier.NextTierRecommendations(school),
	})
}

func (s *server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		model.MatchInputs
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.matcher.Run(r.Context(), req.UserID, req.MatchInputs)
	if err != nil {
		var nce *match.NoCandidatesError
		switch {
		case eris.Is(err, match.ErrInvalidInputs):
			writeError(w, http.StatusBadRequest, err.Error())
		case eris.Is(err, match.ErrNoSchools):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &nce):
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":       "no schools match your criteria",
				"diagnostics": nce.Diagnostics,
			})
		default:
			zap.L().Error("match run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (s *server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.sessions.ListMatchSessions(r.Context(), r.URL.Query().Get("user"), limit)
	if err != nil {
		zap.L().Error("list matches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func parseSchoolFilters(r *http.Request) (model.SchoolFilters, error) {
	q := r.URL.Query()
	filters := model.SchoolFilters{
		Search:       q.Get("search"),
		TrainingType: model.TrainingType(q.Get("training_type")),
	}

	for _, p := range splitParam(q.Get("programs")) {
		filters.Programs = append(filters.Programs, model.ProgramType(p))
	}
	for _, t := range splitParam(q.Get("tiers")) {
		filters.TrustTiers = append(filters.TrustTiers, model.TrustTier(t))
	}

	var err error
	if filters.BudgetMin, err = floatParam(q.Get("budget_min")); err != nil {
		return filters, eris.New("budget_min must be a number")
	}
	if filters.BudgetMax, err = floatParam(q.Get("budget_max")); err != nil {
		return filters, eris.New("budget_max must be a number")
	}
	if filters.HasSimulator, err = boolParam(q.Get("has_simulator")); err != nil {
		return filters, eris.New("has_simulator must be true or false")
	}
	if filters.HasG1000, err = boolParam(q.Get("has_g1000")); err != nil {
		return filters, eris.New("has_g1000 must be true or false")
	}

	if q.Get("lat") != "" || q.Get("lng") != "" || q.Get("radius") != "" {
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		radius, radErr := strconv.ParseFloat(q.Get("radius"), 64)
		if latErr != nil || lngErr != nil || radErr != nil {
			return filters, eris.New("lat, lng and radius must all be numbers")
		}
		filters.Location = &model.GeoFilter{Lat: lat, Lng: lng, RadiusKm: radius}
	}

	return filters, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func floatParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func boolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
