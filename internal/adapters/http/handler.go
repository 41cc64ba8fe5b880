package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/compass-journal/compass-api/internal/adapters/speech"
	"github.com/compass-journal/compass-api/internal/app/dashboard"
	"github.com/compass-journal/compass-api/internal/app/laddering"
	"github.com/compass-journal/compass-api/internal/app/reflection"
	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/app/synthesis"
	"github.com/compass-journal/compass-api/internal/app/wizard"
	"github.com/compass-journal/compass-api/internal/domain"
)

// Server wires the application services into HTTP routes.
type Server struct {
	sessions   *sessions.Service
	wizards    *wizard.Runner
	laddering  *laddering.Service
	reflection *reflection.Service
	synthesis  *synthesis.Service
	speech     speech.Engine
}

func NewServer(
	sessionSvc *sessions.Service,
	wizards *wizard.Runner,
	ladderingSvc *laddering.Service,
	reflectionSvc *reflection.Service,
	synthesisSvc *synthesis.Service,
	speechEngine speech.Engine,
) http.Handler {
	s := &Server{
		sessions:   sessionSvc,
		wizards:    wizards,
		laddering:  ladderingSvc,
		reflection: reflectionSvc,
		synthesis:  synthesisSvc,
		speech:     speechEngine,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(withRequestLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The first audit phase is usable before signing in; its completed
	// result reaches the anonymized stream through this route.
	r.Post("/telemetry", s.handleTelemetry)

	r.Group(func(r chi.Router) {
		r.Use(withUser)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/sessions", s.handleListSessions)
		r.Put("/sessions/{sessionID}", s.handleSaveSession)
		r.Post("/migrate", s.handleMigrate)

		r.Route("/audit", func(r chi.Router) {
			s.wizardRoutes(r, wizard.MeaningAudit)
		})
		r.Route("/explore", func(r chi.Router) {
			s.wizardRoutes(r, wizard.DomainExploration)
		})

		r.Route("/laddering", func(r chi.Router) {
			r.Post("/", s.handleLadderingStart)
			r.Get("/{sessionID}", s.handleLadderingTranscript)
			r.Post("/{sessionID}/messages", s.handleLadderingSend)
			r.Post("/{sessionID}/finalize", s.handleLadderingFinalize)
		})

		r.Route("/reflections", func(r chi.Router) {
			r.Post("/peak", s.handlePeakExperience)
			r.Post("/contribution", s.handleContribution)
			r.Post("/experiment", s.handleExperiment)
		})

		r.Post("/synthesis/draft", s.handleSynthesisDraft)
		r.Post("/synthesis/save", s.handleSynthesisSave)

		r.Post("/speech", s.handleSpeech)
	})

	return r
}

func (s *Server) wizardRoutes(r chi.Router, def wizard.Definition) {
	r.Post("/", s.handleWizardStart(def))
	r.Get("/{sessionID}", s.handleWizardGet)
	r.Post("/{sessionID}/rate", s.handleWizardRate)
	r.Post("/{sessionID}/advance", s.handleWizardAdvance)
	r.Post("/{sessionID}/retreat", s.handleWizardRetreat)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type ratingResponse struct {
	Importance  int `json:"importance"`
	Fulfillment int `json:"fulfillment"`
}

type wizardStateResponse struct {
	SessionID       string                    `json:"session_id"`
	Item            string                    `json:"item,omitempty"`
	Phase           string                    `json:"phase"`
	Index           int                       `json:"index"`
	ProgressStep    int                       `json:"progress_step"`
	TotalSteps      int                       `json:"total_steps"`
	ProgressPercent int                       `json:"progress_percent"`
	Ratings         map[string]ratingResponse `json:"ratings"`
	CanSkip         bool                      `json:"can_skip"`
	Completed       bool                      `json:"completed"`
	Insight         string                    `json:"insight,omitempty"`
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionResponse struct {
	ID           string                    `json:"id"`
	Type         string                    `json:"type"`
	Status       string                    `json:"status,omitempty"`
	LastUpdated  time.Time                 `json:"last_updated"`
	CompletedAt  *time.Time                `json:"completed_at,omitempty"`
	ProgressStep int                       `json:"progress_step,omitempty"`
	TotalSteps   int                       `json:"total_steps,omitempty"`
	Ratings      map[string]ratingResponse `json:"ratings,omitempty"`
	Messages     []messageResponse         `json:"messages,omitempty"`
	Draft        string                    `json:"draft,omitempty"`
	Reflection   string                    `json:"reflection,omitempty"`
}

type saveSessionRequest struct {
	Type         string                    `json:"type"`
	Status       string                    `json:"status,omitempty"`
	CompletedAt  *time.Time                `json:"completed_at,omitempty"`
	ProgressStep int                       `json:"progress_step,omitempty"`
	TotalSteps   int                       `json:"total_steps,omitempty"`
	Ratings      map[string]ratingResponse `json:"ratings,omitempty"`
	Draft        string                    `json:"draft,omitempty"`
	Reflection   string                    `json:"reflection,omitempty"`
}

type migrateRequest struct {
	SessionID   string                    `json:"session_id"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Ratings     map[string]ratingResponse `json:"ratings"`
}

// ─────────────────────────────────────────────
// Wizard handlers
// ─────────────────────────────────────────────

func (s *Server) handleWizardStart(def wizard.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.wizards.Start(r.Context(), userFrom(r), def)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWizardState(st))
	}
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.wizards.Get(r.Context(), userFrom(r), sessionIDFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardState(st))
}

func (s *Server) handleWizardRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	st, err := s.wizards.Rate(r.Context(), userFrom(r), sessionIDFrom(r), req.Value)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardState(st))
}

func (s *Server) handleWizardAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Override *int `json:"override,omitempty"`
	}
	// The body is optional: a plain advance carries no override.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	st, err := s.wizards.Advance(r.Context(), userFrom(r), sessionIDFrom(r), req.Override)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardState(st))
}

func (s *Server) handleWizardRetreat(w http.ResponseWriter, r *http.Request) {
	st, err := s.wizards.Retreat(r.Context(), userFrom(r), sessionIDFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardState(st))
}

// ─────────────────────────────────────────────
// Laddering handlers
// ─────────────────────────────────────────────

func (s *Server) handleLadderingStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode,omitempty"`
	}
	// No body means the default guided mode.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}
	mode := laddering.Mode(req.Mode)
	if mode == "" {
		mode = laddering.ModeGuided
	}

	id, err := s.laddering.Start(r.Context(), userFrom(r), mode)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(id)})
}

func (s *Server) handleLadderingSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	reply, err := s.laddering.Send(r.Context(), userFrom(r), sessionIDFrom(r), req.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	if reply == nil {
		// Empty input after trimming: nothing was appended.
		writeJSON(w, http.StatusOK, map[string]any{"ignored": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   messageResponse{Role: string(reply.Message.Role), Content: reply.Message.Content},
		"turn":      reply.Turn,
		"concluded": reply.Concluded,
		"degraded":  reply.Degraded,
	})
}

func (s *Server) handleLadderingTranscript(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.laddering.Transcript(r.Context(), userFrom(r), sessionIDFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Role: string(m.Role), Content: m.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleLadderingFinalize(w http.ResponseWriter, r *http.Request) {
	if err := s.laddering.Finalize(r.Context(), userFrom(r), sessionIDFrom(r)); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ─────────────────────────────────────────────
// Session + dashboard handlers
// ─────────────────────────────────────────────

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sessions.List(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Aggregate(recs))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sessions.List(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSessionResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Type == "" {
		badRequest(w, "type is required")
		return
	}

	rec := &domain.Session{
		Type:         domain.ModuleType(req.Type),
		Status:       domain.SessionStatus(req.Status),
		ProgressStep: req.ProgressStep,
		TotalSteps:   req.TotalSteps,
		Draft:        req.Draft,
		Reflection:   req.Reflection,
		Ratings:      fromRatings(req.Ratings),
	}
	if req.CompletedAt != nil {
		rec.CompletedAt = *req.CompletedAt
	}

	if err := s.sessions.Save(r.Context(), userFrom(r), sessionIDFrom(r), rec); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" || len(req.Ratings) == 0 {
		badRequest(w, "session_id and ratings are required")
		return
	}

	rec := &domain.Session{
		Status:  domain.StatusCompleted,
		Ratings: fromRatings(req.Ratings),
	}
	if req.CompletedAt != nil {
		rec.CompletedAt = *req.CompletedAt
	}

	if err := s.sessions.MigratePendingAudit(r.Context(), userFrom(r), domain.SessionID(req.SessionID), rec); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if err := s.sessions.AppendTelemetry(r.Context(), fields); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// ─────────────────────────────────────────────
// Reflection + synthesis + speech handlers
// ─────────────────────────────────────────────

func (s *Server) handlePeakExperience(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alive    string `json:"alive"`
		Useful   string `json:"useful"`
		Yourself string `json:"yourself"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	id, err := s.reflection.CompletePeakExperience(r.Context(), userFrom(r), domain.Experiences(req))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(id)})
}

func (s *Server) handleContribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reflection string `json:"reflection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	id, err := s.reflection.CompleteContribution(r.Context(), userFrom(r), req.Reflection)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(id)})
}

func (s *Server) handleExperiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action               string `json:"action"`
		StartDate            string `json:"start_date"`
		CheckInDate          string `json:"check_in_date"`
		AccountabilityPerson string `json:"accountability_person"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	id, err := s.reflection.CompleteExperiment(r.Context(), userFrom(r), domain.Experiment(req))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(id)})
}

func (s *Server) handleSynthesisDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.synthesis.Draft(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": draft})
}

func (s *Server) handleSynthesisSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Draft string `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	id, err := s.synthesis.SaveDraft(r.Context(), userFrom(r), req.Draft)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(id)})
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Text == "" {
		badRequest(w, "text is required")
		return
	}

	clip, err := s.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"audio_content": base64.StdEncoding.EncodeToString(clip.Audio),
		"content_type":  clip.ContentType,
	})
}

// ─────────────────────────────────────────────
// Conversion helpers
// ─────────────────────────────────────────────

func toWizardState(st *wizard.State) wizardStateResponse {
	phase := "importance"
	if st.Phase == wizard.PhaseB {
		phase = "fulfillment"
	}

	ratings := make(map[string]ratingResponse, len(st.Ratings))
	for k, v := range st.Ratings {
		ratings[k] = ratingResponse{Importance: v.Importance, Fulfillment: v.Fulfillment}
	}

	return wizardStateResponse{
		SessionID:       string(st.SessionID),
		Item:            st.Item,
		Phase:           phase,
		Index:           st.Index,
		ProgressStep:    st.ProgressStep,
		TotalSteps:      st.TotalSteps,
		ProgressPercent: int(math.Round(100 * float64(st.ProgressStep) / float64(st.TotalSteps))),
		Ratings:         ratings,
		CanSkip:         st.CanSkip,
		Completed:       st.Completed,
		Insight:         st.Insight,
	}
}

func toSessionResponse(rec *domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:           string(rec.ID),
		Type:         string(rec.Type),
		Status:       string(rec.Status),
		LastUpdated:  rec.LastUpdated,
		ProgressStep: rec.ProgressStep,
		TotalSteps:   rec.TotalSteps,
		Draft:        rec.Draft,
		Reflection:   rec.Reflection,
	}
	if !rec.CompletedAt.IsZero() {
		t := rec.CompletedAt
		resp.CompletedAt = &t
	}
	if rec.Ratings != nil {
		resp.Ratings = make(map[string]ratingResponse, len(rec.Ratings))
		for k, v := range rec.Ratings {
			resp.Ratings[k] = ratingResponse{Importance: v.Importance, Fulfillment: v.Fulfillment}
		}
	}
	for _, m := range rec.Messages {
		resp.Messages = append(resp.Messages, messageResponse{Role: string(m.Role), Content: m.Content})
	}
	return resp
}

func fromRatings(in map[string]ratingResponse) map[string]domain.Rating {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.Rating, len(in))
	for k, v := range in {
		out[k] = domain.Rating{Importance: v.Importance, Fulfillment: v.Fulfillment}
	}
	return out
}

func sessionIDFrom(r *http.Request) domain.SessionID {
	return domain.SessionID(chi.URLParam(r, "sessionID"))
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// respondError maps domain sentinels onto status codes. Persistence
// failures are surfaced with their cause so the user can decide to retry;
// everything else collapses into a generic service failure.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionCompleted), errors.Is(err, domain.ErrSessionExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrCollaborator):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
