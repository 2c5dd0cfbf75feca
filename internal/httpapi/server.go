package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/httpapi/middleware"
	"github.com/hamed0406/watchcore/internal/orchestrator"
	"github.com/hamed0406/watchcore/internal/probe"
)

type Server struct {
	Logger *zap.Logger
	Orch   *orchestrator.Orchestrator
	Keys   middleware.Keys
}

func NewServer(l *zap.Logger, o *orchestrator.Orchestrator, keys middleware.Keys) *Server {
	return &Server{Logger: l, Orch: o, Keys: keys}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(20, 40))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))
		r.Get("/api/targets", s.handleListTargets)
		r.Get("/api/targets/{id}", s.handleGetTarget)
		r.Get("/api/targets/{id}/state", s.handleState)
		r.Get("/api/cache/stats", s.handleCacheStats)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.Keys))
		r.Post("/api/targets", s.handleAddTarget)
		r.Put("/api/targets/{id}", s.handleUpdateTarget)
		r.Delete("/api/targets/{id}", s.handleRemoveTarget)
		r.Post("/api/targets/{id}/check", s.handleCheckNow)
		r.Post("/api/pause", s.handlePause)
		r.Post("/api/resume", s.handleResume)
	})

	return r
}

// targetPayload is the wire form of a target definition. Durations are
// milliseconds; zero values fall back to the orchestrator defaults.
type targetPayload struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Address       string `json:"address"`
	TimeoutMS     int    `json:"timeout_ms"`
	IntervalMS    int    `json:"interval_ms"`
	RetryCount    int    `json:"retry_count"`
	DegradedAfter int    `json:"degraded_after_ms"`
	Disabled      bool   `json:"disabled"`
}

func (p *targetPayload) toTarget() *domain.Target {
	return &domain.Target{
		Name:          p.Name,
		Kind:          domain.ProbeKind(p.Kind),
		Address:       p.Address,
		Timeout:       time.Duration(p.TimeoutMS) * time.Millisecond,
		Interval:      time.Duration(p.IntervalMS) * time.Millisecond,
		RetryCount:    p.RetryCount,
		DegradedAfter: time.Duration(p.DegradedAfter) * time.Millisecond,
		Enabled:       !p.Disabled,
	}
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p targetPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	t, err := s.Orch.AddTarget(r.Context(), p.toTarget())
	if err != nil {
		s.writeErr(w, err)
		return
	}

	// classify the hostname once at add time for immediate operator
	// feedback; NXDOMAIN here usually means a typo in the address
	dnsClass := ""
	if t.Kind == domain.ProbeHTTP {
		dnsClass = string(probe.ClassifyDNS(probe.HostOf(t.Address)))
	}

	s.Logger.Info("api_target_added",
		zap.String("target_id", string(t.ID)),
		zap.String("address", t.Address),
		zap.String("dns", dnsClass),
	)

	writeJSON(w, http.StatusCreated, map[string]any{"target": t, "dns": dnsClass})
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	var p targetPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	t, err := s.Orch.UpdateTarget(r.Context(), id, p.toTarget())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	if err := s.Orch.RemoveTarget(r.Context(), id); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Orch.Targets(r.Context())
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	t, err := s.Orch.Target(r.Context(), id)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	st, ok := s.Orch.State(id)
	if !ok {
		http.Error(w, "no state", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Orch.CacheStats())
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	if err := s.Orch.CheckNow(id); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Orch.PauseAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Orch.ResumeAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "validation", "field": verr.Field, "reason": verr.Reason,
		})
	case errors.Is(err, domain.ErrTargetNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrCheckInFlight):
		http.Error(w, "check already running", http.StatusConflict)
	case errors.Is(err, domain.ErrNotRunning):
		http.Error(w, "not running", http.StatusServiceUnavailable)
	default:
		s.Logger.Warn("api_error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
