// Package admin exposes a small read-only HTTP surface for operators:
// health, lifecycle state, matcher and journal statistics, recent
// block events, and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haukened/sinkhole/internal/filter/common/log"
	"github.com/haukened/sinkhole/internal/filter/domain"
	"github.com/haukened/sinkhole/internal/filter/repos/journal"
)

// Decider evaluates a hostname against the published rules.
type Decider interface {
	Decide(hostname string) domain.Decision
}

// RuleStats reports on the published RuleSet and the decision cache.
type RuleStats interface {
	Current() *domain.RuleSet
	CacheStats() (hits, misses, evictions uint64, size int)
}

// Options wires the admin server's collaborators.
type Options struct {
	Addr    string
	State   func() string
	Matcher interface {
		Decider
		RuleStats
	}
	Journal journal.Journal
	Logger  log.Logger
}

// Server serves the operator endpoints.
type Server struct {
	opts Options
	http *http.Server
}

// New builds the admin server. It does not start listening.
func New(opts Options) *Server {
	s := &Server{opts: opts}
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer, middleware.Timeout(10*time.Second))
	r.Get("/healthz", s.healthz)
	r.Get("/state", s.state)
	r.Get("/stats", s.stats)
	r.Get("/events", s.events)
	r.Get("/check", s.check)
	r.Handle("/metrics", promhttp.Handler())
	s.http = &http.Server{Addr: opts.Addr, Handler: r}
	return s
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()
	s.opts.Logger.Info(map[string]any{"addr": s.opts.Addr}, "admin server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"state": s.opts.State()})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	rs := s.opts.Matcher.Current()
	hits, misses, evictions, size := s.opts.Matcher.CacheStats()
	js := s.opts.Journal.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": map[string]any{
			"blocked": rs.BlockedCount(),
			"allowed": rs.AllowedCount(),
		},
		"cache": map[string]any{
			"hits":      hits,
			"misses":    misses,
			"evictions": evictions,
			"size":      size,
		},
		"journal": map[string]any{
			"resolve":    js.Resolve,
			"handshake":  js.Handshake,
			"request":    js.Request,
			"total":      js.Total(),
			"last_event": js.LastEventUnix,
		},
	})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	evs, err := s.opts.Journal.Recent(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(evs))
	for _, ev := range evs {
		items = append(items, map[string]any{
			"layer": ev.Layer.String(),
			"host":  ev.Host,
			"rule":  ev.Rule,
			"at":    ev.At.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "missing host parameter", http.StatusBadRequest)
		return
	}
	d := s.opts.Matcher.Decide(host)
	writeJSON(w, http.StatusOK, map[string]any{
		"host":    host,
		"blocked": d.IsBlocked(),
		"rule":    d.MatchedRule,
	})
}
