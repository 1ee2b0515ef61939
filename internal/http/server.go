// Package http exposes the JSON API over chi.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"finboard/internal/aggregate"
	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/parser"
	"finboard/internal/services"
	"finboard/internal/storage"
)

// ExpenseParser abstracts the Gemini client so handler tests can stub it.
type ExpenseParser interface {
	Parse(ctx context.Context, input string, now time.Time) (parser.Result, error)
}

type Server struct {
	http.Server

	records *services.RecordService
	repo    *storage.Repository
	parser  ExpenseParser

	overviewCache *cache.LRUCache[aggregate.Overview]
	cacheManager  *cache.Manager
	rateLimiter   *ratelimit.Limiter
	shutdownOnce  sync.Once

	// now is swapped in tests for deterministic periods.
	now func() time.Time
}

type Options struct {
	Addr             string
	Records          *services.RecordService
	Repo             *storage.Repository
	Parser           ExpenseParser
	OverviewCacheTTL time.Duration
}

func NewServer(opts Options) *Server {
	ttl := opts.OverviewCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	s := &Server{
		records:       opts.Records,
		repo:          opts.Repo,
		parser:        opts.Parser,
		overviewCache: cache.NewLRUCache[aggregate.Overview](100, ttl),
		cacheManager:  cache.NewManager(),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		now:           time.Now,
	}

	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	r := chi.NewRouter()
	r.Use(trace.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.rateLimiter.Middleware(clientIP))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Post("/", s.handleCreateCompany)
			r.Put("/{id}", s.handleUpdateCompany)
			r.Delete("/{id}", s.handleDeleteCompany)
		})

		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", s.handleListIncomes)
			r.Post("/", s.handleCreateIncome)
			r.Put("/{id}", s.handleUpdateIncome)
			r.Delete("/{id}", s.handleDeleteIncome)
			r.Post("/{id}/toggle", s.handleToggleIncome)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Post("/parse", s.handleParseExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.handleListSubscriptions)
			r.Post("/", s.handleCreateSubscription)
			r.Put("/{id}", s.handleUpdateSubscription)
			r.Delete("/{id}", s.handleDeleteSubscription)
			r.Post("/{id}/toggle", s.handleToggleSubscription)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Put("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Post("/{id}/move", s.handleMoveTask)
		})
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the background goroutines and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidateDashboard flushes all cached overviews. Any write can move
// trend or comparison numbers in months other than its own, so partial
// invalidation is not worth the bookkeeping.
func (s *Server) invalidateDashboard() {
	s.overviewCache.Flush()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListCompanies(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	month := core.MonthPeriodOf(now)
	if v := r.URL.Query().Get("month"); v != "" {
		month = core.MonthPeriod(v)
	}

	key := string(month)
	if cached, ok := s.overviewCache.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	overview, err := aggregate.BuildOverview(snap, month, now)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.overviewCache.Set(key, overview)
	respondJSON(w, http.StatusOK, overview)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
