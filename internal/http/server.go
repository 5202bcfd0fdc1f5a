package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerbook/internal/cache"
	"ledgerbook/internal/clock"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/middleware/ratelimit"
	"ledgerbook/internal/middleware/security"
	"ledgerbook/internal/middleware/trace"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store"
)

const (
	reportCacheSize     = 256
	reportCacheTTL      = 10 * time.Minute
	cacheCleanupPeriod  = 5 * time.Minute
	defaultRequestLimit = 120
)

// Deps are the services the API serves.
type Deps struct {
	Closing *services.ClosingEngine
	Reports *services.ReportGenerator
	Ledger  *services.LedgerService
	Limits  *services.LimitService
	Clock   *clock.Resolver
	// Ready is pinged by /readyz; nil reports always ready.
	Ready  store.Pinger
	Logger *applog.Logger

	RateLimitPerMinute int
}

type Server struct {
	http.Server
	deps Deps

	reportCache *cache.LRUCache[*services.MonthlyReport]
	caches      *cache.Manager
	limiter     *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.RateLimitPerMinute <= 0 {
		deps.RateLimitPerMinute = defaultRequestLimit
	}
	if deps.Logger == nil {
		deps.Logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		deps:        deps,
		reportCache: cache.NewLRUCache[*services.MonthlyReport](reportCacheSize, reportCacheTTL),
		caches:      cache.NewManager(),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:    security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.caches.Register(s.reportCache)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/closing/day", s.handleCloseDay)
	api.HandleFunc("POST /api/closing/month", s.handleCloseMonth)
	api.HandleFunc("POST /api/closing/boundary", s.handleBoundary)
	api.HandleFunc("GET /api/closing/status", s.handleDailyStatus)
	api.HandleFunc("GET /api/closing/delete-log", s.handleDeleteLog)
	api.HandleFunc("GET /api/archives/{month}", s.handleMonthlyArchive)

	api.HandleFunc("GET /api/reports", s.handleListReports)
	api.HandleFunc("GET /api/reports/{month}", s.handleReportDetail)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	api.HandleFunc("GET /api/transactions/search", s.handleSearchTransactions)
	api.HandleFunc("POST /api/transactions/reset", s.handleResetMonth)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/limit", s.handleLimitStatus)
	api.HandleFunc("PUT /api/limit", s.handleSetLimit)
	api.HandleFunc("DELETE /api/limit", s.handleClearLimit)

	limited := s.limiter.Middleware(s.clientKey, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(api)

	mux := http.NewServeMux()
	mux.Handle("/api/", limited)
	mux.HandleFunc("GET /api/current-time", s.handleCurrentTime)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(s.deps.Logger, trace.GetRequestID, UserHeader)(h)
	h = s.tracer.Middleware(h)
	return h
}

// clientKey rate limits per user, or per client IP for anonymous requests.
func (s *Server) clientKey(r *http.Request) string {
	if user := r.Header.Get(UserHeader); user != "" {
		return "user:" + user
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Start runs the background cleanup of the rate limiter and caches.
func (s *Server) Start() {
	s.limiter.Start()
	s.caches.StartCleanup(cacheCleanupPeriod)
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
