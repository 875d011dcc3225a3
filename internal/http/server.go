// Package http exposes the REST API for DMOs, activities, completions, and
// reports.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"dmo/internal/cache"
	"dmo/internal/core"
	"dmo/internal/log"
	"dmo/internal/services"
)

const (
	reportCacheSize = 200
	reportCacheTTL  = 5 * time.Minute
)

type Server struct {
	http.Server
	service     *services.DmoService
	logger      *log.Logger
	rateLimiter *rateLimiter

	// Report caches, invalidated on completion writes.
	monthlyCache *cache.LRUCache[core.MonthlyReport]
	dailyCache   *cache.LRUCache[core.DailyReport]
	summaryCache *cache.LRUCache[core.DmoSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, service *services.DmoService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:      service,
		logger:       logger,
		rateLimiter:  newRateLimiter(),
		monthlyCache: cache.NewLRUCache[core.MonthlyReport](reportCacheSize, reportCacheTTL),
		dailyCache:   cache.NewLRUCache[core.DailyReport](reportCacheSize, reportCacheTTL),
		summaryCache: cache.NewLRUCache[core.DmoSummary](reportCacheSize, reportCacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.monthlyCache)
	s.cacheManager.Register(s.dailyCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /dmos", s.wrap(s.handleCreateDmo))
	mux.HandleFunc("GET /dmos", s.wrap(s.handleListDmos))
	mux.HandleFunc("GET /dmos/{id}", s.wrap(s.handleGetDmo))
	mux.HandleFunc("PATCH /dmos/{id}", s.wrap(s.handleUpdateDmo))
	mux.HandleFunc("DELETE /dmos/{id}", s.wrap(s.handleDeleteDmo))
	mux.HandleFunc("POST /dmos/{id}/activate", s.wrap(s.handleActivateDmo))
	mux.HandleFunc("POST /dmos/{id}/deactivate", s.wrap(s.handleDeactivateDmo))

	mux.HandleFunc("POST /dmos/{id}/activities", s.wrap(s.handleCreateActivity))
	mux.HandleFunc("GET /dmos/{id}/activities", s.wrap(s.handleListActivities))
	mux.HandleFunc("POST /dmos/{id}/activities/reorder", s.wrap(s.handleReorderActivities))
	mux.HandleFunc("PATCH /activities/{id}", s.wrap(s.handleUpdateActivity))
	mux.HandleFunc("DELETE /activities/{id}", s.wrap(s.handleDeleteActivity))

	mux.HandleFunc("POST /dmos/{id}/completions", s.wrap(s.handleSetCompletion))
	mux.HandleFunc("GET /dmos/{id}/completions", s.wrap(s.handleListCompletions))
	mux.HandleFunc("GET /dmos/{id}/completions/{date}", s.wrap(s.handleGetCompletion))
	mux.HandleFunc("GET /dmos/{id}/summary", s.wrap(s.handleDmoSummary))

	mux.HandleFunc("GET /reports/daily", s.wrap(s.handleDailyReport))
	mux.HandleFunc("GET /reports/monthly", s.wrap(s.handleMonthlyReport))

	return s
}

// wrap adds request IDs, security headers, rate limiting on mutating
// methods, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		ctx := log.IntoContext(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		reqLogger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateReports drops every cached report that a completion write for
// dmoID could have changed.
func (s *Server) invalidateReports(dmoID int64, day core.Date) {
	s.monthlyCache.DeletePrefix(fmt.Sprintf("dmo:%d:", dmoID))
	s.summaryCache.DeletePrefix(fmt.Sprintf("dmo:%d:", dmoID))
	s.dailyCache.Delete(day.String())
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
