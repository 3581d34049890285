package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the API routes call into. Events may be
// nil when no event stream is configured.
type Dependencies struct {
	Advisor        domain.Advisor
	Prices         *domain.PriceSimulator
	Events         EventPublisher
	Ready          sharedobs.ReadinessChecker
	Metrics        *observability.Metrics
	AllowedOrigins []string
}

// Server exposes the advisor API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	advisor    domain.Advisor
	prices     *domain.PriceSimulator
	events     EventPublisher
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes plus /healthz, /readyz, and /metrics.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(deps.AllowedOrigins))

	ready := deps.Ready
	if ready == nil {
		ready = AlwaysReady{}
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // mentor calls wait on the remote model
			IdleTimeout:  60 * time.Second,
		},
		advisor: deps.Advisor,
		prices:  deps.Prices,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  logger,
	}

	router.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	router.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/probability", s.handleProbability)
	api.POST("/mentor", s.handleMentor)
	api.POST("/prices", s.handlePrices)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// AlwaysReady reports ready unconditionally. It serves /readyz when no
// background component gates readiness.
type AlwaysReady struct{}

func (AlwaysReady) CheckReadiness(context.Context) error { return nil }
