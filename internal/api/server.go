// Package api exposes the Till engine over HTTP/JSON. Handlers translate
// requests into engine calls and map domain error codes onto status codes;
// every rule lives in the engine, none up here.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tillworks/till/internal/config"
	"github.com/tillworks/till/internal/engine"
	"github.com/tillworks/till/internal/report"
	"github.com/tillworks/till/internal/store"
)

// Server wires the engine, reporter, and catalog store into a gin router.
type Server struct {
	cfg      config.Config
	store    *store.Store
	engine   *engine.Engine
	reporter *report.Reporter
	log      *slog.Logger
	clock    engine.Clock
	metrics  *metrics
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the clock used for catalog timestamps, for tests.
func WithClock(c engine.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// NewServer builds the HTTP surface. The logger must not be nil.
func NewServer(cfg config.Config, s *store.Store, e *engine.Engine, r *report.Reporter, log *slog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	srv := &Server{
		cfg:      cfg,
		store:    s,
		engine:   e,
		reporter: r,
		log:      log,
		clock:    engine.SystemClock{},
		metrics:  newMetrics(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.router = srv.buildRouter()
	return srv
}

// now stamps catalog writes; transaction timestamps come from the engine's
// own clock.
func (s *Server) now() time.Time {
	return s.clock.Now().UTC()
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests())
	r.Use(s.metrics.middleware())

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", s.metrics.handler())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/categories", s.listCategories)
		apiGroup.POST("/categories", s.createCategory)
		apiGroup.GET("/categories/:id", s.getCategory)
		apiGroup.PUT("/categories/:id", s.updateCategory)
		apiGroup.DELETE("/categories/:id", s.deleteCategory)
		apiGroup.GET("/categories/:id/items", s.listItemsByCategory)

		apiGroup.GET("/items", s.listItems)
		apiGroup.POST("/items", s.createItem)
		apiGroup.GET("/items/:id", s.getItem)
		apiGroup.PUT("/items/:id", s.updateItem)
		apiGroup.DELETE("/items/:id", s.deleteItem)

		apiGroup.GET("/transactions", s.listTransactions)
		apiGroup.GET("/transactions/open", s.listOpenTransactions)
		apiGroup.POST("/transactions", s.createTransaction)
		apiGroup.GET("/transactions/:id", s.getTransaction)
		apiGroup.PUT("/transactions/:id", s.updateTransaction)
		apiGroup.POST("/transactions/:id/close", s.closeTransaction)
		apiGroup.POST("/transactions/:id/cancel", s.cancelTransaction)

		apiGroup.POST("/transactions/:id/lines", s.addLine)
		apiGroup.PUT("/transactions/:id/lines/:lineID", s.updateLine)
		apiGroup.DELETE("/transactions/:id/lines/:lineID", s.removeLine)

		apiGroup.POST("/reports/sales", s.generateReport)
		apiGroup.GET("/reports/daily", s.dailyReport)
		apiGroup.GET("/reports/monthly", s.monthlyReport)
	}

	if s.cfg.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.cfg.StaticDir))))
	}

	return r
}

// logRequests emits one slog line per request.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
