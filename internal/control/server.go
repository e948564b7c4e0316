// Package control exposes an embedx instance over HTTP for development
// hosts: lifecycle requests, messages, state, the lifecycle chart and
// Prometheus metrics.
package control

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/internal/production"
)

// Options configures a Server.
type Options struct {
	CORSOrigins []string
	Logger      *zap.Logger
	// LaunchContext bounds runtimes launched over HTTP. Request contexts end
	// with the request, so they are never used for launches.
	LaunchContext context.Context
}

// Server is the HTTP control surface of one instance.
type Server struct {
	inst      *embedx.Instance
	router    *gin.Engine
	logger    *zap.Logger
	launchCtx context.Context
	viz       production.DefaultVisualizer
	started   time.Time
}

// New builds the router for inst.
func New(inst *embedx.Instance, opts Options) *Server {
	embedx.RegisterMetrics()
	registerMetrics()

	logger := opts.Logger
	if logger == nil {
		logger = embedx.Logger()
	}
	launchCtx := opts.LaunchContext
	if launchCtx == nil {
		launchCtx = context.Background()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(requestMetrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		inst:      inst,
		router:    r,
		logger:    logger,
		launchCtx: launchCtx,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("control surface listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type launchRequest struct {
	Args    []string       `json:"args"`
	Options map[string]any `json:"options"`
}

type quitRequest struct {
	ExitCode int `json:"exit_code"`
}

type messageRequest struct {
	Target string `json:"target" binding:"required"`
	Method string `json:"method" binding:"required"`
	Body   string `json:"body"`
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

type bundleRequest struct {
	BundleID string `json:"bundle_id" binding:"required"`
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.started).String(),
			"instance": s.inst.ID(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"snapshot":   s.inst.Snapshot(),
			"controller": s.inst.AppController().String(),
			"keyboard":   s.inst.KeyboardTextField().String(),
			"listeners":  s.inst.Listeners().Len(),
		})
	})

	r.GET("/chart", func(c *gin.Context) {
		if c.Query("format") == "json" {
			data, err := s.viz.ExportJSON()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		c.String(http.StatusOK, s.viz.ExportDOT(s.inst.State()))
	})

	r.POST("/launch", func(c *gin.Context) {
		var req launchRequest
		if !bindOptional(c, &req) {
			return
		}
		s.respond(c, s.inst.RunEmbedded(s.launchCtx, req.Args, req.Options))
	})
	r.POST("/pause", func(c *gin.Context) {
		s.respond(c, s.inst.Pause(true))
	})
	r.POST("/resume", func(c *gin.Context) {
		s.respond(c, s.inst.Pause(false))
	})
	r.POST("/show", func(c *gin.Context) {
		s.respond(c, s.inst.ShowWindow())
	})
	r.POST("/unload", func(c *gin.Context) {
		s.respond(c, s.inst.UnloadApplication())
	})
	r.POST("/quit", func(c *gin.Context) {
		var req quitRequest
		if !bindOptional(c, &req) {
			return
		}
		s.respond(c, s.inst.QuitApplication(req.ExitCode))
	})

	r.POST("/message", func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.respond(c, s.inst.SendMessage(req.Target, req.Method, req.Body))
	})
	r.POST("/url", func(c *gin.Context) {
		var req urlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.respond(c, s.inst.SetAbsoluteURL(req.URL))
	})
	r.POST("/bundle", func(c *gin.Context) {
		var req bundleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.respond(c, s.inst.SetDataBundleID(req.BundleID))
	})
}

// bindOptional binds a JSON body when one is present.
func bindOptional(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(c *gin.Context, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
			"state": s.inst.State(),
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "state": s.inst.State()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, embedx.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, embedx.ErrNotReady),
		errors.Is(err, embedx.ErrInvalidTransition),
		errors.Is(err, embedx.ErrConfigurationTooLate):
		return http.StatusConflict
	case errors.Is(err, embedx.ErrNoEngine):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
