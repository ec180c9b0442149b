// Package server exposes the signup and tracker HTTP surface.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nshaw/storydrip/internal/service"
)

// Server wires the HTTP routes to the signup and tracker services.
type Server struct {
	signup  *service.SignupService
	tracker *service.TrackerService
	logger  *zap.Logger
}

// New creates a new Server.
func New(signup *service.SignupService, tracker *service.TrackerService, logger *zap.Logger) *Server {
	return &Server{
		signup:  signup,
		tracker: tracker,
		logger:  logger,
	}
}

// Router builds the gin engine. Signup is throttled per client IP.
func (s *Server) Router(signupRatePerMinute, signupBurst int, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(MetricsMiddleware())

	limiter := NewIPRateLimiter(rate.Limit(float64(signupRatePerMinute)/60.0), signupBurst)

	api := router.Group("/api")
	api.POST("/signup", limiter.Middleware(), s.handleSignup)
	api.GET("/tracker/:token", s.handleTrackerView)
	api.POST("/tracker/:token/stage/:slug/view", s.handleStageView)
	api.POST("/tracker/:token/stage/:slug/complete", s.handleStageComplete)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
