package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/domain"
	"github.com/nshaw/storydrip/internal/service"
)

type signupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
	Referrer    string `json:"referrer"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	result, err := s.signup.Signup(c.Request.Context(), service.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		Referrer:    req.Referrer,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"trackerToken": result.TrackerToken,
		"trackerUrl":   result.TrackerURL,
	})
}

func (s *Server) handleTrackerView(c *gin.Context) {
	view, err := s.tracker.ResolveView(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) handleStageView(c *gin.Context) {
	err := s.tracker.RecordStageView(c.Request.Context(), c.Param("token"), c.Param("slug"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleStageComplete(c *gin.Context) {
	err := s.tracker.RecordStageComplete(c.Request.Context(), c.Param("token"), c.Param("slug"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// renderError maps domain errors to HTTP statuses. Not-found responses leak
// no detail; tokens are bearer secrets and never appear in logs.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
