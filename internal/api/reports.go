package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type reportRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

func (s *Server) generateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rep, err := s.reporter.Generate(c.Request.Context(), req.StartDate, req.EndDate)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) dailyReport(c *gin.Context) {
	rep, err := s.reporter.Daily(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) monthlyReport(c *gin.Context) {
	rep, err := s.reporter.Monthly(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
