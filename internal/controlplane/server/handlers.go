package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{"halted": false, "has_report": false}
	if s.status != nil {
		resp["halted"] = s.status.Breaker().Halted()
		if report, ok := s.status.Status(); ok {
			resp["has_report"] = true
			resp["last_cycle"] = gin.H{
				"started_at":       report.StartedAt,
				"outcome":          string(report.Outcome),
				"price":            report.Price.String(),
				"quantity":         report.Quantity.String(),
				"long_qty":         report.LongQuantity.String(),
				"short_qty":        report.ShortQuantity.String(),
				"orders_submitted": report.OrdersSubmitted,
				"error":            report.Err,
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCyclesList(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}

	cycles, err := s.listCycles(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func (s *Server) handleBreakerHalt(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "strategy not attached"})
		return
	}
	s.status.Breaker().Halt()
	c.JSON(http.StatusOK, gin.H{"halted": true})
}

func (s *Server) handleBreakerResume(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "strategy not attached"})
		return
	}
	s.status.Breaker().Resume()
	c.JSON(http.StatusOK, gin.H{"halted": false})
}
