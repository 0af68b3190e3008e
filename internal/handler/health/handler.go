package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	ledger  Pinger
	records func() int
}

// NewHandler reports ready once the ledger answers a ping. records returns the
// number of loaded patient records.
func NewHandler(ledger Pinger, records func() int) *Handler {
	return &Handler{ledger: ledger, records: records}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.LivenessCheck)
	r.GET("/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.ledger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Summary ledger unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"records": h.records(),
	})
}
