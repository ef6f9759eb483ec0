package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medledger/chain-api/internal/ledger"
)

type Handler struct {
	ledger *ledger.Ledger
}

func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{ledger: l}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck verifies the chain is intact before reporting ready. A
// corrupted chain means reads cannot be trusted.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if !h.ledger.IsChainValid() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "chain integrity check failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"blocks": h.ledger.Len(),
	})
}
