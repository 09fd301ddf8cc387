package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/llmhub-dev/llmhub/internal/routing"
	"github.com/llmhub-dev/llmhub/internal/schema"
)

// ModelsHandler lists the logical tiers callers can request.
type ModelsHandler struct {
	table routing.Table
}

// NewModelsHandler constructs a ModelsHandler.
func NewModelsHandler(table routing.Table) *ModelsHandler {
	return &ModelsHandler{table: table}
}

// tierInfo describes one logical tier in listings.
type tierInfo struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	Providers []string `json:"providers"`
}

// List handles GET /v1/models.
func (h *ModelsHandler) List(c *gin.Context) {
	tiers := []string{schema.TierSmart, schema.TierFast, schema.TierCheap, schema.TierAny}
	data := make([]tierInfo, 0, len(tiers))
	for _, tier := range tiers {
		data = append(data, tierInfo{
			ID:        tier,
			Object:    "model",
			Providers: h.table.Providers(tier),
		})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}
