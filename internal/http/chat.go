// Package http exposes the gateway's HTTP surface: the public chat API and
// the admin management API.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/llmhub-dev/llmhub/internal/routing"
	"github.com/llmhub-dev/llmhub/internal/schema"
	log "github.com/sirupsen/logrus"
)

// ChatHandler serves the unified chat-completion endpoint.
type ChatHandler struct {
	engine *routing.Engine
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(engine *routing.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// Completion handles POST /v1/chat.
func (h *ChatHandler) Completion(c *gin.Context) {
	var req schema.ChatRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Tier = strings.ToLower(strings.TrimSpace(req.Tier))
	if !schema.KnownTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model tier: " + req.Tier})
		return
	}
	if req.Stream {
		c.JSON(http.StatusBadRequest, gin.H{"error": "streaming is not supported"})
		return
	}

	resp, errRoute := h.engine.Route(c.Request.Context(), &req)
	if errRoute != nil {
		var agg *routing.AggregateError
		if errors.As(errRoute, &agg) {
			// Upstream bodies and key material stay in the logs.
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "all providers failed for tier " + agg.Tier,
				"reason": agg.Reason,
			})
			return
		}
		if errors.Is(errRoute, c.Request.Context().Err()) {
			c.Status(http.StatusRequestTimeout)
			return
		}
		log.WithError(errRoute).Error("chat: routing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
