package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/llmhub-dev/llmhub/internal/keystore"
	"github.com/llmhub-dev/llmhub/internal/routing"
	"github.com/llmhub-dev/llmhub/internal/usage"
	"gorm.io/gorm"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	DB        *gorm.DB
	Engine    *routing.Engine
	Table     routing.Table
	Keys      *keystore.Store
	Reporter  *usage.Reporter
	JWTSecret string
	TokenTTL  time.Duration
	Limiter   *RateLimiter // Optional; nil disables inbound rate limiting.
}

// NewRouter builds the gin engine with all routes and middleware wired.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chatHandler := NewChatHandler(cfg.Engine)
	modelsHandler := NewModelsHandler(cfg.Table)

	v1 := r.Group("/v1")
	if cfg.Limiter != nil {
		v1.POST("/chat", cfg.Limiter.Middleware(), chatHandler.Completion)
	} else {
		v1.POST("/chat", chatHandler.Completion)
	}
	v1.GET("/models", modelsHandler.List)

	adminHandler := NewAdminHandler(cfg.DB, cfg.Keys, cfg.Reporter, cfg.JWTSecret, cfg.TokenTTL)

	admin := r.Group("/admin")
	admin.POST("/login", adminHandler.Login)

	authed := admin.Group("")
	authed.Use(adminAuthMiddleware(cfg.DB, cfg.JWTSecret))
	authed.GET("/keys", adminHandler.ListKeys)
	authed.POST("/keys", adminHandler.CreateKey)
	authed.PUT("/keys/:id", adminHandler.UpdateKey)
	authed.DELETE("/keys/:id", adminHandler.DeleteKey)
	authed.POST("/keys/:id/clear-cooldown", adminHandler.ClearKeyCooldown)
	authed.GET("/logs", adminHandler.ListLogs)
	authed.GET("/stats", adminHandler.Stats)

	return r
}
