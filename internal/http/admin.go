package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llmhub-dev/llmhub/internal/keystore"
	"github.com/llmhub-dev/llmhub/internal/models"
	"github.com/llmhub-dev/llmhub/internal/security"
	"github.com/llmhub-dev/llmhub/internal/usage"
	"gorm.io/gorm"
)

// AdminHandler serves admin authentication and management endpoints.
type AdminHandler struct {
	db        *gorm.DB
	keys      *keystore.Store
	reporter  *usage.Reporter
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB, keys *keystore.Store, reporter *usage.Reporter, jwtSecret string, tokenTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		db:        db,
		keys:      keys,
		reporter:  reporter,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a session token.
func (h *AdminHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.GenerateAdminToken(h.jwtSecret, admin.ID, admin.Username, h.tokenTTL)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	now := time.Now().UTC()
	_ = h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("last_login_at", &now).Error

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{"id": admin.ID, "username": admin.Username},
	})
}

// createKeyRequest captures the payload for creating provider keys.
type createKeyRequest struct {
	Provider   string `json:"provider"`
	Name       string `json:"name"`
	KeyValue   string `json:"key_value"`
	DailyQuota int64  `json:"daily_quota"`
}

// CreateKey handles POST /admin/keys.
func (h *AdminHandler) CreateKey(c *gin.Context) {
	var body createKeyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	key, errCreate := h.keys.Create(c.Request.Context(), keystore.CreateParams{
		Provider:   body.Provider,
		Name:       body.Name,
		KeyValue:   body.KeyValue,
		DailyQuota: body.DailyQuota,
	})
	if errCreate != nil {
		if errors.Is(errCreate, keystore.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provider and key_value are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create key failed"})
		return
	}
	c.JSON(http.StatusCreated, keystore.View(key))
}

// ListKeys handles GET /admin/keys.
func (h *AdminHandler) ListKeys(c *gin.Context) {
	keys, errList := h.keys.List(c.Request.Context(), c.Query("provider"))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list keys failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keystore.Views(keys)})
}

// updateKeyRequest captures optional fields for key updates.
type updateKeyRequest struct {
	Name       *string `json:"name"`
	KeyValue   *string `json:"key_value"`
	Active     *bool   `json:"active"`
	DailyQuota *int64  `json:"daily_quota"`
}

// UpdateKey handles PUT /admin/keys/:id.
func (h *AdminHandler) UpdateKey(c *gin.Context) {
	id, ok := parseKeyID(c)
	if !ok {
		return
	}

	var body updateKeyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	key, errUpdate := h.keys.Update(c.Request.Context(), id, keystore.UpdateParams{
		Name:       body.Name,
		KeyValue:   body.KeyValue,
		Active:     body.Active,
		DailyQuota: body.DailyQuota,
	})
	if errUpdate != nil {
		switch {
		case errors.Is(errUpdate, keystore.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		case errors.Is(errUpdate, keystore.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "key_value must not be empty"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update key failed"})
		}
		return
	}
	c.JSON(http.StatusOK, keystore.View(key))
}

// DeleteKey handles DELETE /admin/keys/:id.
func (h *AdminHandler) DeleteKey(c *gin.Context) {
	id, ok := parseKeyID(c)
	if !ok {
		return
	}

	if errDelete := h.keys.Delete(c.Request.Context(), id); errDelete != nil {
		if errors.Is(errDelete, keystore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete key failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ClearKeyCooldown handles POST /admin/keys/:id/clear-cooldown.
func (h *AdminHandler) ClearKeyCooldown(c *gin.Context) {
	id, ok := parseKeyID(c)
	if !ok {
		return
	}

	if errClear := h.keys.ClearCooldown(c.Request.Context(), id); errClear != nil {
		if errors.Is(errClear, keystore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear cooldown failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// ListLogs handles GET /admin/logs.
func (h *AdminHandler) ListLogs(c *gin.Context) {
	keyID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("key_id")), 10, 64)
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	offset, _ := strconv.Atoi(strings.TrimSpace(c.Query("offset")))

	logs, total, errList := h.reporter.ListLogs(c.Request.Context(), usage.LogFilter{
		Provider: c.Query("provider"),
		KeyID:    keyID,
		Model:    c.Query("tier"),
		Limit:    limit,
		Offset:   offset,
	})
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list logs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	summary, errStats := h.reporter.Stats(c.Request.Context())
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load stats failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// parseKeyID reads the :id route parameter, writing the error response on
// failure.
func parseKeyID(c *gin.Context) (uint64, bool) {
	id, errID := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errID != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
