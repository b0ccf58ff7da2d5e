package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"openpersona/internal/api/middleware"
	"openpersona/internal/database"
	"openpersona/internal/portfolio"
	"openpersona/internal/template"
)

// ProfileHandler serves the identity document endpoints.
type ProfileHandler struct {
	db        *gorm.DB
	portfolio *portfolio.Service
	templates *template.Catalog
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, portfolioService *portfolio.Service, templates *template.Catalog) *ProfileHandler {
	return &ProfileHandler{db: db, portfolio: portfolioService, templates: templates}
}

type updateHandleRequest struct {
	Handle string `json:"handle" binding:"required,min=3,max=30,alphanum"`
}

type updateTemplateRequest struct {
	Template string `json:"template" binding:"required,max=64"`
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetUint("userID")

	var row database.Profile
	err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "profile not found")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("profile lookup failed", "error", err)
		Internal(c, "profile lookup failed")
		return
	}

	social := json.RawMessage(row.SocialLinks)
	if len(social) == 0 {
		social = json.RawMessage("[]")
	}
	c.JSON(http.StatusOK, gin.H{"profile": portfolio.ProfileView{
		UserID:      row.UserID,
		Headline:    row.Headline,
		Bio:         row.Bio,
		Location:    row.Location,
		AvatarURL:   row.AvatarURL,
		BannerURL:   row.BannerURL,
		Template:    row.Template,
		SocialLinks: social,
	}})
}

// Update applies a partial profile patch.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetUint("userID")

	var patch portfolio.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, "invalid profile payload")
		return
	}

	if err := h.portfolio.UpdateProfile(c.Request.Context(), userID, &patch); err != nil {
		if errors.Is(err, template.ErrUnknownTemplate) {
			BadRequest(c, "unknown template")
			return
		}
		middleware.LoggerFromContext(c).Error("profile update failed", "error", err)
		Internal(c, "profile update failed")
		return
	}

	h.Get(c)
}

// UpdateHandle changes the public handle and re-slugs the primary dashboard
// to match, in one transaction. Handles are globally unique.
func (h *ProfileHandler) UpdateHandle(c *gin.Context) {
	userID := c.GetUint("userID")

	var req updateHandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid handle payload")
		return
	}
	handle := strings.ToLower(strings.TrimSpace(req.Handle))

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).
			Where("id = ?", userID).
			Update("handle", handle).Error; err != nil {
			return err
		}
		return tx.Model(&database.Dashboard{}).
			Where("user_id = ? AND is_primary = ?", userID, true).
			Update("slug", handle).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		Conflict(c, "handle already in use")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("handle update failed", "error", err)
		Internal(c, "handle update failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"handle": handle})
}

// UpdateTemplate switches the profile to another active catalog template.
func (h *ProfileHandler) UpdateTemplate(c *gin.Context) {
	userID := c.GetUint("userID")

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid template payload")
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Template))

	ctx := c.Request.Context()
	if err := h.templates.EnsureExists(ctx, slug); err != nil {
		if errors.Is(err, template.ErrUnknownTemplate) {
			BadRequest(c, "unknown template")
			return
		}
		middleware.LoggerFromContext(c).Error("template lookup failed", "error", err)
		Internal(c, "template update failed")
		return
	}

	err := h.db.WithContext(ctx).
		Model(&database.Profile{}).
		Where("user_id = ?", userID).
		Update("template", slug).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("template update failed", "error", err)
		Internal(c, "template update failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": slug})
}
