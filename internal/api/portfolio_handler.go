package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/ai"
	"openpersona/internal/api/middleware"
	"openpersona/internal/database"
	"openpersona/internal/portfolio"
	"openpersona/internal/template"
)

// ObjectReader loads small stored documents, such as resume text.
type ObjectReader interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
}

// PortfolioHandler serves the aggregated portfolio endpoints plus the AI
// assisted draft and enhancement flows.
type PortfolioHandler struct {
	db            *gorm.DB
	portfolio     *portfolio.Service
	generator     ai.Generator
	reader        ObjectReader
	templates     *template.Catalog
	portfolioBase string
}

// NewPortfolioHandler constructs a PortfolioHandler.
func NewPortfolioHandler(
	db *gorm.DB,
	portfolioService *portfolio.Service,
	generator ai.Generator,
	reader ObjectReader,
	templates *template.Catalog,
	portfolioBase string,
) *PortfolioHandler {
	return &PortfolioHandler{
		db:            db,
		portfolio:     portfolioService,
		generator:     generator,
		reader:        reader,
		templates:     templates,
		portfolioBase: portfolioBase,
	}
}

type draftRequest struct {
	ResumeID   *uint  `json:"resumeId"`
	ResumeText string `json:"resumeText" binding:"max=50000"`
	Notes      string `json:"notes" binding:"max=2000"`
}

type enhanceRequest struct {
	Text    string `json:"text" binding:"required,max=5000"`
	Tone    string `json:"tone" binding:"max=80"`
	Persona string `json:"persona" binding:"max=160"`
}

func (h *PortfolioHandler) bundleResponse(c *gin.Context, user *database.User, bundle *portfolio.Bundle) gin.H {
	return gin.H{
		"portfolio": bundle,
		"readiness": portfolio.Evaluate(bundle),
		"links":     portfolio.BuildLinks(h.portfolioBase, user.Handle, bundle.Dashboards),
	}
}

// Blueprint returns the full read model together with readiness, share
// links, the publication checklist and the active templates.
func (h *PortfolioHandler) Blueprint(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	bundle, err := h.portfolio.Fetch(ctx, user.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("portfolio fetch failed", "error", err)
		Internal(c, "portfolio fetch failed")
		return
	}
	entries, err := h.templates.ListActive(ctx)
	if err != nil {
		middleware.LoggerFromContext(c).Error("template list failed", "error", err)
		Internal(c, "portfolio fetch failed")
		return
	}

	resp := h.bundleResponse(c, user, bundle)
	resp["requirements"] = portfolio.Requirements
	resp["templates"] = entries
	c.JSON(http.StatusOK, resp)
}

// Status returns the readiness verdict, the publication checklist, share
// links and the active templates, without the bundle itself.
func (h *PortfolioHandler) Status(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	bundle, err := h.portfolio.Fetch(ctx, user.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("portfolio fetch failed", "error", err)
		Internal(c, "portfolio fetch failed")
		return
	}
	entries, err := h.templates.ListActive(ctx)
	if err != nil {
		middleware.LoggerFromContext(c).Error("template list failed", "error", err)
		Internal(c, "portfolio fetch failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"readiness":    portfolio.Evaluate(bundle),
		"requirements": portfolio.Requirements,
		"links":        portfolio.BuildLinks(h.portfolioBase, user.Handle, bundle.Dashboards),
		"templates":    entries,
	})
}

// Save applies a full portfolio payload transactionally and returns the
// resulting bundle.
func (h *PortfolioHandler) Save(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	var payload portfolio.SavePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, "invalid portfolio payload")
		return
	}

	bundle, err := h.portfolio.Save(c.Request.Context(), user, payload)
	if err != nil {
		var notReady *portfolio.NotReadyError
		switch {
		case errors.As(err, &notReady):
			// The save itself is committed; only the publish is refused.
			Unprocessable(c, gin.H{
				"error":     "portfolio is not ready to publish",
				"missing":   notReady.Readiness.Missing,
				"portfolio": bundle,
			})
		case errors.Is(err, template.ErrUnknownTemplate):
			BadRequest(c, "unknown template")
		case errors.Is(err, portfolio.ErrDashboardNotFound):
			NotFound(c, "dashboard not found")
		case errors.Is(err, portfolio.ErrSlugTaken):
			Conflict(c, "slug already in use")
		case errors.Is(err, portfolio.ErrPlanLimit):
			Forbidden(c, "dashboard limit reached for current plan")
		default:
			middleware.LoggerFromContext(c).Error("portfolio save failed", "error", err)
			Internal(c, "portfolio save failed")
		}
		return
	}

	c.JSON(http.StatusOK, h.bundleResponse(c, user, bundle))
}

// Publish forces the primary dashboard public, but only once the readiness
// checklist passes; an incomplete portfolio gets the unmet requirements back.
func (h *PortfolioHandler) Publish(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	bundle, err := h.portfolio.Fetch(ctx, user.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("portfolio fetch failed", "error", err)
		Internal(c, "publish failed")
		return
	}

	readiness := portfolio.Evaluate(bundle)
	if !readiness.Ready {
		Unprocessable(c, gin.H{
			"error":   "portfolio is not ready to publish",
			"missing": readiness.Missing,
		})
		return
	}

	if err := h.portfolio.PublishPrimary(ctx, user.ID); err != nil {
		middleware.LoggerFromContext(c).Error("publish failed", "error", err)
		Internal(c, "publish failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"published": true,
		"links":     portfolio.BuildLinks(h.portfolioBase, user.Handle, bundle.Dashboards),
	})
}

// Draft turns resume text into a structured portfolio draft. The text comes
// either inline or from a stored resume; when a resume is referenced the
// draft is persisted into its analysis document.
func (h *PortfolioHandler) Draft(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()

	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid draft payload")
		return
	}

	resumeText := strings.TrimSpace(req.ResumeText)
	var resume *database.Resume

	if req.ResumeID != nil {
		var row database.Resume
		err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *req.ResumeID, userID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		if err != nil {
			middleware.LoggerFromContext(c).Error("resume lookup failed", "error", err)
			Internal(c, "draft failed")
			return
		}
		resume = &row

		if resumeText == "" {
			data, err := h.reader.ReadObject(ctx, row.ObjectKey)
			if err != nil {
				middleware.LoggerFromContext(c).Error("resume read failed", "error", err)
				Internal(c, "draft failed")
				return
			}
			resumeText = strings.TrimSpace(string(data))
		}
	}

	if resumeText == "" {
		BadRequest(c, "resume text is required")
		return
	}

	raw, err := h.generator.GenerateText(ctx, ai.BuildDraftPrompt(resumeText, req.Notes))
	if err != nil {
		// Model outage degrades to the empty draft; the stored analysis is
		// left untouched.
		middleware.LoggerFromContext(c).Error("draft generation failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"draft": ai.EmptyDraft()})
		return
	}
	draft := ai.NormalizeDraft(raw)

	if resume != nil {
		analysis, err := json.Marshal(gin.H{"portfolioDraft": draft})
		if err != nil {
			middleware.LoggerFromContext(c).Error("draft encode failed", "error", err)
			Internal(c, "draft failed")
			return
		}
		now := time.Now()
		err = h.db.WithContext(ctx).Model(resume).Updates(map[string]any{
			"analysis":    datatypes.JSON(analysis),
			"analyzed_at": &now,
		}).Error
		if err != nil {
			middleware.LoggerFromContext(c).Error("draft persist failed", "error", err)
			Internal(c, "draft failed")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// Enhance rewrites a piece of identity text in the requested tone.
func (h *PortfolioHandler) Enhance(c *gin.Context) {
	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid enhance payload")
		return
	}

	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = "professional"
	}

	raw, err := h.generator.GenerateText(c.Request.Context(), ai.BuildEnhancePrompt(req.Text, tone, req.Persona))
	if err != nil {
		middleware.LoggerFromContext(c).Error("enhance generation failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"enhancement": ai.Enhancement{
			EnhancedText: req.Text,
			Suggestions:  []string{},
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enhancement": ai.NormalizeEnhancement(raw, req.Text)})
}

// Templates lists the active catalog entries.
func (h *PortfolioHandler) Templates(c *gin.Context) {
	entries, err := h.templates.ListActive(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("template list failed", "error", err)
		Internal(c, "template list failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": entries})
}
