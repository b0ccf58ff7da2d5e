package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/api/middleware"
	"openpersona/internal/database"
	"openpersona/internal/plan"
	"openpersona/internal/portfolio"
)

// DashboardHandler serves dashboard CRUD plus duplicate/reorder/visibility.
type DashboardHandler struct {
	db            *gorm.DB
	portfolio     *portfolio.Service
	portfolioBase string
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB, portfolioService *portfolio.Service, portfolioBase string) *DashboardHandler {
	return &DashboardHandler{db: db, portfolio: portfolioService, portfolioBase: portfolioBase}
}

type createDashboardRequest struct {
	Title      string         `json:"title" binding:"required,max=140"`
	Slug       string         `json:"slug" binding:"max=64"`
	Visibility string         `json:"visibility" binding:"omitempty,oneof=private unlisted public"`
	Layout     datatypes.JSON `json:"layout"`
}

type updateDashboardRequest struct {
	Title      *string        `json:"title" binding:"omitempty,max=140"`
	Slug       *string        `json:"slug" binding:"omitempty,max=64"`
	Visibility *string        `json:"visibility" binding:"omitempty,oneof=private unlisted public"`
	Layout     datatypes.JSON `json:"layout"`
}

type reorderDashboardsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type visibilityRequest struct {
	Visibility string `json:"visibility" binding:"required,oneof=private unlisted public"`
}

func (h *DashboardHandler) loadUser(c *gin.Context) (*database.User, bool) {
	return currentUser(c, h.db)
}

func dashboardParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid dashboard id")
		return 0, false
	}
	return uint(id), true
}

func (h *DashboardHandler) writeMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portfolio.ErrDashboardNotFound):
		NotFound(c, "dashboard not found")
	case errors.Is(err, portfolio.ErrSlugTaken):
		Conflict(c, "slug already in use")
	case errors.Is(err, portfolio.ErrPlanLimit):
		Forbidden(c, "dashboard limit reached for current plan")
	case errors.Is(err, portfolio.ErrSoleDashboard):
		Conflict(c, "cannot delete the only dashboard")
	default:
		middleware.LoggerFromContext(c).Error("dashboard mutation failed", "error", err)
		Internal(c, "dashboard operation failed")
	}
}

func toDashboardView(row *database.Dashboard) portfolio.DashboardView {
	layout := json.RawMessage(row.Layout)
	if len(layout) == 0 {
		layout = json.RawMessage("{}")
	}
	return portfolio.DashboardView{
		ID:         row.ID,
		Title:      row.Title,
		Slug:       row.Slug,
		Visibility: row.Visibility,
		Layout:     layout,
		IsPrimary:  row.IsPrimary,
		UpdatedAt:  row.UpdatedAt,
	}
}

// List returns the caller's dashboards ordered by position, the plan limits,
// and the shareable links.
func (h *DashboardHandler) List(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var rows []database.Dashboard
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("dashboard list failed", "error", err)
		Internal(c, "dashboard list failed")
		return
	}

	views := make([]portfolio.DashboardView, 0, len(rows))
	for i := range rows {
		views = append(views, toDashboardView(&rows[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboards": views,
		"links":      portfolio.BuildLinks(h.portfolioBase, user.Handle, views),
		"plan":       plan.GetDefinition(user.Plan),
	})
}

// Create adds a dashboard subject to the plan cap.
func (h *DashboardHandler) Create(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req createDashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid dashboard payload")
		return
	}

	patch := portfolio.DashboardPatch{
		Title:  &req.Title,
		Layout: req.Layout,
	}
	if req.Slug != "" {
		patch.Slug = &req.Slug
	}
	if req.Visibility != "" {
		patch.Visibility = &req.Visibility
	}

	created, err := h.portfolio.MutateDashboard(c.Request.Context(), user, &patch)
	if err != nil {
		h.writeMutationError(c, err)
		return
	}
	if created == nil {
		BadRequest(c, "invalid dashboard payload")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dashboard": toDashboardView(created)})
}

// Get returns one dashboard the caller owns.
func (h *DashboardHandler) Get(c *gin.Context) {
	userID := c.GetUint("userID")
	id, ok := dashboardParam(c)
	if !ok {
		return
	}

	var row database.Dashboard
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "dashboard not found")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("dashboard lookup failed", "error", err)
		Internal(c, "dashboard lookup failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": toDashboardView(&row)})
}

// Update applies a partial patch to one dashboard.
func (h *DashboardHandler) Update(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	id, ok := dashboardParam(c)
	if !ok {
		return
	}

	var req updateDashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid dashboard payload")
		return
	}

	patch := portfolio.DashboardPatch{
		ID:         &id,
		Title:      req.Title,
		Slug:       req.Slug,
		Visibility: req.Visibility,
		Layout:     req.Layout,
	}
	if _, err := h.portfolio.MutateDashboard(c.Request.Context(), user, &patch); err != nil {
		h.writeMutationError(c, err)
		return
	}

	h.Get(c)
}

// UpdateVisibility changes just the visibility of one dashboard.
func (h *DashboardHandler) UpdateVisibility(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	id, ok := dashboardParam(c)
	if !ok {
		return
	}

	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid visibility payload")
		return
	}

	patch := portfolio.DashboardPatch{ID: &id, Visibility: &req.Visibility}
	if _, err := h.portfolio.MutateDashboard(c.Request.Context(), user, &patch); err != nil {
		h.writeMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"visibility": req.Visibility})
}

// Delete removes a dashboard, promoting a successor when the primary one
// goes away.
func (h *DashboardHandler) Delete(c *gin.Context) {
	userID := c.GetUint("userID")
	id, ok := dashboardParam(c)
	if !ok {
		return
	}

	if err := h.portfolio.DeleteDashboard(c.Request.Context(), userID, id); err != nil {
		h.writeMutationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Duplicate clones a dashboard under a fresh slug.
func (h *DashboardHandler) Duplicate(c *gin.Context) {
	userID := c.GetUint("userID")
	id, ok := dashboardParam(c)
	if !ok {
		return
	}

	copyDash, err := h.portfolio.DuplicateDashboard(c.Request.Context(), userID, id)
	if err != nil {
		h.writeMutationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dashboard": toDashboardView(copyDash)})
}

// Reorder persists a new dashboard ordering.
func (h *DashboardHandler) Reorder(c *gin.Context) {
	userID := c.GetUint("userID")

	var req reorderDashboardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid reorder payload")
		return
	}

	if err := h.portfolio.ReorderDashboards(c.Request.Context(), userID, req.IDs); err != nil {
		middleware.LoggerFromContext(c).Error("dashboard reorder failed", "error", err)
		Internal(c, "dashboard reorder failed")
		return
	}

	c.Status(http.StatusNoContent)
}
