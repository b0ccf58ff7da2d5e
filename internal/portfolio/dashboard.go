package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"openpersona/internal/database"
	"openpersona/internal/plan"
)

// deriveSlug normalizes an explicit slug, slugifies the title otherwise, and
// falls back to a timestamp-suffixed placeholder when slugification yields
// nothing usable.
func deriveSlug(explicit *string, title string) string {
	if explicit != nil {
		if s := strings.ToLower(strings.TrimSpace(*explicit)); s != "" {
			return s
		}
	}
	if s := slug.Make(title); s != "" {
		return s
	}
	return fmt.Sprintf("portfolio-%d", time.Now().UnixMilli())
}

// mutateDashboard creates or partially updates one dashboard inside the
// caller's transaction and returns the affected row. Update path: the id
// must belong to the user and only present fields change. Create path:
// requires a title, enforces the plan cap before insert, and relies on the
// (user_id, slug) unique index for conflict detection. A nil or no-op patch
// returns (nil, nil).
func mutateDashboard(tx *gorm.DB, user *database.User, patch *DashboardPatch) (*database.Dashboard, error) {
	if patch == nil {
		return nil, nil
	}

	if patch.ID != nil {
		var dash database.Dashboard
		err := tx.Where("id = ? AND user_id = ?", *patch.ID, user.ID).First(&dash).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDashboardNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load dashboard: %w", err)
		}

		updates := map[string]any{}
		if patch.Title != nil && *patch.Title != "" {
			updates["title"] = *patch.Title
		}
		if patch.Slug != nil && *patch.Slug != "" {
			updates["slug"] = strings.ToLower(strings.TrimSpace(*patch.Slug))
		}
		if patch.Visibility != nil && *patch.Visibility != "" {
			updates["visibility"] = *patch.Visibility
		}
		if patch.Layout != nil {
			updates["layout"] = patch.Layout
		}
		if len(updates) == 0 {
			return &dash, nil
		}

		if err := tx.Model(&dash).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrSlugTaken
			}
			return nil, fmt.Errorf("update dashboard: %w", err)
		}
		return &dash, nil
	}

	if patch.Title == nil || strings.TrimSpace(*patch.Title) == "" {
		return nil, nil
	}

	var count int64
	if err := tx.Model(&database.Dashboard{}).
		Where("user_id = ?", user.ID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count dashboards: %w", err)
	}
	if !plan.CanCreateDashboard(user.Plan, count, user.IsAdmin) {
		return nil, ErrPlanLimit
	}

	dash := database.Dashboard{
		UserID:     user.ID,
		Title:      *patch.Title,
		Slug:       deriveSlug(patch.Slug, *patch.Title),
		Visibility: "public",
		Layout:     datatypes.JSON([]byte("{}")),
	}
	if patch.Visibility != nil && *patch.Visibility != "" {
		dash.Visibility = *patch.Visibility
	}
	if patch.Layout != nil {
		dash.Layout = patch.Layout
	}

	if err := tx.Create(&dash).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	return &dash, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that speak it.
// SQLite (tests) serializes writers on its own and rejects the syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// deleteDashboard removes one dashboard. Deleting the primary promotes the
// most recently updated survivor under a row lock so the single-primary
// invariant holds across concurrent deletes; deleting the sole dashboard is
// rejected because it would leave the account without a primary.
func deleteDashboard(tx *gorm.DB, userID, dashboardID uint) error {
	var dash database.Dashboard
	err := lockForUpdate(tx).
		Where("id = ? AND user_id = ?", dashboardID, userID).
		First(&dash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDashboardNotFound
	}
	if err != nil {
		return fmt.Errorf("load dashboard: %w", err)
	}

	if !dash.IsPrimary {
		if err := tx.Unscoped().Delete(&dash).Error; err != nil {
			return fmt.Errorf("delete dashboard: %w", err)
		}
		return nil
	}

	var successor database.Dashboard
	err = lockForUpdate(tx).
		Where("user_id = ? AND id <> ?", userID, dash.ID).
		Order("updated_at DESC").
		First(&successor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSoleDashboard
	}
	if err != nil {
		return fmt.Errorf("find successor dashboard: %w", err)
	}

	// Demote-then-promote ordering keeps the partial unique index on
	// is_primary satisfied at every statement.
	if err := tx.Model(&dash).Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("demote dashboard: %w", err)
	}
	if err := tx.Unscoped().Delete(&dash).Error; err != nil {
		return fmt.Errorf("delete dashboard: %w", err)
	}
	if err := tx.Model(&successor).Update("is_primary", true).Error; err != nil {
		return fmt.Errorf("promote dashboard: %w", err)
	}
	return nil
}
