package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"openpersona/internal/database"
)

// URLSigner resolves object keys to time-limited download URLs.
type URLSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// Service orchestrates portfolio reads and the save/publish transaction.
type Service struct {
	db        *gorm.DB
	signer    URLSigner
	templates TemplateChecker
}

// NewService constructs a Service.
func NewService(db *gorm.DB, signer URLSigner, templates TemplateChecker) *Service {
	return &Service{db: db, signer: signer, templates: templates}
}

// Save applies a full portfolio payload in one transaction: merge the
// profile, replace all six collections (an omitted collection clears the
// stored one), and mutate the dashboard. Any failure rolls the whole save
// back; on success the bundle is re-read outside the transaction.
//
// A requested publish happens after the commit and only when the readiness
// checklist passes; otherwise the saved bundle comes back together with a
// NotReadyError.
func (s *Service) Save(ctx context.Context, user *database.User, payload SavePayload) (*Bundle, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mergeProfile(ctx, tx, user.ID, payload.Profile, payload.Summary, s.templates); err != nil {
			return err
		}

		if err := replaceExperiences(tx, user.ID, payload.Experiences); err != nil {
			return err
		}
		if err := replaceEducation(tx, user.ID, payload.Education); err != nil {
			return err
		}
		if err := replaceProjects(tx, user.ID, payload.Projects); err != nil {
			return err
		}
		if err := replaceAchievements(tx, user.ID, payload.Achievements); err != nil {
			return err
		}
		if err := replaceSkills(tx, user.ID, payload.Skills); err != nil {
			return err
		}
		if err := replaceCertifications(tx, user.ID, payload.Certifications); err != nil {
			return err
		}

		_, err := mutateDashboard(tx, user, payload.Dashboard)
		return err
	})
	if err != nil {
		return nil, err
	}

	bundle, err := s.Fetch(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if payload.Publish {
		verdict := Evaluate(bundle)
		if !verdict.Ready {
			return bundle, &NotReadyError{Readiness: verdict}
		}
		if err := publishPrimary(s.db.WithContext(ctx), user.ID); err != nil {
			return nil, err
		}
		for i := range bundle.Dashboards {
			if bundle.Dashboards[i].IsPrimary {
				bundle.Dashboards[i].Visibility = "public"
			}
		}
	}

	return bundle, nil
}

// UpdateProfile applies a profile patch on its own, outside a full save.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, patch *ProfilePatch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mergeProfile(ctx, tx, userID, patch, "", s.templates)
	})
}

// MutateDashboard creates or updates a single dashboard in its own
// transaction, following the same patch semantics as a full save, and
// returns the affected row.
func (s *Service) MutateDashboard(ctx context.Context, user *database.User, patch *DashboardPatch) (*database.Dashboard, error) {
	var dash *database.Dashboard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		dash, txErr = mutateDashboard(tx, user, patch)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return dash, nil
}

// PublishPrimary flips the primary dashboard's visibility to public.
// Publishing an already-public dashboard is a no-op, so the call is
// idempotent.
func (s *Service) PublishPrimary(ctx context.Context, userID uint) error {
	return publishPrimary(s.db.WithContext(ctx), userID)
}

func publishPrimary(tx *gorm.DB, userID uint) error {
	err := tx.Model(&database.Dashboard{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("visibility", "public").Error
	if err != nil {
		return fmt.Errorf("publish primary dashboard: %w", err)
	}
	return nil
}

// DeleteDashboard removes a dashboard in its own transaction, promoting a
// successor when the primary goes away.
func (s *Service) DeleteDashboard(ctx context.Context, userID, dashboardID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteDashboard(tx, userID, dashboardID)
	})
}

// DuplicateDashboard clones title/visibility/layout under a fresh slug.
// The copy is never primary.
func (s *Service) DuplicateDashboard(ctx context.Context, userID, dashboardID uint) (*database.Dashboard, error) {
	var original database.Dashboard
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", dashboardID, userID).
		First(&original).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDashboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	copyDash := database.Dashboard{
		UserID:     userID,
		Title:      original.Title + " (Copy)",
		Slug:       fmt.Sprintf("%s-copy-%d", original.Slug, time.Now().UnixMilli()),
		Visibility: original.Visibility,
		Layout:     original.Layout,
	}
	if err := s.db.WithContext(ctx).Create(&copyDash).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("duplicate dashboard: %w", err)
	}
	return &copyDash, nil
}

// ReorderDashboards assigns positions following the supplied id order, in
// one transaction. Ids not owned by the user are skipped silently.
func (s *Service) ReorderDashboards(ctx context.Context, userID uint, ids []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			err := tx.Model(&database.Dashboard{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("position", i).Error
			if err != nil {
				return fmt.Errorf("reorder dashboard %d: %w", id, err)
			}
		}
		return nil
	})
}
