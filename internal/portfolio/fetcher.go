package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"openpersona/internal/database"
)

const signedURLTTL = 600 * time.Second

// mediaCategories are the upload kinds that belong in the portfolio bundle.
var mediaCategories = []string{"avatar", "banner", "project", "portfolio"}

// Fetch assembles the full read model for one user. The ten reads fan out
// concurrently; media keys are then resolved to signed URLs, and a signing
// failure degrades that item alone instead of failing the fetch. Collection
// rows written in one batch share created_at, so position breaks the tie and
// keeps the saved order.
func (s *Service) Fetch(ctx context.Context, userID uint) (*Bundle, error) {
	bundle := &Bundle{
		Experiences:    []ExperienceView{},
		Education:      []EducationView{},
		Projects:       []ProjectView{},
		Achievements:   []AchievementView{},
		Skills:         []SkillView{},
		Certifications: []CertificationView{},
		Media:          []MediaItem{},
		Dashboards:     []DashboardView{},
	}

	var uploads []database.Upload

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var row database.Profile
		err := s.db.WithContext(gctx).Where("user_id = ?", userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		social := json.RawMessage(row.SocialLinks)
		if len(social) == 0 {
			social = json.RawMessage("[]")
		}
		bundle.Profile = &ProfileView{
			UserID:      row.UserID,
			Headline:    row.Headline,
			Bio:         row.Bio,
			Location:    row.Location,
			AvatarURL:   row.AvatarURL,
			BannerURL:   row.BannerURL,
			Template:    row.Template,
			SocialLinks: social,
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Experience
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("start_date DESC NULLS LAST").
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch experiences: %w", err)
		}
		for _, row := range rows {
			bundle.Experiences = append(bundle.Experiences, ExperienceView{
				ID:        row.ID,
				Company:   row.Company,
				Role:      row.Role,
				Summary:   row.Summary,
				StartDate: row.StartDate,
				EndDate:   row.EndDate,
			})
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Education
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("start_date DESC NULLS LAST").
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch education: %w", err)
		}
		for _, row := range rows {
			bundle.Education = append(bundle.Education, EducationView{
				ID:          row.ID,
				Institution: row.Institution,
				Degree:      row.Degree,
				Summary:     row.Summary,
				StartDate:   row.StartDate,
				EndDate:     row.EndDate,
			})
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Project
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch projects: %w", err)
		}
		for _, row := range rows {
			bundle.Projects = append(bundle.Projects, ProjectView{
				ID:            row.ID,
				Title:         row.Title,
				Description:   row.Description,
				Tags:          rawOrEmptyArray(row.Tags),
				Links:         rawOrEmptyArray(row.Links),
				DashboardSlug: row.DashboardSlug,
			})
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Achievement
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch achievements: %w", err)
		}
		for _, row := range rows {
			bundle.Achievements = append(bundle.Achievements, AchievementView{
				ID:          row.ID,
				Title:       row.Title,
				Description: row.Description,
			})
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Skill
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch skills: %w", err)
		}
		for _, row := range rows {
			bundle.Skills = append(bundle.Skills, SkillView{
				ID:    row.ID,
				Name:  row.Name,
				Level: row.Level,
			})
		}
		return nil
	})

	g.Go(func() error {
		var rows []database.Certification
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Order("position ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch certifications: %w", err)
		}
		for _, row := range rows {
			bundle.Certifications = append(bundle.Certifications, CertificationView{
				ID:           row.ID,
				Name:         row.Name,
				Issuer:       row.Issuer,
				Summary:      row.Summary,
				CredentialID: row.CredentialID,
				IssuedAt:     row.IssuedAt,
				ExpiresAt:    row.ExpiresAt,
			})
		}
		return nil
	})

	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Where("user_id = ? AND category IN ?", userID, mediaCategories).
			Order("created_at DESC").
			Find(&uploads).Error
		if err != nil {
			return fmt.Errorf("fetch uploads: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var row database.Resume
		err := s.db.WithContext(gctx).
			Where("user_id = ? AND analysis IS NOT NULL", userID).
			Order("analyzed_at DESC NULLS LAST").
			Order("created_at DESC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch resume analysis: %w", err)
		}
		bundle.Draft = extractDraft(row.Analysis)
		return nil
	})

	g.Go(func() error {
		var rows []database.Dashboard
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("fetch dashboards: %w", err)
		}
		for _, row := range rows {
			layout := json.RawMessage(row.Layout)
			if len(layout) == 0 {
				layout = json.RawMessage("{}")
			}
			bundle.Dashboards = append(bundle.Dashboards, DashboardView{
				ID:         row.ID,
				Title:      row.Title,
				Slug:       row.Slug,
				Visibility: row.Visibility,
				Layout:     layout,
				IsPrimary:  row.IsPrimary,
				UpdatedAt:  row.UpdatedAt,
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, file := range uploads {
		item := MediaItem{
			ID:        file.ID,
			Category:  file.Category,
			ObjectKey: file.ObjectKey,
			CreatedAt: file.CreatedAt,
		}
		url, err := s.signer.GeneratePresignedURL(ctx, file.ObjectKey, signedURLTTL)
		if err != nil {
			item.Error = "Failed to sign URL"
		} else {
			item.URL = &url
		}
		bundle.Media = append(bundle.Media, item)
	}

	return bundle, nil
}

func rawOrEmptyArray(data []byte) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(data)
}

// extractDraft pulls the portfolioDraft sub-document out of a resume
// analysis, returning nil when absent or malformed.
func extractDraft(analysis []byte) json.RawMessage {
	if len(analysis) == 0 {
		return nil
	}
	var envelope struct {
		PortfolioDraft json.RawMessage `json:"portfolioDraft"`
	}
	if err := json.Unmarshal(analysis, &envelope); err != nil {
		return nil
	}
	if len(envelope.PortfolioDraft) == 0 || string(envelope.PortfolioDraft) == "null" {
		return nil
	}
	return envelope.PortfolioDraft
}
