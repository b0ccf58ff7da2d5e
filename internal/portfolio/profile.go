package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/database"
)

// TemplateChecker validates that a template slug references an active
// catalog entry.
type TemplateChecker interface {
	EnsureExists(ctx context.Context, slug string) error
}

// mergeProfile applies partial-update semantics to the user's profile row:
// present fields overwrite (including explicit empty values), absent fields
// keep their current value, and bio falls back to the draft summary when
// both the patch value and the stored bio are blank. The row is written as a
// full replace, not a sparse column update.
func mergeProfile(ctx context.Context, tx *gorm.DB, userID uint, patch *ProfilePatch, summary string, templates TemplateChecker) error {
	if patch == nil && strings.TrimSpace(summary) == "" {
		return nil
	}

	var current database.Profile
	err := tx.Where("user_id = ?", userID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Registration creates the profile; recreate it if the row is gone.
		current = database.Profile{UserID: userID, Template: "hire-me"}
	} else if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if patch != nil {
		if patch.Headline != nil {
			current.Headline = *patch.Headline
		}
		if patch.Bio != nil {
			current.Bio = *patch.Bio
		}
		if patch.Location != nil {
			current.Location = *patch.Location
		}
		if patch.AvatarURL != nil {
			current.AvatarURL = *patch.AvatarURL
		}
		if patch.BannerURL != nil {
			current.BannerURL = *patch.BannerURL
		}
		if patch.Template != nil {
			slug := strings.ToLower(strings.TrimSpace(*patch.Template))
			if slug != "" {
				if err := templates.EnsureExists(ctx, slug); err != nil {
					return err
				}
				current.Template = slug
			}
		}
		if patch.SocialLinks != nil {
			data, err := json.Marshal(patch.SocialLinks)
			if err != nil {
				return fmt.Errorf("encode social links: %w", err)
			}
			current.SocialLinks = datatypes.JSON(data)
		}
	}

	// The summary seeds the bio only when the patch did not address bio at
	// all and nothing is stored yet; an explicit empty bio stays empty.
	bioUntouched := patch == nil || patch.Bio == nil
	if bioUntouched && strings.TrimSpace(current.Bio) == "" && strings.TrimSpace(summary) != "" {
		current.Bio = summary
	}

	if err := tx.Save(&current).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
