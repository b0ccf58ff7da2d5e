// Package template exposes the portfolio template catalog.
package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"openpersona/internal/database"
)

// ErrUnknownTemplate is returned when a slug does not reference an active
// catalog entry.
var ErrUnknownTemplate = errors.New("template not found")

// Catalog reads template records.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog constructs a Catalog.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Entry is the API shape of a catalog record.
type Entry struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PreviewURL  string `json:"previewUrl"`
	IsActive    bool   `json:"isActive"`
}

// ListActive returns active templates ordered by name.
func (c *Catalog) ListActive(ctx context.Context) ([]Entry, error) {
	var rows []database.Template
	if err := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			Slug:        row.Slug,
			Name:        row.Name,
			Description: row.Description,
			PreviewURL:  row.PreviewURL,
			IsActive:    row.IsActive,
		})
	}
	return entries, nil
}

// EnsureExists fails with ErrUnknownTemplate unless the slug names an active
// template. Empty slugs are accepted; callers treat them as "no change".
func (c *Catalog) EnsureExists(ctx context.Context, slug string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil
	}

	var row database.Template
	err := c.db.WithContext(ctx).
		Select("slug").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownTemplate
	}
	if err != nil {
		return fmt.Errorf("lookup template %q: %w", slug, err)
	}
	return nil
}
