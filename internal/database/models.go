package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an account. Plan tier and admin flag feed the plan policy checks.
type User struct {
	gorm.Model
	Name          string `gorm:"size:80"`
	Email         string `gorm:"uniqueIndex;size:255"`
	Handle        string `gorm:"uniqueIndex;size:30"`
	PasswordHash  string `gorm:"size:255"`
	Plan          string `gorm:"size:16;default:free"`
	IsAdmin       bool   `gorm:"default:false"`
	IsBlocked     bool   `gorm:"default:false"`
	PlanUpdatedAt *time.Time
}

// Profile is the 1:1 identity document for a user. Created empty at
// registration and never created independently afterwards.
type Profile struct {
	gorm.Model
	UserID      uint           `gorm:"uniqueIndex"`
	Headline    string         `gorm:"size:240"`
	Bio         string         `gorm:"size:2000"`
	Location    string         `gorm:"size:120"`
	AvatarURL   string         `gorm:"size:512"`
	BannerURL   string         `gorm:"size:512"`
	Template    string         `gorm:"size:64;default:hire-me"`
	SocialLinks datatypes.JSON `gorm:"type:jsonb"` // ordered [{label,url}]
}

// Dashboard is a user-facing portfolio page. Slug uniqueness per user and
// the single-primary rule are both enforced by unique indexes, so a race
// surfaces as gorm.ErrDuplicatedKey instead of silently corrupting state.
type Dashboard struct {
	gorm.Model
	UserID     uint           `gorm:"index;uniqueIndex:uniq_user_dashboard_slug;index:uniq_primary_dashboard,unique,where:is_primary"`
	Title      string         `gorm:"size:140"`
	Slug       string         `gorm:"size:64;uniqueIndex:uniq_user_dashboard_slug"`
	Visibility string         `gorm:"size:16;default:public"` // private|unlisted|public
	Layout     datatypes.JSON `gorm:"type:jsonb"`
	IsPrimary  bool           `gorm:"default:false"`
	Position   int            `gorm:"default:0"`
}

// Experience is a work-history entry. Dates are normalized YYYY-MM-DD or nil.
type Experience struct {
	gorm.Model
	UserID    uint    `gorm:"index"`
	Company   string  `gorm:"size:160"`
	Role      string  `gorm:"size:160"`
	Summary   string  `gorm:"size:2000"`
	StartDate *string `gorm:"size:10"`
	EndDate   *string `gorm:"size:10"`
	Position  int     `gorm:"default:0"`
}

// Education is a study-history entry.
type Education struct {
	gorm.Model
	UserID      uint    `gorm:"index"`
	Institution string  `gorm:"size:160"`
	Degree      string  `gorm:"size:160"`
	Summary     string  `gorm:"size:2000"`
	StartDate   *string `gorm:"size:10"`
	EndDate     *string `gorm:"size:10"`
	Position    int     `gorm:"default:0"`
}

// Project is a showcase item; optionally pinned to a dashboard by slug.
type Project struct {
	gorm.Model
	UserID        uint           `gorm:"index"`
	Title         string         `gorm:"size:180"`
	Description   string         `gorm:"size:2000"`
	Tags          datatypes.JSON `gorm:"type:jsonb"`
	Links         datatypes.JSON `gorm:"type:jsonb"`
	DashboardSlug *string        `gorm:"size:64"`
	Position      int            `gorm:"default:0"`
}

// Achievement is a headline accomplishment.
type Achievement struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	Title       string `gorm:"size:160"`
	Description string `gorm:"size:2000"`
	Position    int    `gorm:"default:0"`
}

// Skill names a capability with an optional proficiency level.
type Skill struct {
	gorm.Model
	UserID   uint   `gorm:"index"`
	Name     string `gorm:"size:80"`
	Level    string `gorm:"size:80"`
	Position int    `gorm:"default:0"`
}

// Certification is a credential entry.
type Certification struct {
	gorm.Model
	UserID       uint    `gorm:"index"`
	Name         string  `gorm:"size:160"`
	Issuer       string  `gorm:"size:160"`
	Summary      string  `gorm:"size:2000"`
	CredentialID string  `gorm:"size:120"`
	IssuedAt     *string `gorm:"size:10"`
	ExpiresAt    *string `gorm:"size:10"`
	Position     int     `gorm:"default:0"`
}

// Upload records object-store metadata; the object itself lives in MinIO and
// this row is the source of truth for signed-URL generation.
type Upload struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	ObjectKey   string `gorm:"size:512"`
	ContentType string `gorm:"size:128"`
	Size        int64
	Category    string `gorm:"size:32;index"` // avatar|banner|project|portfolio
}

// Resume points at an uploaded resume file plus the AI-derived analysis
// document, which may embed a portfolioDraft sub-document.
type Resume struct {
	gorm.Model
	UserID     uint           `gorm:"index"`
	Title      string         `gorm:"size:255"`
	ObjectKey  string         `gorm:"size:512"`
	Analysis   datatypes.JSON `gorm:"type:jsonb"`
	AnalyzedAt *time.Time
}

// Template is a catalog entry that profiles and dashboards may reference.
type Template struct {
	gorm.Model
	Slug              string         `gorm:"uniqueIndex;size:64"`
	Name              string         `gorm:"size:120"`
	Description       string         `gorm:"size:500"`
	PreviewURL        string         `gorm:"size:512"`
	IsActive          bool           `gorm:"default:true"`
	ThemeConfig       datatypes.JSON `gorm:"type:jsonb"`
	ComponentSnippets datatypes.JSON `gorm:"type:jsonb"`
}

// PasswordReset is a single-use token for the forgot-password flow.
type PasswordReset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Token     string `gorm:"uniqueIndex;size:64"`
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&Dashboard{},
		&Experience{},
		&Education{},
		&Project{},
		&Achievement{},
		&Skill{},
		&Certification{},
		&Upload{},
		&Resume{},
		&Template{},
		&PasswordReset{},
	}
}
