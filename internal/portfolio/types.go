package portfolio

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SocialLink is one ordered {label,url} entry embedded in the profile.
type SocialLink struct {
	Label string `json:"label" binding:"required,max=40"`
	URL   string `json:"url" binding:"required,url"`
}

// ProfilePatch carries partial-update semantics: nil pointer = keep current
// value, set pointer = overwrite (an explicit empty string clears the field).
type ProfilePatch struct {
	Headline    *string      `json:"headline"`
	Bio         *string      `json:"bio"`
	Location    *string      `json:"location"`
	AvatarURL   *string      `json:"avatarUrl"`
	BannerURL   *string      `json:"bannerUrl"`
	Template    *string      `json:"template"`
	SocialLinks []SocialLink `json:"socialLinks"`
}

// ExperienceItem is one inbound work-history entry.
type ExperienceItem struct {
	Company   string `json:"company" binding:"required,max=160"`
	Role      string `json:"role" binding:"required,max=160"`
	Summary   string `json:"summary" binding:"max=2000"`
	StartDate string `json:"startDate" binding:"max=40"`
	EndDate   string `json:"endDate" binding:"max=40"`
}

// EducationItem is one inbound study-history entry.
type EducationItem struct {
	Institution string `json:"institution" binding:"required,max=160"`
	Degree      string `json:"degree" binding:"max=160"`
	Summary     string `json:"summary" binding:"max=2000"`
	StartDate   string `json:"startDate" binding:"max=40"`
	EndDate     string `json:"endDate" binding:"max=40"`
}

// ProjectItem is one inbound showcase entry.
type ProjectItem struct {
	Title         string   `json:"title" binding:"required,max=180"`
	Description   string   `json:"description" binding:"max=2000"`
	Tags          []string `json:"tags"`
	Links         []string `json:"links"`
	DashboardSlug *string  `json:"dashboardSlug" binding:"omitempty,max=64"`
}

// AchievementItem is one inbound accomplishment entry.
type AchievementItem struct {
	Title       string `json:"title" binding:"required,max=160"`
	Description string `json:"description" binding:"max=2000"`
}

// SkillItem is one inbound skill entry.
type SkillItem struct {
	Name  string `json:"name" binding:"required,max=80"`
	Level string `json:"level" binding:"max=80"`
}

// CertificationItem is one inbound credential entry.
type CertificationItem struct {
	Name         string `json:"name" binding:"required,max=160"`
	Issuer       string `json:"issuer" binding:"max=160"`
	Summary      string `json:"summary" binding:"max=2000"`
	CredentialID string `json:"credentialId" binding:"max=120"`
	IssuedAt     string `json:"issuedAt" binding:"max=40"`
	ExpiresAt    string `json:"expiresAt" binding:"max=40"`
}

// DashboardPatch selects the dashboard mutation path: id set = partial
// update, title set without id = create, neither = no-op.
type DashboardPatch struct {
	ID         *uint          `json:"id"`
	Title      *string        `json:"title"`
	Slug       *string        `json:"slug"`
	Visibility *string        `json:"visibility" binding:"omitempty,oneof=private unlisted public"`
	Layout     datatypes.JSON `json:"layout"`
}

// SavePayload is the full portfolio save request. Collections are replaced
// wholesale; an omitted collection key clears the stored collection.
type SavePayload struct {
	Profile        *ProfilePatch       `json:"profile"`
	Summary        string              `json:"summary" binding:"max=2000"`
	Experiences    []ExperienceItem    `json:"experiences"`
	Education      []EducationItem     `json:"education"`
	Projects       []ProjectItem       `json:"projects"`
	Achievements   []AchievementItem   `json:"achievements"`
	Skills         []SkillItem         `json:"skills"`
	Certifications []CertificationItem `json:"certifications"`
	Publish        bool                `json:"publish"`
	Dashboard      *DashboardPatch     `json:"dashboard"`
}

// ProfileView is the read-side profile shape.
type ProfileView struct {
	UserID      uint            `json:"userId"`
	Headline    string          `json:"headline"`
	Bio         string          `json:"bio"`
	Location    string          `json:"location"`
	AvatarURL   string          `json:"avatarUrl"`
	BannerURL   string          `json:"bannerUrl"`
	Template    string          `json:"template"`
	SocialLinks json.RawMessage `json:"socialLinks"`
}

// ExperienceView is the read-side experience shape.
type ExperienceView struct {
	ID        uint    `json:"id"`
	Company   string  `json:"company"`
	Role      string  `json:"role"`
	Summary   string  `json:"summary"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// EducationView is the read-side education shape.
type EducationView struct {
	ID          uint    `json:"id"`
	Institution string  `json:"institution"`
	Degree      string  `json:"degree"`
	Summary     string  `json:"summary"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

// ProjectView is the read-side project shape.
type ProjectView struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Tags          json.RawMessage `json:"tags"`
	Links         json.RawMessage `json:"links"`
	DashboardSlug *string         `json:"dashboardSlug"`
}

// AchievementView is the read-side achievement shape.
type AchievementView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SkillView is the read-side skill shape.
type SkillView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// CertificationView is the read-side certification shape.
type CertificationView struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Issuer       string  `json:"issuer"`
	Summary      string  `json:"summary"`
	CredentialID string  `json:"credentialId"`
	IssuedAt     *string `json:"issuedAt"`
	ExpiresAt    *string `json:"expiresAt"`
}

// MediaItem is one upload resolved to a time-limited signed URL. A signing
// failure degrades to a nil URL plus an error marker for that item only.
type MediaItem struct {
	ID        uint      `json:"id"`
	Category  string    `json:"category"`
	ObjectKey string    `json:"objectKey"`
	URL       *string   `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	Error     string    `json:"error,omitempty"`
}

// DashboardView is the read-side dashboard shape.
type DashboardView struct {
	ID         uint            `json:"id"`
	Title      string          `json:"title"`
	Slug       string          `json:"slug"`
	Visibility string          `json:"visibility"`
	Layout     json.RawMessage `json:"layout"`
	IsPrimary  bool            `json:"isPrimary"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Bundle is the aggregated read model for one user's portfolio.
type Bundle struct {
	Profile        *ProfileView        `json:"profile"`
	Experiences    []ExperienceView    `json:"experiences"`
	Education      []EducationView     `json:"education"`
	Projects       []ProjectView       `json:"projects"`
	Achievements   []AchievementView   `json:"achievements"`
	Skills         []SkillView         `json:"skills"`
	Certifications []CertificationView `json:"certifications"`
	Media          []MediaItem         `json:"media"`
	Draft          json.RawMessage     `json:"draft"`
	Dashboards     []DashboardView     `json:"dashboards"`
}
