package portfolio

import "strings"

// Requirement names one section a portfolio needs before it can be
// published. Keys are stable identifiers the frontend renders a checklist
// from; MinItems only applies to collection-valued keys (default 1).
type Requirement struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	MinItems    int    `json:"minItems,omitempty"`
}

// Requirements is the fixed, ordered publication checklist.
var Requirements = []Requirement{
	{
		Key:         "profile.headline",
		Label:       "Profile headline",
		Description: "Add a punchy headline to anchor the hero section.",
	},
	{
		Key:         "profile.bio",
		Label:       "Summary / bio",
		Description: "Provide a short narrative or summary about the person.",
	},
	{
		Key:         "skills",
		Label:       "Skills",
		Description: "List at least three core skills to highlight strengths.",
		MinItems:    3,
	},
	{
		Key:         "experiences",
		Label:       "Experience entries",
		Description: "Include at least one experience entry to showcase work history.",
		MinItems:    1,
	},
	{
		Key:         "projects",
		Label:       "Project or case studies",
		Description: "Add at least one project or case study to make the portfolio tangible.",
		MinItems:    1,
	},
}

// Readiness reports whether a bundle is publishable and which requirements
// are still unmet.
type Readiness struct {
	Ready   bool          `json:"ready"`
	Missing []Requirement `json:"missing"`
}

// Evaluate checks the bundle against the requirement list. It is pure: the
// verdict is derived entirely from the bundle, with no hidden reads.
func Evaluate(bundle *Bundle) Readiness {
	missing := make([]Requirement, 0, len(Requirements))
	for _, req := range Requirements {
		if !satisfied(bundle, req) {
			missing = append(missing, req)
		}
	}
	return Readiness{Ready: len(missing) == 0, Missing: missing}
}

// satisfied resolves a requirement key through typed accessors. String
// fields count when non-blank after trimming; collections count when they
// hold at least MinItems entries.
func satisfied(bundle *Bundle, req Requirement) bool {
	minItems := req.MinItems
	if minItems <= 0 {
		minItems = 1
	}

	switch req.Key {
	case "profile.headline":
		return bundle.Profile != nil && strings.TrimSpace(bundle.Profile.Headline) != ""
	case "profile.bio":
		return bundle.Profile != nil && strings.TrimSpace(bundle.Profile.Bio) != ""
	case "skills":
		return len(bundle.Skills) >= minItems
	case "experiences":
		return len(bundle.Experiences) >= minItems
	case "projects":
		return len(bundle.Projects) >= minItems
	default:
		// Unknown keys never block publication.
		return true
	}
}
