// Package plan holds the static subscription tier table and the pure
// predicates derived from it.
package plan

// Tier identifiers. Unknown tiers fall back to free.
const (
	TierFree   = "free"
	TierGrowth = "growth"
	TierScale  = "scale"
)

// Definition describes what a subscription tier allows.
type Definition struct {
	Tier           string `json:"tier"`
	Name           string `json:"name"`
	PriceINR       int    `json:"priceInr"`
	DashboardLimit *int   `json:"dashboardLimit"` // nil = unlimited
	StorageLimitMB int    `json:"storageLimitMb"`
	Description    string `json:"description"`
}

func intPtr(v int) *int { return &v }

var definitions = map[string]Definition{
	TierFree: {
		Tier:           TierFree,
		Name:           "Free",
		PriceINR:       0,
		DashboardLimit: intPtr(1),
		StorageLimitMB: 250,
		Description:    "Single dashboard, manual edits, essential storage.",
	},
	TierGrowth: {
		Tier:           TierGrowth,
		Name:           "Growth 149",
		PriceINR:       149,
		DashboardLimit: intPtr(5),
		StorageLimitMB: 1024,
		Description:    "Up to five dashboards plus AI resume analysis.",
	},
	TierScale: {
		Tier:           TierScale,
		Name:           "Scale 250",
		PriceINR:       250,
		DashboardLimit: nil,
		StorageLimitMB: 5120,
		Description:    "Unlimited dashboards, premium AI tooling, concierge support.",
	},
}

// GetDefinition looks up a tier, falling back to free for unknown values.
func GetDefinition(tier string) Definition {
	if def, ok := definitions[tier]; ok {
		return def
	}
	return definitions[TierFree]
}

// CanCreateDashboard reports whether a user may create another dashboard.
// Admins always pass. A nil limit means unlimited.
func CanCreateDashboard(tier string, existingCount int64, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	def := GetDefinition(tier)
	if def.DashboardLimit == nil {
		return true
	}
	return existingCount < int64(*def.DashboardLimit)
}
