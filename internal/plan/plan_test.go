package plan

import "testing"

func TestCanCreateDashboard_TierTable(t *testing.T) {
	cases := []struct {
		name  string
		tier  string
		count int64
		want  bool
	}{
		{"free under limit", TierFree, 0, true},
		{"free at limit", TierFree, 1, false},
		{"free over limit", TierFree, 3, false},
		{"growth under limit", TierGrowth, 4, true},
		{"growth at limit", TierGrowth, 5, false},
		{"scale unlimited", TierScale, 1000, true},
		{"unknown tier falls back to free", "enterprise", 1, false},
		{"unknown tier under free limit", "enterprise", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanCreateDashboard(tc.tier, tc.count, false); got != tc.want {
				t.Fatalf("CanCreateDashboard(%q, %d) = %v, want %v", tc.tier, tc.count, got, tc.want)
			}
		})
	}
}

func TestCanCreateDashboard_AdminBypassesLimits(t *testing.T) {
	for _, tier := range []string{TierFree, TierGrowth, TierScale, "bogus"} {
		if !CanCreateDashboard(tier, 1_000_000, true) {
			t.Fatalf("admin should bypass limit for tier %q", tier)
		}
	}
}

func TestGetDefinition_FallsBackToFree(t *testing.T) {
	def := GetDefinition("nonsense")
	if def.Tier != TierFree {
		t.Fatalf("expected free fallback, got %q", def.Tier)
	}
	if def.DashboardLimit == nil || *def.DashboardLimit != 1 {
		t.Fatalf("free tier should allow exactly one dashboard")
	}
}
