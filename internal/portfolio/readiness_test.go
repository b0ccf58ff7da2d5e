package portfolio

import "testing"

func readyBundle() *Bundle {
	return &Bundle{
		Profile: &ProfileView{Headline: "Engineer", Bio: "I ship."},
		Skills: []SkillView{
			{Name: "Go"}, {Name: "SQL"}, {Name: "Redis"},
		},
		Experiences: []ExperienceView{{Company: "Acme"}},
		Projects:    []ProjectView{{Title: "Sharder"}},
	}
}

func TestEvaluate_Ready(t *testing.T) {
	verdict := Evaluate(readyBundle())
	if !verdict.Ready {
		t.Fatalf("expected ready, missing=%+v", verdict.Missing)
	}
	if len(verdict.Missing) != 0 {
		t.Fatalf("ready bundle should have no missing entries, got %d", len(verdict.Missing))
	}
}

func TestEvaluate_MissingRequirements(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Bundle)
		missing string
	}{
		{"blank headline", func(b *Bundle) { b.Profile.Headline = "   " }, "profile.headline"},
		{"blank bio", func(b *Bundle) { b.Profile.Bio = "" }, "profile.bio"},
		{"nil profile", func(b *Bundle) { b.Profile = nil }, "profile.headline"},
		{"two skills", func(b *Bundle) { b.Skills = b.Skills[:2] }, "skills"},
		{"no experiences", func(b *Bundle) { b.Experiences = nil }, "experiences"},
		{"no projects", func(b *Bundle) { b.Projects = nil }, "projects"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bundle := readyBundle()
			tc.mutate(bundle)

			verdict := Evaluate(bundle)
			if verdict.Ready {
				t.Fatal("expected not ready")
			}
			found := false
			for _, req := range verdict.Missing {
				if req.Key == tc.missing {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q in missing, got %+v", tc.missing, verdict.Missing)
			}
		})
	}
}

func TestEvaluate_MissingKeepsChecklistOrder(t *testing.T) {
	verdict := Evaluate(&Bundle{})
	if len(verdict.Missing) != len(Requirements) {
		t.Fatalf("empty bundle should miss everything, got %d of %d", len(verdict.Missing), len(Requirements))
	}
	for i, req := range verdict.Missing {
		if req.Key != Requirements[i].Key {
			t.Fatalf("missing list out of order at %d: %q", i, req.Key)
		}
	}
}
