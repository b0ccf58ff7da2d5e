package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"openpersona/internal/database"
	"openpersona/internal/template"
)

type fakeSigner struct {
	fail map[string]bool
}

func (f *fakeSigner) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if f.fail[objectKey] {
		return "", errors.New("sign failed")
	}
	return "https://signed.example/" + objectKey, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&database.Template{Slug: "hire-me", Name: "Hire Me", IsActive: true}).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, signer URLSigner) *Service {
	t.Helper()
	if signer == nil {
		signer = &fakeSigner{}
	}
	return NewService(db, signer, template.NewCatalog(db))
}

func createUser(t *testing.T, db *gorm.DB, handle, plan string) *database.User {
	t.Helper()
	user := database.User{
		Name:   "Test " + handle,
		Email:  handle + "@example.com",
		Handle: handle,
		Plan:   plan,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Create(&database.Profile{UserID: user.ID}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	dash := database.Dashboard{
		UserID:     user.ID,
		Title:      user.Name,
		Slug:       handle,
		Visibility: "private",
		IsPrimary:  true,
	}
	if err := db.Create(&dash).Error; err != nil {
		t.Fatalf("create primary dashboard: %v", err)
	}
	return &user
}

func strPtr(s string) *string { return &s }

func TestSave_FullPayload(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "alice", "free")

	payload := SavePayload{
		Profile: &ProfilePatch{
			Headline: strPtr("Backend engineer"),
			Bio:      strPtr("I build services."),
			Location: strPtr("Pune"),
		},
		Experiences: []ExperienceItem{
			{Company: "Acme", Role: "Engineer", StartDate: "2021-03", EndDate: "2023-06-01"},
		},
		Education: []EducationItem{
			{Institution: "IIT", Degree: "BTech", StartDate: "2017"},
		},
		Projects: []ProjectItem{
			{Title: "Sharder", Tags: []string{"go", "db"}},
		},
		Skills: []SkillItem{
			{Name: "Go"}, {Name: "Postgres"}, {Name: "Redis"},
		},
		Publish: true,
	}

	bundle, err := svc.Save(context.Background(), user, payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if bundle.Profile == nil || bundle.Profile.Headline != "Backend engineer" {
		t.Fatalf("profile not merged: %+v", bundle.Profile)
	}
	if len(bundle.Experiences) != 1 {
		t.Fatalf("expected 1 experience, got %d", len(bundle.Experiences))
	}
	if got := bundle.Experiences[0].StartDate; got == nil || *got != "2021-03-01" {
		t.Fatalf("start date not normalized: %v", got)
	}
	if len(bundle.Skills) != 3 {
		t.Fatalf("expected 3 skills, got %d", len(bundle.Skills))
	}
	if len(bundle.Dashboards) != 1 || bundle.Dashboards[0].Visibility != "public" {
		t.Fatalf("publish did not flip primary visibility: %+v", bundle.Dashboards)
	}
}

func TestSave_OmittedCollectionClears(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "bob", "free")

	first := SavePayload{
		Skills: []SkillItem{{Name: "Go"}, {Name: "SQL"}},
	}
	if _, err := svc.Save(context.Background(), user, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	bundle, err := svc.Save(context.Background(), user, SavePayload{})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if len(bundle.Skills) != 0 {
		t.Fatalf("omitted skills should clear, got %d", len(bundle.Skills))
	}

	var count int64
	if err := db.Model(&database.Skill{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count skills: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected hard delete, %d rows remain", count)
	}
}

func TestSave_SummarySeedsBlankBio(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "carol", "free")

	bundle, err := svc.Save(context.Background(), user, SavePayload{Summary: "Seasoned engineer."})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if bundle.Profile == nil || bundle.Profile.Bio != "Seasoned engineer." {
		t.Fatalf("summary should seed blank bio, got %+v", bundle.Profile)
	}

	// An explicit empty bio wins over the summary.
	bundle, err = svc.Save(context.Background(), user, SavePayload{
		Profile: &ProfilePatch{Bio: strPtr("")},
		Summary: "Something else.",
	})
	if err != nil {
		t.Fatalf("save with explicit empty bio: %v", err)
	}
	if bundle.Profile.Bio != "" {
		t.Fatalf("explicit empty bio should stick, got %q", bundle.Profile.Bio)
	}
}

func TestSave_UnknownTemplateRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "dave", "free")

	payload := SavePayload{
		Profile: &ProfilePatch{Template: strPtr("does-not-exist")},
		Skills:  []SkillItem{{Name: "Go"}},
	}
	_, err := svc.Save(context.Background(), user, payload)
	if !errors.Is(err, template.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}

	var count int64
	if err := db.Model(&database.Skill{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count skills: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed save must roll back, %d skill rows written", count)
	}
}

func TestSave_RoundTripKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "ordered", "free")

	payload := SavePayload{
		Skills: []SkillItem{
			{Name: "Go"}, {Name: "Postgres"}, {Name: "Redis"}, {Name: "Kafka"},
		},
		Projects: []ProjectItem{
			{Title: "Sharder"}, {Title: "Indexer"}, {Title: "Gateway"},
		},
		// Undated rows land in the same batch and share created_at; position
		// must still carry the saved order.
		Experiences: []ExperienceItem{
			{Company: "Acme", Role: "Engineer"},
			{Company: "Globex", Role: "Lead"},
		},
	}
	if _, err := svc.Save(context.Background(), user, payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	bundle, err := svc.Fetch(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	wantSkills := []string{"Go", "Postgres", "Redis", "Kafka"}
	if len(bundle.Skills) != len(wantSkills) {
		t.Fatalf("expected %d skills, got %d", len(wantSkills), len(bundle.Skills))
	}
	for i, want := range wantSkills {
		if bundle.Skills[i].Name != want {
			t.Fatalf("skill %d: want %q, got %q", i, want, bundle.Skills[i].Name)
		}
	}

	wantProjects := []string{"Sharder", "Indexer", "Gateway"}
	for i, want := range wantProjects {
		if bundle.Projects[i].Title != want {
			t.Fatalf("project %d: want %q, got %q", i, want, bundle.Projects[i].Title)
		}
	}

	if bundle.Experiences[0].Company != "Acme" || bundle.Experiences[1].Company != "Globex" {
		t.Fatalf("experiences reordered: %+v", bundle.Experiences)
	}
}

func TestMutateDashboard_ReturnsAffectedRow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "mutator", "growth")

	created, err := svc.MutateDashboard(context.Background(), user, &DashboardPatch{
		Title: strPtr("Side Projects"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created == nil || created.ID == 0 || created.Slug != "side-projects" {
		t.Fatalf("create must return the inserted row, got %+v", created)
	}

	updated, err := svc.MutateDashboard(context.Background(), user, &DashboardPatch{
		ID:    &created.ID,
		Title: strPtr("Weekend Projects"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated == nil || updated.ID != created.ID {
		t.Fatalf("update must return the patched row, got %+v", updated)
	}
}

func TestSave_PublishRefusedWhenNotReady(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "half", "free")

	// Not enough skills to pass the readiness checklist.
	payload := SavePayload{
		Profile: &ProfilePatch{Headline: strPtr("Engineer"), Bio: strPtr("Hi.")},
		Skills:  []SkillItem{{Name: "Go"}},
		Publish: true,
	}
	bundle, err := svc.Save(context.Background(), user, payload)

	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if len(notReady.Readiness.Missing) == 0 {
		t.Fatal("refusal must carry the unmet requirements")
	}
	if bundle == nil || bundle.Profile == nil || bundle.Profile.Headline != "Engineer" {
		t.Fatalf("refused publish must still return the committed save: %+v", bundle)
	}

	// The save itself committed; only the publish was refused.
	var skills int64
	if err := db.Model(&database.Skill{}).Where("user_id = ?", user.ID).Count(&skills).Error; err != nil {
		t.Fatalf("count skills: %v", err)
	}
	if skills != 1 {
		t.Fatalf("save should have committed, got %d skills", skills)
	}
	var primary database.Dashboard
	if err := db.Where("user_id = ? AND is_primary = ?", user.ID, true).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}
	if primary.Visibility != "private" {
		t.Fatalf("primary must stay private, got %q", primary.Visibility)
	}
}

func TestSave_DoubleSaveIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "twice", "free")

	payload := SavePayload{
		Profile: &ProfilePatch{Headline: strPtr("Engineer")},
		Skills:  []SkillItem{{Name: "Go"}, {Name: "SQL"}},
		Projects: []ProjectItem{
			{Title: "Sharder"},
		},
	}
	if _, err := svc.Save(context.Background(), user, payload); err != nil {
		t.Fatalf("first save: %v", err)
	}
	bundle, err := svc.Save(context.Background(), user, payload)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if len(bundle.Skills) != 2 || len(bundle.Projects) != 1 {
		t.Fatalf("repeat save must not duplicate rows: %d skills, %d projects",
			len(bundle.Skills), len(bundle.Projects))
	}

	var skills int64
	if err := db.Model(&database.Skill{}).Where("user_id = ?", user.ID).Count(&skills).Error; err != nil {
		t.Fatalf("count skills: %v", err)
	}
	if skills != 2 {
		t.Fatalf("expected 2 skill rows after two saves, got %d", skills)
	}
}

func TestSave_PlanLimitBlocksSecondDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "erin", "free")

	payload := SavePayload{
		Dashboard: &DashboardPatch{Title: strPtr("Second Page")},
	}
	_, err := svc.Save(context.Background(), user, payload)
	if !errors.Is(err, ErrPlanLimit) {
		t.Fatalf("expected ErrPlanLimit, got %v", err)
	}

	user.IsAdmin = true
	if _, err := svc.Save(context.Background(), user, payload); err != nil {
		t.Fatalf("admin should bypass plan limit: %v", err)
	}
}

func TestSave_SlugConflict(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "frank", "growth")

	payload := SavePayload{
		Dashboard: &DashboardPatch{Title: strPtr("Portfolio"), Slug: strPtr("frank")},
	}
	_, err := svc.Save(context.Background(), user, payload)
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestSave_UpdateDashboardPartial(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "gina", "free")

	var primary database.Dashboard
	if err := db.Where("user_id = ?", user.ID).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}

	payload := SavePayload{
		Dashboard: &DashboardPatch{ID: &primary.ID, Title: strPtr("Renamed")},
	}
	bundle, err := svc.Save(context.Background(), user, payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if bundle.Dashboards[0].Title != "Renamed" {
		t.Fatalf("title not updated: %+v", bundle.Dashboards[0])
	}
	if bundle.Dashboards[0].Slug != "gina" {
		t.Fatalf("untouched slug must survive, got %q", bundle.Dashboards[0].Slug)
	}

	missing := uint(99999)
	_, err = svc.Save(context.Background(), user, SavePayload{
		Dashboard: &DashboardPatch{ID: &missing, Title: strPtr("X")},
	})
	if !errors.Is(err, ErrDashboardNotFound) {
		t.Fatalf("expected ErrDashboardNotFound, got %v", err)
	}
}

func TestPublishPrimary_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "hank", "free")

	for i := 0; i < 2; i++ {
		if err := svc.PublishPrimary(context.Background(), user.ID); err != nil {
			t.Fatalf("publish #%d: %v", i+1, err)
		}
	}

	var primary database.Dashboard
	if err := db.Where("user_id = ? AND is_primary = ?", user.ID, true).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}
	if primary.Visibility != "public" {
		t.Fatalf("expected public, got %q", primary.Visibility)
	}
}

func TestDeleteDashboard_PromotesSuccessor(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "iris", "growth")

	second := database.Dashboard{UserID: user.ID, Title: "Second", Slug: "second", Visibility: "public"}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create second dashboard: %v", err)
	}

	var primary database.Dashboard
	if err := db.Where("user_id = ? AND is_primary = ?", user.ID, true).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}

	if err := svc.DeleteDashboard(context.Background(), user.ID, primary.ID); err != nil {
		t.Fatalf("delete primary: %v", err)
	}

	var remaining []database.Dashboard
	if err := db.Where("user_id = ?", user.ID).Find(&remaining).Error; err != nil {
		t.Fatalf("list dashboards: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 dashboard, got %d", len(remaining))
	}
	if !remaining[0].IsPrimary || remaining[0].ID != second.ID {
		t.Fatalf("successor not promoted: %+v", remaining[0])
	}
}

func TestDeleteDashboard_SoleIsRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "jack", "free")

	var primary database.Dashboard
	if err := db.Where("user_id = ?", user.ID).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}

	err := svc.DeleteDashboard(context.Background(), user.ID, primary.ID)
	if !errors.Is(err, ErrSoleDashboard) {
		t.Fatalf("expected ErrSoleDashboard, got %v", err)
	}

	err = svc.DeleteDashboard(context.Background(), user.ID, 424242)
	if !errors.Is(err, ErrDashboardNotFound) {
		t.Fatalf("expected ErrDashboardNotFound, got %v", err)
	}
}

func TestDuplicateDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "kate", "growth")

	var primary database.Dashboard
	if err := db.Where("user_id = ?", user.ID).First(&primary).Error; err != nil {
		t.Fatalf("load primary: %v", err)
	}

	copyDash, err := svc.DuplicateDashboard(context.Background(), user.ID, primary.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if copyDash.IsPrimary {
		t.Fatal("duplicate must never be primary")
	}
	if !strings.HasSuffix(copyDash.Title, " (Copy)") {
		t.Fatalf("unexpected copy title %q", copyDash.Title)
	}
	if !strings.HasPrefix(copyDash.Slug, primary.Slug+"-copy-") {
		t.Fatalf("unexpected copy slug %q", copyDash.Slug)
	}
}

func TestReorderDashboards(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "liam", "scale")

	second := database.Dashboard{UserID: user.ID, Title: "Second", Slug: "second"}
	third := database.Dashboard{UserID: user.ID, Title: "Third", Slug: "third"}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := db.Create(&third).Error; err != nil {
		t.Fatalf("create third: %v", err)
	}

	if err := svc.ReorderDashboards(context.Background(), user.ID, []uint{third.ID, second.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	var reloaded database.Dashboard
	if err := db.First(&reloaded, third.ID).Error; err != nil {
		t.Fatalf("reload third: %v", err)
	}
	if reloaded.Position != 0 {
		t.Fatalf("third should be first, position=%d", reloaded.Position)
	}
}

func TestFetch_SigningDegradesPerFile(t *testing.T) {
	db := newTestDB(t)
	signer := &fakeSigner{fail: map[string]bool{"users/1/banner/bad.png": true}}
	svc := newTestService(t, db, signer)
	user := createUser(t, db, "mona", "free")

	files := []database.Upload{
		{UserID: user.ID, ObjectKey: "users/1/avatar/ok.png", Category: "avatar"},
		{UserID: user.ID, ObjectKey: "users/1/banner/bad.png", Category: "banner"},
		{UserID: user.ID, ObjectKey: "users/1/resume/skip.pdf", Category: "resume"},
	}
	for i := range files {
		if err := db.Create(&files[i]).Error; err != nil {
			t.Fatalf("create upload: %v", err)
		}
	}

	bundle, err := svc.Fetch(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// Resume uploads are not portfolio media.
	if len(bundle.Media) != 2 {
		t.Fatalf("expected 2 media items, got %d", len(bundle.Media))
	}
	for _, item := range bundle.Media {
		switch item.ObjectKey {
		case "users/1/avatar/ok.png":
			if item.URL == nil || item.Error != "" {
				t.Fatalf("healthy item degraded: %+v", item)
			}
		case "users/1/banner/bad.png":
			if item.URL != nil || item.Error != "Failed to sign URL" {
				t.Fatalf("failed item not degraded: %+v", item)
			}
		default:
			t.Fatalf("unexpected media item %q", item.ObjectKey)
		}
	}
}

func TestFetch_DraftFromResumeAnalysis(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "nina", "free")

	now := time.Now()
	resume := database.Resume{
		UserID:     user.ID,
		ObjectKey:  "users/1/resume/cv.pdf",
		Analysis:   []byte(`{"portfolioDraft":{"summary":"Built things."}}`),
		AnalyzedAt: &now,
	}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("create resume: %v", err)
	}

	bundle, err := svc.Fetch(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(bundle.Draft) != `{"summary":"Built things."}` {
		t.Fatalf("unexpected draft %q", string(bundle.Draft))
	}
}

func TestUpdateProfile_SocialLinksReplace(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	user := createUser(t, db, "omar", "free")

	patch := &ProfilePatch{
		SocialLinks: []SocialLink{{Label: "GitHub", URL: "https://github.com/omar"}},
	}
	if err := svc.UpdateProfile(context.Background(), user.ID, patch); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	var profile database.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if !strings.Contains(string(profile.SocialLinks), "github.com/omar") {
		t.Fatalf("social links not stored: %s", profile.SocialLinks)
	}
}
