package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/ai"
	"openpersona/internal/api"
	"openpersona/internal/auth"
	"openpersona/internal/config"
	"openpersona/internal/database"
	"openpersona/internal/mail"
	"openpersona/internal/storage"
)

func main() {
	cfg := config.MustLoad()
	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	if err := seedTemplates(db); err != nil {
		log.Fatalf("seed templates: %v", err)
	}

	authService, err := auth.NewAuthService(
		[]byte(cfg.Auth.PrivateKeyPEM),
		[]byte(cfg.Auth.PublicKeyPEM),
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	generator := ai.NewClient(cfg.AI)
	mailer := mail.New(cfg.Mail, logger)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, db, cfg, authService, redisClient, storageClient, generator, mailer)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// seedTemplates inserts the built-in catalog entries on first boot. Existing
// rows are left untouched so operators can edit them.
func seedTemplates(db *gorm.DB) error {
	defaults := []database.Template{
		{
			Slug:        "hire-me",
			Name:        "Hire Me",
			Description: "A focused single-page layout for active job seekers.",
			ThemeConfig: datatypes.JSON([]byte(`{"accent":"#2563eb","mode":"light"}`)),
		},
		{
			Slug:        "studio",
			Name:        "Studio",
			Description: "A visual-first grid for designers and creatives.",
			ThemeConfig: datatypes.JSON([]byte(`{"accent":"#0f172a","mode":"dark"}`)),
		},
		{
			Slug:        "minimal",
			Name:        "Minimal",
			Description: "Typography-led layout with no decoration.",
			ThemeConfig: datatypes.JSON([]byte(`{"accent":"#111827","mode":"light"}`)),
		},
	}

	for _, tpl := range defaults {
		var existing database.Template
		switch err := db.Where("slug = ?", tpl.Slug).First(&existing).Error; {
		case err == nil:
			// already present
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&tpl).Error; err != nil {
				return fmt.Errorf("create template %q: %w", tpl.Slug, err)
			}
			log.Printf("seeded template %q", tpl.Slug)
		default:
			return fmt.Errorf("query template %q: %w", tpl.Slug, err)
		}
	}
	return nil
}
