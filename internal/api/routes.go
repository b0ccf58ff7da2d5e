package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"openpersona/internal/ai"
	"openpersona/internal/api/middleware"
	"openpersona/internal/auth"
	"openpersona/internal/config"
	"openpersona/internal/mail"
	"openpersona/internal/portfolio"
	"openpersona/internal/template"
)

// Storage is the full object-store surface the API depends on.
type Storage interface {
	ObjectStore
	ObjectReader
}

// RegisterRoutes wires every API route under the /api prefix.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	cfg *config.Config,
	authService *auth.AuthService,
	redisClient *redis.Client,
	store Storage,
	generator ai.Generator,
	mailer *mail.Mailer,
) {
	templates := template.NewCatalog(db)
	portfolioService := portfolio.NewService(db, store, templates)

	authHandler := NewAuthHandler(db, authService, redisClient, mailer, cfg)
	profileHandler := NewProfileHandler(db, portfolioService, templates)
	dashboardHandler := NewDashboardHandler(db, portfolioService, cfg.API.PortfolioBase)
	fileHandler := NewFileHandler(db, store, redisClient, cfg.Uploads)
	portfolioHandler := NewPortfolioHandler(db, portfolioService, generator, store, templates, cfg.API.PortfolioBase)
	authMiddleware := middleware.AuthMiddleware(authService)

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		profileGroup := apiGroup.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.Get)
			profileGroup.PUT("", profileHandler.Update)
			profileGroup.PUT("/handle", profileHandler.UpdateHandle)
			profileGroup.PUT("/template", profileHandler.UpdateTemplate)
		}

		dashboardGroup := apiGroup.Group("/dashboards")
		dashboardGroup.Use(authMiddleware)
		{
			dashboardGroup.GET("", dashboardHandler.List)
			dashboardGroup.POST("", dashboardHandler.Create)
			dashboardGroup.PUT("/reorder", dashboardHandler.Reorder)
			dashboardGroup.GET("/:id", dashboardHandler.Get)
			dashboardGroup.PATCH("/:id", dashboardHandler.Update)
			dashboardGroup.PUT("/:id/visibility", dashboardHandler.UpdateVisibility)
			dashboardGroup.POST("/:id/duplicate", dashboardHandler.Duplicate)
			dashboardGroup.DELETE("/:id", dashboardHandler.Delete)
		}

		fileGroup := apiGroup.Group("/files")
		fileGroup.Use(authMiddleware)
		{
			fileGroup.POST("", fileHandler.Upload)
			fileGroup.GET("", fileHandler.List)
			fileGroup.GET("/:id/url", fileHandler.SignedURL)
			fileGroup.DELETE("/:id", fileHandler.Delete)
		}

		portfolioGroup := apiGroup.Group("/portfolio")
		portfolioGroup.Use(authMiddleware)
		{
			portfolioGroup.GET("/blueprint", portfolioHandler.Blueprint)
			portfolioGroup.GET("/status", portfolioHandler.Status)
			portfolioGroup.GET("/templates", portfolioHandler.Templates)
			portfolioGroup.POST("/save", portfolioHandler.Save)
			portfolioGroup.POST("/publish", portfolioHandler.Publish)
			portfolioGroup.POST("/draft", portfolioHandler.Draft)
			portfolioGroup.POST("/enhance-text", portfolioHandler.Enhance)
		}
	}
}
