package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/api/middleware"
	"github.com/BartekTra/portfolioCreator-sub000/internal/auth"
	"github.com/BartekTra/portfolioCreator-sub000/internal/config"
)

// RegisterRoutes 注册全部 API 路由。
// /v1 下除 auth 外都要求认证；/public 完全匿名。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	asynqClient *asynq.Client,
	storageClient ObjectStorage,
	logger *slog.Logger,
	cfg *config.Config,
) {
	maxBytes := cfg.Uploads.MaxBytes

	authHandler := NewAuthHandler(
		db,
		authService,
		redisClient,
		asynqClient,
		logger,
		cfg.Auth.RequireConfirmation,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		time.Duration(cfg.Auth.LoginLockTTLMinutes)*time.Minute,
		cfg.Auth.CookieDomain,
	)
	accountHandler := NewAccountHandler(db, storageClient, maxBytes)
	projectHandler := NewProjectHandler(db, storageClient, maxBytes)
	titlePageHandler := NewTitlePageHandler(db, storageClient, maxBytes)
	repositoryHandler := NewRepositoryHandler(db, storageClient)
	templateHandler := NewTemplateHandler()
	publicHandler := NewPublicHandler(db, storageClient)

	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.GET("/confirm", authHandler.Confirm)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		accountGroup := v1.Group("/account")
		accountGroup.Use(authMiddleware)
		{
			accountGroup.GET("", accountHandler.GetAccount)
			accountGroup.PUT("", accountHandler.UpdateAccount)
			accountGroup.POST("/avatar", accountHandler.UploadAvatar)
			accountGroup.DELETE("", accountHandler.DeleteAccount)
		}

		projectGroup := v1.Group("/projects")
		projectGroup.Use(authMiddleware)
		{
			projectGroup.POST("", projectHandler.CreateProject)
			projectGroup.GET("", projectHandler.ListProjects)
			projectGroup.GET("/:id", projectHandler.GetProject)
			projectGroup.PUT("/:id", projectHandler.UpdateProject)
			projectGroup.DELETE("/:id", projectHandler.DeleteProject)
			projectGroup.DELETE("/:id/images/:imageId", projectHandler.DeleteImage)
		}

		titlePageGroup := v1.Group("/title_pages")
		titlePageGroup.Use(authMiddleware)
		{
			titlePageGroup.POST("", titlePageHandler.CreateTitlePage)
			titlePageGroup.GET("", titlePageHandler.ListTitlePages)
			titlePageGroup.GET("/:id", titlePageHandler.GetTitlePage)
			titlePageGroup.PUT("/:id", titlePageHandler.UpdateTitlePage)
			titlePageGroup.DELETE("/:id", titlePageHandler.DeleteTitlePage)
			titlePageGroup.POST("/:id/photo", titlePageHandler.UploadPhoto)
		}

		repositoryGroup := v1.Group("/repositories")
		repositoryGroup.Use(authMiddleware)
		{
			repositoryGroup.POST("", repositoryHandler.CreateRepository)
			repositoryGroup.GET("", repositoryHandler.ListRepositories)
			repositoryGroup.GET("/:id", repositoryHandler.GetRepository)
			repositoryGroup.PUT("/:id", repositoryHandler.UpdateRepository)
			repositoryGroup.DELETE("/:id", repositoryHandler.DeleteRepository)
			repositoryGroup.POST("/:id/projects", repositoryHandler.AddProject)
			repositoryGroup.PUT("/:id/projects", repositoryHandler.ReplaceProjects)
			repositoryGroup.POST("/:id/generate_share_token", repositoryHandler.GenerateShareToken)
		}

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:key", templateHandler.GetTemplate)
		}
	}

	public := router.Group("/public")
	{
		public.GET("/repositories/:token", publicHandler.GetSharedRepository)
		public.GET("/projects/:id", publicHandler.GetSharedProject)
	}
}
