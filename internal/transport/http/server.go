package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "buscador-gpt/internal/app"
	"buscador-gpt/internal/bootstrap"
	"buscador-gpt/internal/prompt"
	"buscador-gpt/internal/repository"
	"buscador-gpt/internal/transport/http/handler"
	"buscador-gpt/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(app.Log),
		gin.Recovery(),
		middleware.CORS(app.Config.CORS.AllowedOrigins),
	)

	healthHandler := handler.NewHealthHandler(handler.HealthDeps{
		Name:      app.Config.App.Name,
		Env:       app.Config.App.Env,
		StartedAt: app.StartedAt,
		DB:        app.DB,
		Redis:     app.Redis,
		MQConn:    app.MQConn,
		Chat:      app.ChatProbe,
	})
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config
	userRepo := repository.NewUserRepository(app.DB)
	assistantRepo := repository.NewAssistantRepository(app.DB)

	authService := appsvc.NewAuthService(userRepo, appsvc.AuthOptions{
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiration: time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute,
		EmailDomain:   cfg.Auth.AllowedEmailDomain,
		AdminEmails:   cfg.Auth.AdminEmails,
	})
	assistantService := appsvc.NewAssistantService(assistantRepo, app.Uploads, app.Bus, app.Log)
	chatService := appsvc.NewChatService(
		app.Conversations,
		app.Chat,
		assistantService,
		app.ActivitySink,
		app.Bus,
		appsvc.ChatOptions{
			SystemPrompt: cfg.Chat.SystemPrompt,
			Target:       prompt.ParseTarget(cfg.Chat.Target),
			Classifier:   prompt.NewClassifier(cfg.Chat.DetailedThreshold, cfg.Chat.Keywords),
		},
		app.Log,
	)
	conversationService := appsvc.NewConversationService(app.Conversations, app.Bus)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	assistantHandler := handler.NewAssistantHandler(assistantService, app.Uploads.Policy().MaxFileSize)
	uploadHandler := handler.NewUploadHandler(app.Uploads, app.Bus)
	eventsHandler := handler.NewEventsHandler(app.Bus, app.Log)
	adminHandler := handler.NewAdminHandler(app.Activity)

	auth := middleware.AuthJWT(cfg.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth, authHandler.Me)

	chatGroup := v1.Group("/chat", auth)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/classify", chatHandler.Classify)
	chatGroup.POST("/optimize", chatHandler.Optimize)

	convGroup := v1.Group("/conversations", auth)
	convGroup.GET("", conversationHandler.List)
	convGroup.GET("/export", conversationHandler.ExportAll)
	convGroup.POST("/import", conversationHandler.Import)
	convGroup.GET("/:id", conversationHandler.Get)
	convGroup.PATCH("/:id", conversationHandler.Rename)
	convGroup.DELETE("/:id", conversationHandler.Delete)
	convGroup.GET("/:id/export", conversationHandler.Export)

	assistantGroup := v1.Group("/assistants", auth)
	assistantGroup.GET("", assistantHandler.List)
	assistantGroup.POST("", assistantHandler.Create)
	assistantGroup.POST("/import", assistantHandler.Import)
	assistantGroup.POST("/import-url", assistantHandler.ImportURL)
	assistantGroup.GET("/:id", assistantHandler.Get)
	assistantGroup.PUT("/:id", assistantHandler.Update)
	assistantGroup.DELETE("/:id", assistantHandler.Delete)
	assistantGroup.GET("/:id/export", assistantHandler.Export)
	assistantGroup.POST("/:id/files", assistantHandler.AddFile)

	v1.POST("/uploads/presign", auth, uploadHandler.Presign)
	v1.GET("/events", auth, eventsHandler.Stream)

	adminGroup := v1.Group("/admin", auth, middleware.RequireAdmin())
	adminGroup.GET("/activity", adminHandler.Activity)

	return router
}
