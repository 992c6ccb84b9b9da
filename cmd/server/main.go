package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restocheck/internal/config"
	"restocheck/internal/database"
	"restocheck/internal/handlers"
	"restocheck/internal/middleware"
	"restocheck/internal/models"
	"restocheck/internal/services"
	"restocheck/internal/store"
	"restocheck/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorf("error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateIndexes(indexCtx); err != nil {
		log.Warnf("failed to create some indexes: %v", err)
	}
	cancelIndexes()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiration)*time.Hour)

	// Stores
	users := store.NewUserStore(db.Database)
	inspections := store.NewInspectionStore(db.Database)
	catalog := store.NewCatalogStore(db.Database)
	reportConfigs := store.NewReportNotificationStore(db.Database)
	legacyConfigs := store.NewLegacyNotificationStore(db.Database)

	// Services
	reports := services.NewReportService(inspections, catalog, cfg.ReportsDir, cfg.BaseURL, cfg.DefaultTimeZone)
	recipients := services.NewRecipientResolver(users)
	emailSender := services.NewEmailSender(services.SMTPSettings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	}, cfg.EmailWebhookURL)
	whatsappSender := services.NewWhatsAppSender(services.WhatsAppSettings{
		APIURL:     cfg.WhatsAppAPIURL,
		Token:      cfg.WhatsAppToken,
		WebhookURL: cfg.WhatsAppWebhookURL,
	})
	checklistTrigger := services.NewChecklistTrigger(catalog, whatsappSender)

	reportScheduler := services.NewReportScheduler(
		reportConfigs, reports, recipients, emailSender, whatsappSender,
		cfg.ReportsDir, cfg.DefaultTimeZone,
	)
	legacyScheduler := services.NewLegacyScheduler(legacyConfigs, checklistTrigger, cfg.DefaultTimeZone)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := reportScheduler.Init(startCtx); err != nil {
		log.Fatalf("failed to start report scheduler: %v", err)
	}
	if err := legacyScheduler.Init(startCtx); err != nil {
		log.Fatalf("failed to start legacy scheduler: %v", err)
	}
	cancelStart()

	// Handlers
	authHandler := handlers.NewAuthHandler(users, jwtManager)
	notificationHandler := handlers.NewNotificationHandler(reportConfigs, reportScheduler, legacyScheduler)
	inspectionHandler := handlers.NewInspectionHandler(inspections, catalog, cfg.WhatsAppToken)

	router := setupRouter(cfg, authHandler, notificationHandler, inspectionHandler, jwtManager)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infof("server running on http://%s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	reportScheduler.StopAll()
	legacyScheduler.StopAll()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("forced shutdown: %v", err)
	}
	log.Info("server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetLevel(log.DebugLevel)
	}
}

func setupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	notificationHandler *handlers.NotificationHandler,
	inspectionHandler *handlers.InspectionHandler,
	jwtManager *auth.JWTManager,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
	})

	// Generated CSV reports are served from disk under a stable URL.
	router.Static("/uploads/reports", cfg.ReportsDir)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", loginLimiter.RateLimit(), authHandler.Login)

		// Inbound from the WhatsApp provider, token-authenticated.
		api.POST("/webhooks/whatsapp/inspection", inspectionHandler.Submit)

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.GET("/auth/me", authHandler.Me)

			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleOwner))
			{
				reports := admin.Group("/report-notifications")
				{
					reports.GET("", notificationHandler.List)
					reports.POST("", notificationHandler.Create)
					reports.GET("/status", notificationHandler.Status)
					reports.POST("/refresh", notificationHandler.Refresh)
					reports.POST("/generate", notificationHandler.Generate)
					reports.GET("/:id", notificationHandler.Get)
					reports.PUT("/:id", notificationHandler.Update)
					reports.DELETE("/:id", notificationHandler.Delete)
					reports.POST("/:id/trigger", notificationHandler.Trigger)
				}

				legacy := admin.Group("/notifications")
				{
					legacy.POST("", notificationHandler.CreateLegacy)
					legacy.DELETE("/:id", notificationHandler.DeleteLegacy)
				}
			}
		}
	}

	return router
}
