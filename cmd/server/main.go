// Package main runs the CRM HTTP server with WebSocket activity feed and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimbus-crm/backend/config"
	"github.com/nimbus-crm/backend/internal/analytics"
	"github.com/nimbus-crm/backend/internal/articles"
	"github.com/nimbus-crm/backend/internal/auth"
	"github.com/nimbus-crm/backend/internal/campaigns"
	"github.com/nimbus-crm/backend/internal/contacts"
	"github.com/nimbus-crm/backend/internal/deals"
	"github.com/nimbus-crm/backend/internal/emaillogs"
	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/policy"
	"github.com/nimbus-crm/backend/internal/realtime"
	"github.com/nimbus-crm/backend/internal/teams"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/internal/tickets"
	"github.com/nimbus-crm/backend/internal/users"
	"github.com/nimbus-crm/backend/pkg/database"
	"github.com/nimbus-crm/backend/pkg/queue"
	"github.com/nimbus-crm/backend/pkg/redis"
	"github.com/nimbus-crm/backend/pkg/response"
	"github.com/nimbus-crm/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	flags := tenancy.Flags{TeamAccess: cfg.Features.TeamAccess}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and users
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Teams and the round-robin assigner
	teamRepo := teams.NewRepository(pool)
	teamHandler := teams.NewHandler(teamRepo)
	assigner := teams.NewAssigner(teamRepo, teams.NewRedisCounter(rdb.Client))

	userHandler := users.NewHandler(authRepo, teamRepo, logger)

	// Policies share one base carrying the feature flags.
	base := policy.Base{Flags: flags}

	contactRepo := contacts.NewRepository(pool)
	contactHandler := contacts.NewHandler(contactRepo, policy.NewContactPolicy(base), assigner, logger)

	dealRepo := deals.NewRepository(pool)
	dealHandler := deals.NewHandler(dealRepo, policy.NewDealPolicy(base), assigner, hub, logger)

	ticketRepo := tickets.NewRepository(pool)
	ticketHandler := tickets.NewHandler(ticketRepo, policy.NewTicketPolicy(base), assigner, s3Client, jobQueue, hub, logger)

	articleRepo := articles.NewRepository(pool)
	articleHandler := articles.NewHandler(articleRepo, policy.NewArticlePolicy(base), assigner, logger)

	campaignRepo := campaigns.NewRepository(pool)
	campaignHandler := campaigns.NewHandler(campaignRepo, policy.NewCampaignPolicy(base), assigner, jobQueue, hub, logger)

	emailLogRepo := emaillogs.NewRepository(pool)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo)

	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, logger)

	wsAuthenticate := func(token string) (*models.User, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return nil, err
		}
		return authRepo.GetByID(context.Background(), claims.UserID)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public help center. Anonymous requests still get a tenant resolved
	// (query parameter, Referer, or the default tenant).
	help := router.Group("/help")
	help.Use(middleware.TenantScope(flags, logger))
	{
		help.GET("/articles", articleHandler.PublicList)
		help.GET("/articles/:slug", articleHandler.PublicGetBySlug)
	}

	// Protected API: JWT, then principal load, then tenant scope.
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	api.Use(middleware.Principal(authRepo))
	api.Use(middleware.TenantScope(flags, logger))
	{
		// Users
		api.GET("/me", userHandler.Me)
		api.GET("/users", userHandler.List)
		api.POST("/users", middleware.RequireRole(models.RoleAdmin, models.RoleManager), userHandler.CreateMember)
		api.PATCH("/users/:id/team", middleware.RequireRole(models.RoleAdmin, models.RoleManager), userHandler.AssignTeam)
		api.DELETE("/users/:id", middleware.RequireRole(models.RoleAdmin), userHandler.Deactivate)

		// Teams
		api.GET("/teams", teamHandler.List)
		api.POST("/teams", middleware.RequireRole(models.RoleAdmin, models.RoleManager), teamHandler.Create)
		api.DELETE("/teams/:id", middleware.RequireRole(models.RoleAdmin), teamHandler.Delete)

		// Contacts
		api.GET("/contacts", contactHandler.List)
		api.POST("/contacts", contactHandler.Create)
		api.GET("/contacts/:id", contactHandler.GetByID)
		api.PUT("/contacts/:id", contactHandler.Update)
		api.DELETE("/contacts/:id", contactHandler.Delete)

		// Deals
		api.GET("/deals", dealHandler.List)
		api.POST("/deals", dealHandler.Create)
		api.GET("/deals/:id", dealHandler.GetByID)
		api.PUT("/deals/:id", dealHandler.Update)
		api.PATCH("/deals/:id/stage", dealHandler.UpdateStage)
		api.DELETE("/deals/:id", dealHandler.Delete)

		// Tickets
		api.GET("/tickets", ticketHandler.List)
		api.POST("/tickets", ticketHandler.Create)
		api.GET("/tickets/:id", ticketHandler.GetByID)
		api.PUT("/tickets/:id", ticketHandler.Update)
		api.POST("/tickets/:id/assign", ticketHandler.Assign)
		api.POST("/tickets/:id/close", ticketHandler.Close)
		api.DELETE("/tickets/:id", ticketHandler.Delete)
		api.GET("/tickets/:id/replies", ticketHandler.ListReplies)
		api.POST("/tickets/:id/replies", ticketHandler.Reply)
		api.GET("/tickets/:id/attachments", ticketHandler.ListAttachments)
		api.POST("/tickets/:id/attachments", ticketHandler.CreateAttachment)
		api.GET("/tickets/:id/attachments/:attachment_id/download", ticketHandler.DownloadAttachment)

		// Articles (authoring)
		api.GET("/articles", articleHandler.List)
		api.POST("/articles", articleHandler.Create)
		api.GET("/articles/:id", articleHandler.GetByID)
		api.PUT("/articles/:id", articleHandler.Update)
		api.POST("/articles/:id/publish", articleHandler.Publish)
		api.DELETE("/articles/:id", articleHandler.Delete)

		// Campaigns
		api.GET("/campaigns", campaignHandler.List)
		api.POST("/campaigns", campaignHandler.Create)
		api.GET("/campaigns/:id", campaignHandler.GetByID)
		api.PUT("/campaigns/:id", campaignHandler.Update)
		api.POST("/campaigns/:id/send", campaignHandler.Send)
		api.DELETE("/campaigns/:id", campaignHandler.Delete)

		// Email logs
		api.GET("/email-logs", emailLogHandler.List)

		// Reports
		api.GET("/reports/summary", analyticsHandler.Summary)
		api.GET("/reports/tenants", middleware.RequireRole(models.RoleAdmin), analyticsHandler.TenantReports)
	}

	// WebSocket activity feed (token in query; no Authorization header)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsAuthenticate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
