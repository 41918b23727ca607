// Package main runs the classroom check-in HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/analytics"
	"github.com/classpulse/backend/internal/auth"
	"github.com/classpulse/backend/internal/checkin"
	"github.com/classpulse/backend/internal/classrooms"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/presence"
	"github.com/classpulse/backend/internal/questions"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/internal/roster"
	"github.com/classpulse/backend/pkg/database"
	"github.com/classpulse/backend/pkg/queue"
	"github.com/classpulse/backend/pkg/redis"
	"github.com/classpulse/backend/pkg/response"
	"github.com/classpulse/backend/pkg/storage"
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
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Classrooms
	classroomRepo := classrooms.NewRepository(pool)
	classroomHandler := classrooms.NewHandler(classroomRepo, s3Client, logger)

	// Check-in sessions
	checkinRepo := checkin.NewRepository(pool)
	checkinService := checkin.NewService(checkinRepo, cfg.Checkin.CodeLength)
	checkinHandler := checkin.NewHandler(checkinService, checkinRepo, classroomRepo, hub, jobQueue, logger)

	// Roster
	rosterRepo := roster.NewRepository(pool)
	rosterHandler := roster.NewHandler(rosterRepo, checkinRepo, classroomRepo, hub, logger)

	// Questions
	questionRepo := questions.NewRepository(pool)
	questionService := questions.NewService(questionRepo)
	questionHandler := questions.NewHandler(questionService, checkinRepo, classroomRepo, hub, jobQueue, logger)

	// Peak participants per session
	hub.SetParticipantChangeHandler(func(sessionID uuid.UUID, count int) {
		_ = checkinRepo.UpdatePeakParticipants(context.Background(), sessionID, count)
	})

	// Presence log (join/leave per connection)
	presenceRepo := presence.NewRepository(pool)
	presenceHandler := presence.NewHandler(presenceRepo, checkinRepo, classroomRepo)
	hub.SetPresenceLogger(presenceSink{repo: presenceRepo})

	// Analytics
	analyticsHandler := analytics.NewHandler(pool, classroomRepo)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
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

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", authHandler.Me)
		api.PATCH("/me", authHandler.UpdateProfile)

		// Classrooms
		api.POST("/classrooms", middleware.RequireRole("teacher"), classroomHandler.Create)
		api.GET("/classrooms", classroomHandler.List)
		api.GET("/classrooms/:id", classroomHandler.GetByID)
		api.PATCH("/classrooms/:id", classrooms.RequireOwner(classroomRepo), classroomHandler.Update)
		api.DELETE("/classrooms/:id", classrooms.RequireOwner(classroomRepo), classroomHandler.Delete)
		api.POST("/classrooms/:id/image", classrooms.RequireOwner(classroomRepo), classroomHandler.UploadImage)
		api.GET("/classrooms/:id/image", classroomHandler.GetImageURL)
		api.POST("/classrooms/:id/join", middleware.RequireRole("student"), classroomHandler.Join)
		api.GET("/classrooms/:id/students", classrooms.RequireOwner(classroomRepo), classroomHandler.ListStudents)
		api.GET("/classrooms/:id/analytics", classrooms.RequireOwner(classroomRepo), analyticsHandler.GetByClassroom)

		// Check-in sessions
		api.POST("/classrooms/:id/sessions", classrooms.RequireOwner(classroomRepo), checkinHandler.Create)
		api.GET("/classrooms/:id/sessions", classrooms.RequireOwner(classroomRepo), checkinHandler.History)
		api.POST("/classrooms/:id/checkin/verify", middleware.RequireRole("student"), checkinHandler.Verify)
		api.GET("/sessions/:id", checkinHandler.GetByID)
		api.GET("/sessions/:id/qr", checkinHandler.QR)
		api.POST("/sessions/:id/open", checkinHandler.Open)
		api.POST("/sessions/:id/close", checkinHandler.Close)
		api.POST("/sessions/:id/checkin", middleware.RequireRole("student"), checkinHandler.Record)
		api.GET("/sessions/:id/participants", checkinHandler.Participants)
		api.GET("/sessions/:id/attendees", presenceHandler.Attendees)

		// Roster
		api.GET("/sessions/:id/roster", rosterHandler.List)
		api.PUT("/sessions/:id/roster", rosterHandler.BulkEdit)
		api.PATCH("/sessions/:id/roster/:userId", rosterHandler.UpdateEntry)
		api.DELETE("/sessions/:id/roster/:userId", rosterHandler.DeleteEntry)
		api.POST("/sessions/:id/roster/mark-present", rosterHandler.MarkAllPresent)

		// Questions
		api.POST("/sessions/:id/questions", questionHandler.Ask)
		api.GET("/sessions/:id/questions", questionHandler.List)
		api.GET("/sessions/:id/questions/current", questionHandler.Current)
		api.POST("/questions/:id/show", questionHandler.Show)
		api.POST("/questions/:id/hide", questionHandler.Hide)
		api.DELETE("/questions/:id", questionHandler.Reset)
		api.POST("/questions/:id/answers", middleware.RequireRole("student"), questionHandler.Answer)
		api.GET("/questions/:id/answers", questionHandler.Answers)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

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

// presenceSink adapts the presence repository to the hub callback interface.
type presenceSink struct {
	repo *presence.Repository
}

func (p presenceSink) ClientJoined(sessionID, userID uuid.UUID) {
	_ = p.repo.LogJoin(context.Background(), sessionID, userID)
}

func (p presenceSink) ClientLeft(sessionID, userID uuid.UUID) {
	_ = p.repo.LogLeave(context.Background(), sessionID, userID)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
