package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/survey-api/internal/config"
	"github.com/yourusername/survey-api/internal/handler"
	"github.com/yourusername/survey-api/internal/handler/dto"
	"github.com/yourusername/survey-api/internal/middleware"
	pgRepo "github.com/yourusername/survey-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/survey-api/internal/repository/redis"
	"github.com/yourusername/survey-api/internal/service"
	"github.com/yourusername/survey-api/internal/storage"
	"github.com/yourusername/survey-api/pkg/auth"
	"github.com/yourusername/survey-api/pkg/database"
	"github.com/yourusername/survey-api/pkg/logger"
	"github.com/yourusername/survey-api/pkg/telemetry"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// the logger is configured from cfg, so this one goes to stderr
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), cfg.Log.Mode == "debug")
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsDir, log); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}
	sqlDB, err := database.GetSQLDB(db)
	if err != nil {
		log.Fatal("failed to get sql.DB", "error", err)
	}
	defer sqlDB.Close()

	// Redis
	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()
	log.Info("connected to redis", "mode", cfg.Redis.Mode)

	// Repositories
	timeout := cfg.Database.QueryTimeout
	surveyRepo := pgRepo.NewSurveyRepo(db, timeout)
	questionRepo := pgRepo.NewQuestionRepo(db, timeout)
	requiredRepo := pgRepo.NewRequiredQuestionRepo(db, timeout)
	responseRepo := pgRepo.NewResponseRepo(db, timeout)
	customerRepo := pgRepo.NewCustomerInfoRepo(db, timeout)
	statRepo := pgRepo.NewAiStatisticRepo(db, timeout)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatal("failed to initialize cache", "error", err)
	}
	sessionEvents := redisRepo.NewSessionEventStore(redisClient, log)

	// Integrations
	reportStorage, err := storage.NewSupabaseStorage(cfg.Store.URL, cfg.Store.Key, cfg.Store.Bucket)
	if err != nil {
		log.Fatal("failed to initialize report storage", "error", err)
	}

	var analyzer service.Analyzer
	if cfg.AI.APIKey != "" {
		openAI, err := service.NewOpenAIAnalyzer(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, log)
		if err != nil {
			log.Fatal("failed to initialize analyzer", "error", err)
		}
		analyzer = openAI
	} else {
		log.Warn("OPENAI_API_KEY not set, free-text analysis disabled")
	}

	var notifier service.Notifier
	if cfg.Email.APIKey != "" {
		resend, err := service.NewResendNotifier(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Fatal("failed to initialize notifier", "error", err)
		}
		notifier = resend
	} else {
		log.Warn("RESEND_API_KEY not set, email notifications disabled")
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Fatal("failed to initialize JWT service", "error", err)
	}

	// Services
	surveyService := service.NewSurveyService(surveyRepo, questionRepo, requiredRepo, cacheRepo, log)
	ingestionService := service.NewIngestionService(surveyRepo, questionRepo, responseRepo, log)
	statisticsService := service.NewStatisticsService(
		surveyRepo, statRepo, responseRepo, questionRepo, customerRepo, cacheRepo, analyzer, notifier, log,
	)
	reportService := service.NewReportService(surveyRepo, questionRepo, responseRepo, statRepo, reportStorage, notifier, log)

	// Handlers
	surveyHandler := handler.NewSurveyHandler(surveyService, log)
	responseHandler := handler.NewResponseHandler(ingestionService, reportService, log)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, reportService, log)
	sessionHandler := handler.NewSessionHandler(jwtService, sessionEvents, cfg.Server.AllowedOrigins, cfg.Server.AuthEntryPoint, log)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"postgres": sqlDB,
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	})

	authMiddleware := middleware.NewAuthMiddleware(jwtService, sessionEvents, log)
	rateLimiter := middleware.NewRateLimiter(cacheRepo, log)
	surveyID := middleware.ExtractUintParam("id", "surveyID")
	questionID := middleware.ExtractUintParam("questionId", "questionID")

	if err := dto.RegisterValidators(); err != nil {
		log.Fatal("failed to register validators", "error", err)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Warn("failed to set trusted proxies", "error", err)
		}
	} else if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		log.Warn("failed to set trusted proxies", "error", err)
	}

	var tracing *telemetry.Tracing
	if cfg.Tracing.Enabled {
		tracing, err = telemetry.NewTracing(ctx, cfg.Tracing.ServiceName, nil)
		if err != nil {
			log.Fatal("failed to initialize tracing", "error", err)
		}
		router.Use(tracing.Middleware())
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// Customer-facing
		api.GET("/surveys/active", surveyHandler.GetActiveSurvey)
		api.GET("/surveys/:id/questions", surveyID, surveyHandler.GetQuestions)
		api.POST("/surveys/:id/responses",
			rateLimiter.LimitByIP(middleware.SubmissionRateLimitConfig(cfg.RateLimit.SubmitPerMinute, cfg.RateLimit.SubmitBurst)),
			surveyID,
			responseHandler.SubmitResponses,
		)
		api.GET("/required-questions", surveyHandler.ListRequiredQuestions)
		api.GET("/required-questions/:category", surveyHandler.GetRequiredQuestion)

		// The guard authenticates inside the socket
		api.GET("/dashboard/session", sessionHandler.DashboardSession)

		owner := api.Group("")
		owner.Use(authMiddleware.RequireAuth())
		{
			owner.POST("/auth/logout", sessionHandler.Logout)

			owner.GET("/surveys", surveyHandler.ListSurveys)
			owner.POST("/surveys", surveyHandler.CreateSurvey)

			survey := owner.Group("/surveys/:id", surveyID)
			{
				survey.PUT("/activate", surveyHandler.ActivateSurvey)
				survey.PUT("/deactivate", surveyHandler.DeactivateSurvey)

				survey.POST("/questions", surveyHandler.AddQuestion)
				survey.PUT("/questions/reorder", surveyHandler.ReorderQuestions)
				survey.DELETE("/questions/:questionId", questionID, surveyHandler.DeleteQuestion)

				survey.GET("/responses", responseHandler.ListResponses)
				survey.GET("/responses/categories", responseHandler.CountByCategory)
				survey.GET("/responses/export", responseHandler.ExportResponses)

				survey.GET("/ai-statistics", statisticsHandler.ListStatistics)
				survey.POST("/ai-statistics", statisticsHandler.GenerateStatistics)
				survey.POST("/reports", statisticsHandler.PublishReport)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if tracing != nil {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}

	log.Info("server exited")
}
