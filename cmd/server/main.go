package main

import (
	"context"
	"log"

	"aicfo-backend/analysis"
	"aicfo-backend/config"
	"aicfo-backend/handlers"
	"aicfo-backend/logger"
	"aicfo-backend/metrics"
	"aicfo-backend/middleware"
	"aicfo-backend/repository"
	"aicfo-backend/service"
	"aicfo-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	appLog := logger.GetLogger()
	defer appLog.Sync()

	db, err := initPostgres(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Postgres connection established")

	fileStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		appLog.Fatal("Failed to initialize storage", zap.Error(err))
	}
	appLog.Info("Storage initialized")

	backend := analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout)
	if err := backend.WaitHealthy(context.Background()); err != nil {
		appLog.Warn("Analysis backend not reachable at startup", zap.Error(err))
	}

	geminiClient, err := initGemini(cfg.GeminiKey)
	if err != nil {
		appLog.Warn("Gemini client unavailable, insights fall back to summaries", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	reportRepo := repository.NewReportRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// Services
	dupChecker := service.NewDuplicateChecker(analysisRepo)
	metricsSvc := service.NewMetricsService(
		service.MetricsWithAnalysisLister(analysisRepo),
		service.MetricsWithBranchLister(branchRepo),
		service.MetricsWithDetailFetcher(backend),
		service.MetricsWithServiceName(cfg.ServiceName),
	)
	chatSvc := service.NewChatService(backend)
	insightSvc := service.NewInsightService(geminiClient)
	billingSvc := service.NewBillingService(
		service.BillingWithSubscriptionStore(subscriptionRepo),
		service.BillingWithUserStore(userRepo),
		service.BillingWithConfig(service.BillingConfig{
			SecretKey:       cfg.Stripe.SecretKey,
			WebhookSecret:   cfg.Stripe.WebhookSecret,
			PriceID:         cfg.Stripe.PriceID,
			SuccessURL:      cfg.Stripe.SuccessURL,
			CancelURL:       cfg.Stripe.CancelURL,
			PortalReturnURL: cfg.Stripe.PortalReturnURL,
		}),
		service.BillingWithServiceName(cfg.ServiceName),
	)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, backend)
	companyHandler := handlers.NewCompanyHandler(companyRepo, branchRepo, userRepo)
	analysisHandler := handlers.NewAnalysisHandler(analysisRepo, reportRepo, dupChecker, fileStorage, backend, cfg.Upload.MaxFileSize)
	reportHandler := handlers.NewReportHandler(reportRepo)
	dashboardHandler := handlers.NewDashboardHandler(companyRepo, analysisRepo, reportRepo, metricsSvc)
	insightHandler := handlers.NewInsightHandler(companyRepo, metricsSvc, insightSvc, dashboardHandler)
	chatHandler := handlers.NewChatHandler(chatSvc)
	billingHandler := handlers.NewBillingHandler(billingSvc)

	auth := middleware.NewAuthMiddleware(cfg.JWT.SigningKey, userRepo)
	httpMetrics := metrics.NewHTTPMetrics(cfg.ServiceName)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.ClientURL))
	r.Use(httpMetrics.Middleware())

	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(metrics.GetPrometheusHandler()))

	api := r.Group("/api")

	// Provider callbacks carry their own signature, not a session
	api.POST("/billing/webhook", billingHandler.HandleWebhook)

	authed := api.Group("")
	authed.Use(auth.RequireSession())
	{
		authed.POST("/companies", companyHandler.CreateCompany)
		authed.GET("/companies", companyHandler.ListCompanies)
		authed.GET("/companies/:id", companyHandler.GetCompany)
		authed.POST("/companies/:id/branches", companyHandler.CreateBranch)
		authed.GET("/companies/:id/branches", companyHandler.ListBranches)
		authed.PUT("/branches/:id", companyHandler.UpdateBranch)
		authed.DELETE("/branches/:id", companyHandler.DeleteBranch)

		authed.POST("/billing/checkout", billingHandler.CreateCheckout)
		authed.POST("/billing/portal", billingHandler.CreatePortal)
		authed.GET("/billing/status", billingHandler.GetStatus)
		authed.POST("/billing/cancel", billingHandler.CancelSubscription)
	}

	// Everything past the paywall requires an entitled subscription
	paid := authed.Group("")
	paid.Use(middleware.RequireSubscription(subscriptionRepo))
	{
		paid.POST("/analyses/upload", analysisHandler.UploadAnalysis)
		paid.POST("/analyses/check-duplicate", analysisHandler.CheckDuplicate)
		paid.GET("/analyses", analysisHandler.ListAnalyses)
		paid.GET("/analyses/:id", analysisHandler.GetAnalysis)
		paid.DELETE("/analyses/:id", analysisHandler.DeleteAnalysis)

		paid.GET("/reports", reportHandler.ListReports)
		paid.GET("/reports/:id", reportHandler.GetReport)
		paid.DELETE("/reports/:id", reportHandler.DeleteReport)

		paid.GET("/dashboard/summary", dashboardHandler.GetSummary)
		paid.GET("/companies/:id/metrics", dashboardHandler.GetCompanyMetrics)
		paid.GET("/companies/:id/insights", insightHandler.GetInsights)

		paid.POST("/chat", chatHandler.SendMessage)
	}

	appLog.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		appLog.Fatal("Failed to start server", zap.Error(err))
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func initGemini(apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	return genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
}
