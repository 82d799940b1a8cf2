package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/stageiq/stageiq/config"
	"github.com/stageiq/stageiq/internal/analysis"
	"github.com/stageiq/stageiq/internal/api/handlers"
	"github.com/stageiq/stageiq/internal/api/middleware"
	"github.com/stageiq/stageiq/internal/api/routes"
	"github.com/stageiq/stageiq/internal/cache"
	"github.com/stageiq/stageiq/internal/logger"
	"github.com/stageiq/stageiq/internal/metrics"
	"github.com/stageiq/stageiq/internal/providers/llm"
	"github.com/stageiq/stageiq/internal/providers/stt"
	mongorepo "github.com/stageiq/stageiq/internal/repositories/mongo"
	pgrepo "github.com/stageiq/stageiq/internal/repositories/postgres"
	"github.com/stageiq/stageiq/internal/services"
	"github.com/stageiq/stageiq/internal/storage"
	"github.com/stageiq/stageiq/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	// Stores
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}

	mongoDBName := os.Getenv("MONGO_DB")
	if mongoDBName == "" {
		mongoDBName = "stageiq"
	}
	mongoDB := config.MongoClient.Database(mongoDBName)

	// Repositories
	assessmentRepo := pgrepo.NewAssessmentRepo(config.PostgresDB)
	usageRepo := pgrepo.NewUsageRepo(config.PostgresDB)
	entitlementRepo := pgrepo.NewEntitlementRepo(config.PostgresDB)
	timingRepo := mongorepo.NewTimingRepo(mongoDB)

	// Services
	assessmentSvc := services.NewAssessmentService(assessmentRepo)
	usageSvc := services.NewUsageService(entitlementRepo, usageRepo)

	// Providers
	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech client init error: %v", err)
	}
	defer sttProvider.Close()

	llmProvider, err := llm.NewVertexGemini(ctx,
		os.Getenv("GCP_PROJECT_ID"),
		os.Getenv("GCP_LOCATION"),
		os.Getenv("GEMINI_MODEL"),
	)
	if err != nil {
		log.Fatalf("Vertex client init error: %v", err)
	}
	defer llmProvider.Close()

	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		log.Fatal("GCS_BUCKET environment variable is not set")
	}
	store, err := storage.NewGCSStore(ctx, bucket)
	if err != nil {
		log.Fatalf("GCS client init error: %v", err)
	}
	defer store.Close()

	reportCache := cache.NewRedisCache(config.RedisClient)

	// Worker pool
	pool := &workers.AssessmentWorkerPool{
		Redis: config.RedisClient,
		Pipeline: &workers.Pipeline{
			Assessments: assessmentSvc,
			Usage:       usageSvc,
			Timings:     timingRepo,
			STT:         sttProvider,
			Analyzer:    analysis.NewAnalyzer(llmProvider, 90*time.Second),
			Cache:       reportCache,
			Lexicon:     metrics.DefaultLexicon,
			Logger:      l,
		},
		Signer: store,
		Logger: l,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool start error: %v", err)
	}

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Assessment: handlers.NewAssessmentHandler(assessmentSvc, usageSvc, timingRepo, store, reportCache, config.RedisClient),
		Usage:      handlers.NewUsageHandler(usageSvc),
		WS:         handlers.NewWSHandler(assessmentSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
