package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/database/minio"
	"decision-service/internal/database/postgres"
	"decision-service/internal/database/redis"
	"decision-service/internal/documents"
	"decision-service/internal/event"
	"decision-service/internal/handlers"
	"decision-service/internal/repository"
	"decision-service/internal/retrieval"
	"decision-service/internal/services"
	"decision-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	_ "github.com/lib/pq"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/var", "log", "decision_service")
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	out := io.MultiWriter(os.Stdout, file)
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, nil)))

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitConn.Close()

	rating, err := config.NewRatingSource(cfg.RatingTablePath)
	if err != nil {
		log.Fatalf("Failed to load rating tables: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := rating.WatchRatingTable(ctx); err != nil {
			slog.Error("Rating table watcher stopped", "error", err)
		}
	}()

	timeoutSeconds, err := strconv.Atoi(cfg.DecisionTimeout)
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	decisionTimeout := time.Duration(timeoutSeconds) * time.Second

	// Repositories
	violationRepo := repository.NewViolationRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	rateRepo := repository.NewRateRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	decisionCache := repository.NewDecisionCache(redisClient.GetClient(), 24*time.Hour)

	// Retrieval adapters
	httpRetriever := retrieval.NewHTTPRetriever(cfg.RetrievalCfg)
	staticFallback := retrieval.NewStaticFallback(rating)

	// Background infrastructure
	publisher := event.NewNotificationPublisher(rabbitConn)
	atrService := documents.NewATRService(minioClient, cfg.ATRTemplateKey)
	pool := worker.NewWorkingPool(4, 256)
	dispatcher := worker.NewDispatcher(pool, publisher, atrService, decisionRepo)

	var managerWg sync.WaitGroup
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	reviewSweep := worker.NewJobScheduler("review-sweep", 15*time.Minute, pool)
	reviewSweep.AddJob(dispatcher.ReviewSweepJob())
	go reviewSweep.Run(ctx)

	// Pipeline engines
	riskScorer := services.NewRiskScorer(violationRepo, rating)
	premiumCalculator := services.NewPremiumCalculator(rateRepo, rating)
	damageValuator := services.NewDamageValuator(httpRetriever, staticFallback, rating)
	limitEnforcer := services.NewLimitEnforcer(policyRepo)
	fraudScorer := services.NewFraudScorer(rating)

	underwritingService := services.NewUnderwritingService(riskScorer, premiumCalculator, quoteRepo, dispatcher, decisionTimeout)
	decisionService := services.NewDecisionService(
		damageValuator, limitEnforcer, fraudScorer,
		httpRetriever, staticFallback,
		policyRepo, decisionRepo, decisionCache,
		rating, dispatcher, decisionTimeout)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Decision service is healthy")
	})

	handlers.NewUnderwritingHandler(underwritingService).Register(app)
	handlers.NewClaimHandler(decisionService, atrService).Register(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	slog.Info("Decision service started", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("Shutdown signaled, draining")

	if err := app.Shutdown(); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	managerWg.Wait()
	slog.Info("Decision service stopped")
}
