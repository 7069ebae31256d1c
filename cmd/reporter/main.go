package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/internal/accuracy"
	"github.com/selivandex/market-reporter/internal/adapters/ai"
	"github.com/selivandex/market-reporter/internal/adapters/chart"
	"github.com/selivandex/market-reporter/internal/adapters/config"
	"github.com/selivandex/market-reporter/internal/adapters/database"
	"github.com/selivandex/market-reporter/internal/adapters/news"
	"github.com/selivandex/market-reporter/internal/adapters/price"
	redisAdapter "github.com/selivandex/market-reporter/internal/adapters/redis"
	"github.com/selivandex/market-reporter/internal/adapters/telegram"
	"github.com/selivandex/market-reporter/internal/health"
	"github.com/selivandex/market-reporter/internal/pipeline"
	"github.com/selivandex/market-reporter/internal/reports"
	"github.com/selivandex/market-reporter/internal/weights"
	"github.com/selivandex/market-reporter/internal/workers"
	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/worker"
)

const shutdownTimeout = 25 * time.Second

func main() {
	once := flag.Bool("once", false, "Generate a single report and exit")
	flag.Parse()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx, *once); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("market reporter starting...",
		zap.String("market", cfg.Market.Symbol),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
	)

	db, redisClient, err := initInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer redisClient.Close()

	p, err := initPipeline(cfg, db, redisClient)
	if err != nil {
		return err
	}

	if once {
		res := p.Run(ctx)
		if !res.Success {
			return fmt.Errorf("report generation failed: %s", res.Message)
		}
		logger.Info("✅ report generated", zap.Int64("report_id", res.ReportID))
		return nil
	}

	// Detached from ctx so a running report can finish during shutdown
	group := worker.NewWorkerGroup(context.Background(), cfg.Scheduler.Location())
	reportWorker, err := group.Add(workers.NewReportWorker(p), cfg.Scheduler.Cron, cfg.Scheduler.RunOnStart)
	if err != nil {
		return err
	}
	if err := group.Start(); err != nil {
		return err
	}

	healthServer := startHealthServer(cfg, db, redisClient, p, reportWorker)

	// Wait for shutdown signal
	<-ctx.Done()

	return performGracefulShutdown(healthServer, group)
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initInfrastructure initializes database and Redis connections
func initInfrastructure(ctx context.Context, cfg *config.Config) (*database.DB, *redisAdapter.Client, error) {
	db, err := initDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := redisAdapter.New(ctx, &cfg.Redis)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return db, redisClient, nil
}

// initDatabase connects to PostgreSQL and applies migrations
func initDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database connection established (sqlx)",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	return db, nil
}

// initLLM creates the configured model client
func initLLM(cfg *config.Config) ai.LLM {
	switch cfg.AI.Provider {
	case "claude":
		return ai.NewClaudeProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout)
	default:
		return ai.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout)
	}
}

// initPublisher returns the Telegram notifier or nil when disabled
func initPublisher(cfg *config.Config) pipeline.Publisher {
	if !cfg.Telegram.Enabled {
		return nil
	}

	notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		return nil
	}

	logger.Info("📱 Telegram notifier initialized", zap.Int64("chat_id", cfg.Telegram.ChatID))
	return notifier
}

// initPipeline wires the report pipeline
func initPipeline(cfg *config.Config, db *database.DB, redisClient *redisAdapter.Client) (*pipeline.Pipeline, error) {
	llm := initLLM(cfg)
	engine, err := ai.NewEngine(llm, nil, ai.EngineConfig{
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis engine: %w", err)
	}

	market := price.NewClient(cfg.Market.TickerURL, cfg.Market.FearGreedURL, cfg.Market.Timeout)
	priceStore := price.NewRepository(db.DB())
	recorder := price.NewRecorder(market, priceStore, cfg.Market.Symbol)

	browser := chart.NewChromeBrowser(cfg.Chart.WaitFor, cfg.Chart.Headless, cfg.Chart.StepTimeout, cfg.Chart.Settle)
	capturer := chart.NewCapturer(browser, recorder, cfg.Chart.URL, cfg.Chart.MediaDir, cfg.Chart.MediaURL)

	newsProvider := news.NewGoogleNewsProvider(cfg.News.FeedURL, cfg.News.Language, cfg.News.Timeout)
	aggregator := news.NewAggregator(newsProvider, cfg.News.Categories, cfg.News.Limit)

	reportRepo := reports.NewCachedRepository(reports.NewPostgresRepository(db.DB()), redisClient, cfg.Redis.CacheTTL)
	tracker := accuracy.NewTracker(accuracy.NewPostgresRepository(db.DB()), reportRepo, priceStore)

	weightStore := weights.NewStore(weights.NewPostgresRepository(db.DB()))

	p, err := pipeline.New(pipeline.Deps{
		Chart:     capturer,
		News:      aggregator,
		Analyzer:  engine,
		Reports:   reportRepo,
		Accuracy:  tracker,
		Weights:   weightStore,
		FearGreed: market,
		Leases:    redisClient.LockFactory(),
		Publisher: initPublisher(cfg),
	}, pipeline.Config{
		LeaseKey: cfg.Scheduler.LeaseKey,
		LeaseTTL: cfg.Scheduler.LeaseTTL,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("report pipeline ready",
		zap.String("llm", llm.Name()),
		zap.Strings("news_categories", cfg.News.Categories),
		zap.String("chart_url", cfg.Chart.URL),
	)
	return p, nil
}

// startHealthServer starts health endpoints and marks the service ready
func startHealthServer(cfg *config.Config, db *database.DB, redisClient *redisAdapter.Client, p *pipeline.Pipeline, schedule health.Schedule) *health.Server {
	healthServer := health.NewServer(cfg.Health.Port, map[string]health.Checker{
		"database": db,
		"redis":    redisClient,
	}, p, schedule)

	go func() {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("📈 Market reporter ready",
		zap.String("health_port", cfg.Health.Port),
		zap.String("schedule", cfg.Scheduler.Cron),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	healthServer.SetReady(true)
	return healthServer
}

// performGracefulShutdown stops the scheduler (waiting for a running report) and the health server
func performGracefulShutdown(healthServer *health.Server, group *worker.WorkerGroup) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	group.Stop(shutdownTimeout)

	logger.Info("stopping health server...")
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("health server stop error", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}
