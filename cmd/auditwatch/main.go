package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zombar/auditwatch"
	"github.com/zombar/auditwatch/api"
	"github.com/zombar/auditwatch/notify"
	"github.com/zombar/auditwatch/scheduler"
	"github.com/zombar/auditwatch/store"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("auditwatch service initializing", "version", "1.0.0")

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultSchedule := getEnv("SCRAPE_SCHEDULE", scheduler.DefaultSchedule)
	defaultDataDir := getEnv("DATA_DIR", "./data")
	defaultMaxReports := getEnv("MAX_REPORTS", "30")

	maxReports, err := strconv.Atoi(defaultMaxReports)
	if err != nil || maxReports < 1 {
		logger.Warn("invalid MAX_REPORTS value, using default", "provided", defaultMaxReports, "default", 30)
		maxReports = 30
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	schedule := flag.String("schedule", defaultSchedule, "Cron expression for scrape cycles")
	dataDir := flag.String("data-dir", defaultDataDir, "Directory for bucket files (file backend)")
	lookupDates := flag.Bool("lookup-dates", true, "Fetch each report page to find its publication date")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	// Storage backend
	ctx := context.Background()
	st, err := buildStore(ctx, logger, *dataDir)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Notifier (optional)
	var notifier notify.Notifier
	recipient := getEnv("NOTIFY_RECIPIENT", "")
	gatewayURL := getEnv("GATEWAY_URL", "")
	if gatewayURL != "" && recipient != "" {
		gw, err := notify.NewGateway(notify.GatewayConfig{
			URL:    gatewayURL,
			ID:     getEnv("GATEWAY_ID", ""),
			Secret: getEnv("GATEWAY_SECRET", ""),
		})
		if err != nil {
			logger.Error("failed to initialize notification gateway", "error", err)
			os.Exit(1)
		}
		notifier = gw
		logger.Info("notification gateway configured", "recipient", recipient)
	} else {
		logger.Info("no notification gateway configured, cycles will run silently")
	}

	// Scraper and engine
	scraperConfig := auditwatch.DefaultConfig()
	scraperConfig.MaxReports = maxReports
	scraperConfig.LookupDates = *lookupDates
	if baseURL := getEnv("BASE_URL", ""); baseURL != "" {
		scraperConfig.BaseURL = baseURL
	}

	engine := auditwatch.NewEngine(
		auditwatch.New(scraperConfig, nil),
		st,
		notifier,
		recipient,
		logger,
	)

	// Scheduler
	sched, err := scheduler.New(engine, *schedule, logger)
	if err != nil {
		logger.Error("invalid scrape schedule", "schedule", *schedule, "error", err)
		os.Exit(1)
	}
	sched.Start()

	// API server
	server := api.NewServer(api.Config{
		Addr:        ":" + *port,
		CORSEnabled: !*disableCORS,
	}, engine, sched)

	go func() {
		logger.Info("auditwatch service starting",
			"port", *port,
			"schedule", *schedule,
			"max_reports", maxReports,
			"lookup_dates", *lookupDates,
		)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	sched.Stop()

	logger.Info("server stopped")
}

// buildStore selects the storage backend from STORE_BACKEND: file
// (default), postgres, or s3.
func buildStore(ctx context.Context, logger *slog.Logger, dataDir string) (store.Store, error) {
	backend := getEnv("STORE_BACKEND", "file")
	switch backend {
	case "postgres":
		dsn := getEnv("DATABASE_URL", "")
		logger.Info("using PostgreSQL store")
		return store.NewPostgresStore(ctx, dsn)
	case "s3":
		logger.Info("using S3 store", "bucket", getEnv("S3_BUCKET", ""))
		return store.NewS3Store(ctx, store.S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "auditwatch"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnv("S3_USE_PATH_STYLE", "") == "true",
		})
	default:
		logger.Info("using file store", "data_dir", dataDir)
		return store.NewFileStore(store.FileConfig{DataDir: dataDir})
	}
}
