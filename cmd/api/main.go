package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/checkmate/analyzer"
	"github.com/checkmate/analyzer/api"
	"github.com/checkmate/analyzer/db"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// initTracer wires OTLP trace export when OTEL_EXPORTER_OTLP_ENDPOINT is set.
func initTracer(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("article-analyzer")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development settings; missing file is fine
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env file")
	}

	logger.Info("analyzer service initializing", "version", "1.0.0")

	// Initialize tracing
	ctx := context.Background()
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tp, err := initTracer(ctx)
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Error("error shutting down tracer", "error", err)
				}
			}()
			logger.Info("tracing initialized successfully")
		}
	}

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultStoragePath := getEnv("STORAGE_BASE_PATH", "./storage")
	defaultMLBaseURL := getEnv("ML_BASE_URL", "http://localhost:8000")
	defaultSearchAPIKey := getEnv("SEARCH_API_KEY", "")
	defaultSearchCX := getEnv("SEARCH_ENGINE_ID", "")
	defaultVisionAPIKey := getEnv("VISION_API_KEY", "")
	defaultChromePath := getEnv("CHROME_PATH", "")
	defaultSimilarWorkers := getEnv("SIMILAR_WORKERS", "4")

	similarWorkers, err := strconv.Atoi(defaultSimilarWorkers)
	if err != nil || similarWorkers < 1 {
		logger.Warn("invalid SIMILAR_WORKERS value, using default",
			"provided", defaultSimilarWorkers,
			"default", 4,
		)
		similarWorkers = 4
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	mlBaseURL := flag.String("ml-base-url", defaultMLBaseURL, "ML enrichment service base URL")
	searchAPIKey := flag.String("search-api-key", defaultSearchAPIKey, "Search provider API key")
	searchCX := flag.String("search-cx", defaultSearchCX, "Search engine identifier")
	visionAPIKey := flag.String("vision-api-key", defaultVisionAPIKey, "Image-matching oracle API key (empty = disabled)")
	chromePath := flag.String("chrome-path", defaultChromePath, "Path to Chrome binary (empty = auto-detect)")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	migrateStatus := flag.Bool("migrate-status", false, "Print migration status and exit")
	migrateRollback := flag.Bool("migrate-rollback", false, "Roll back the most recent migration and exit")
	flag.Parse()

	// PostgreSQL database configuration (required)
	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		logger.Error("DB_HOST environment variable is required")
		os.Exit(1)
	}

	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "checkmate")
	dbPassword := getEnv("DB_PASSWORD", "checkmate_dev_pass")
	dbName := getEnv("DB_NAME", "checkmate")

	dbConfig := db.Config{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort, dbUser, dbPassword, dbName),
	}
	logger.Info("using PostgreSQL database", "host", dbHost, "port", dbPort, "database", dbName)

	// Migration admin commands run against the bare connection and exit
	// before the server (and its automatic migration pass) is constructed.
	if *migrateStatus || *migrateRollback {
		conn, err := db.Connect(dbConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if *migrateRollback {
			if err := db.Rollback(conn); err != nil {
				logger.Error("rollback failed", "error", err)
				os.Exit(1)
			}
			logger.Info("rolled back most recent migration")
		}

		status, err := db.GetMigrationStatus(conn)
		if err != nil {
			logger.Error("failed to get migration status", "error", err)
			os.Exit(1)
		}
		for _, m := range status {
			logger.Info("migration", "version", m.Version, "name", m.Name, "applied", m.Applied)
		}
		return
	}

	analyzerConfig := analyzer.DefaultConfig()
	analyzerConfig.MLBaseURL = *mlBaseURL
	analyzerConfig.SearchAPIKey = *searchAPIKey
	analyzerConfig.SearchCX = *searchCX
	analyzerConfig.VisionAPIKey = *visionAPIKey
	analyzerConfig.ChromePath = *chromePath
	analyzerConfig.SimilarWorkers = similarWorkers

	// Create server configuration
	config := api.Config{
		Addr:           ":" + *port,
		DBConfig:       dbConfig,
		AnalyzerConfig: analyzerConfig,
		StoragePath:    defaultStoragePath,
		CORSEnabled:    !*disableCORS,
	}

	// Create server
	server, err := api.NewServer(config)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("analyzer service starting",
			"port", *port,
			"database_host", dbHost,
			"database_name", dbName,
			"storage_path", defaultStoragePath,
			"ml_base_url", *mlBaseURL,
			"similar_workers", similarWorkers,
			"vision_enabled", *visionAPIKey != "",
		)

		if err := server.Start(); err != nil {
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
		os.Exit(1)
	}

	logger.Info("server stopped")
}
