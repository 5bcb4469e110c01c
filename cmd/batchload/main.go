// Command batchload imports historical review results through the batch
// engine. It loads configuration, applies migrations, starts the ops HTTP
// server, and runs one import job from a JSONL input file.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/scry-batch/internal/api"
	"github.com/phrazzld/scry-batch/internal/batch"
	"github.com/phrazzld/scry-batch/internal/config"
	"github.com/phrazzld/scry-batch/internal/domain"
	"github.com/phrazzld/scry-batch/internal/events"
	"github.com/phrazzld/scry-batch/internal/platform/logger"
	"github.com/phrazzld/scry-batch/internal/platform/metrics"
	"github.com/phrazzld/scry-batch/internal/platform/postgres"
	"github.com/phrazzld/scry-batch/internal/service"
)

func main() {
	inputPath := flag.String("input", "", "path to a JSONL file of review results to import")
	migrate := flag.Bool("migrate", true, "apply database migrations before importing")
	flag.Parse()

	if err := run(*inputPath, *migrate); err != nil {
		log.Fatalf("batchload failed: %v", err)
	}
}

func run(inputPath string, migrate bool) error {
	if inputPath == "" {
		return errors.New("missing required -input flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"batch_size", cfg.Engine.BatchSize,
		"max_concurrency", cfg.Engine.MaxConcurrency)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database", "error", closeErr)
		}
	}()

	if migrate {
		if err := runMigrations(db, appLogger); err != nil {
			return err
		}
	}

	engine, err := batch.New[domain.Review, uuid.UUID](cfg.Engine.BatchConfig(), appLogger)
	if err != nil {
		return fmt.Errorf("failed to build batch engine: %w", err)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewEngineCollector(engine.Metrics)); err != nil {
		return fmt.Errorf("failed to register engine collector: %w", err)
	}

	server := startOpsServer(cfg.Server.Port, engine, registry, appLogger)
	defer shutdownOpsServer(server, appLogger)

	reviews, err := readReviews(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	appLogger.Info("input loaded", "path", inputPath, "reviews", len(reviews))

	emitter := events.NewInMemoryEventEmitter(appLogger)
	emitter.RegisterHandler(&loggingEventHandler{logger: appLogger})

	importer := service.NewReviewImportService(
		service.NewTxReviewRepository(db, appLogger),
		engine,
		emitter,
		service.ImportSettings{
			PreserveOrder: cfg.Import.PreserveOrder,
			DeadlockRetry: cfg.Import.DeadlockRetry,
		},
		appLogger,
	)

	summary, err := importer.Import(context.Background(), reviews)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	appLogger.Info("import summary",
		"job_id", summary.JobID.String(),
		"processed", summary.Result.TotalProcessed,
		"failed", summary.Result.TotalFailed,
		"skipped", len(summary.Skipped),
		"duration", summary.Result.Duration,
		"throughput", summary.Result.Throughput,
		"halted", summary.Result.Halted)

	if summary.Result.TotalFailed > 0 {
		return fmt.Errorf("%d reviews failed to import", summary.Result.TotalFailed)
	}
	return nil
}

// setupDatabase opens the connection pool and verifies connectivity.
func setupDatabase(cfg *config.Config, appLogger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	appLogger.Info("database connection established")
	return db, nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(db *sql.DB, appLogger *slog.Logger) error {
	goose.SetBaseFS(postgres.Migrations())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, postgres.MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	appLogger.Info("database migrations applied")
	return nil
}

// startOpsServer serves health and metrics endpoints while the import runs.
func startOpsServer(
	port int,
	engine api.EngineStats,
	registry *prometheus.Registry,
	appLogger *slog.Logger,
) *http.Server {
	router := api.NewRouter(api.NewOpsHandler(engine, appLogger), registry)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Info("ops server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("ops server failed", "error", err)
		}
	}()

	return server
}

func shutdownOpsServer(server *http.Server, appLogger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("ops server shutdown failed", "error", err)
	}
}

// readReviews parses one JSON review object per line. Malformed lines fail
// the whole load: garbage input is a caller error, not a batch failure.
func readReviews(path string) ([]domain.Review, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var reviews []domain.Review
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var review domain.Review
		if err := json.Unmarshal(raw, &review); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if review.ID == uuid.Nil {
			review.ID = uuid.New()
		}
		reviews = append(reviews, review)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return reviews, nil
}

// loggingEventHandler logs pipeline events; a real deployment would forward
// them to a message bus.
type loggingEventHandler struct {
	logger *slog.Logger
}

func (h *loggingEventHandler) HandleEvent(_ context.Context, event *events.BatchEvent) error {
	h.logger.Info("pipeline event",
		"event_id", event.ID,
		"event_type", event.Type,
		"payload", string(event.Payload))
	return nil
}
