package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/finbook-ledger/internal/config"
	"github.com/finbook-ledger/internal/data/mongo"
	"github.com/finbook-ledger/internal/data/postgres"
	"github.com/finbook-ledger/internal/dispatch"
	"github.com/finbook-ledger/internal/ledger"
	"github.com/finbook-ledger/internal/logger"
	"github.com/finbook-ledger/internal/materializer"
	"github.com/finbook-ledger/internal/platform/messaging/producers"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/finbook-ledger/internal/scheduler"
)

func main() {
	runNow := flag.Bool("run-now", false, "run the recurring materializer once and exit")
	dryRun := flag.Bool("dry-run", false, "with -run-now, report due templates without creating transactions")
	ownerFlag := flag.String("owner", "", "with -run-now, restrict the run to one owner ID")
	flag.Parse()

	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("scheduler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	categoryRepo := postgres.NewCategoryRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	recurringRepo := postgres.NewRecurringRepository(log, postgresDB)
	budgetRepo := postgres.NewBudgetRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize the ledger engine and the materializer on top of it
	engine := ledger.NewEngine(postgresDB, accountRepo, transactionRepo, categoryRepo, outboxRepo, log)
	mat := materializer.New(recurringRepo, engine, log)

	// One-shot mode runs the materializer in-process and exits
	if *runNow {
		os.Exit(runOnce(appCtx, log, mat, *dryRun, *ownerFlag))
	}

	// Initialize MongoDB for the event history
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize the Kafka producer for ledger events
	producer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	historyRepo := mongo.NewEventRepository(log, mongoDB.Database())

	// Initialize the outbox dispatcher
	publisher := dispatch.NewEventPublisher(outboxRepo, historyRepo, producer, log)
	dispatcher, err := dispatch.NewDispatcher(&cfg.Outbox, outboxRepo, publisher, log)
	if err != nil {
		log.Error("Failed to initialize outbox dispatcher", "error", err)
		os.Exit(1)
	}

	go dispatcher.Start(appCtx)

	// Initialize and start the cron scheduler
	jobs := scheduler.NewJobs(mat, budgetRepo, transactionRepo, outboxRepo, log)
	sched := scheduler.New(jobs, &cfg.Scheduler, log)
	sched.Start()
	log.Info("Scheduler started",
		"materializer_schedule", cfg.Scheduler.MaterializerSchedule,
		"budget_alert_schedule", cfg.Scheduler.BudgetAlertSchedule,
	)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context, stopping the dispatcher loop
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for any in-flight cron job to finish
	<-sched.Stop().Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := producer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Scheduler shutdown completed")
}

// runOnce executes a single materializer pass and returns the process exit
// code: 0 on full success, 1 on any template failure or run error.
func runOnce(ctx context.Context, log *slog.Logger, mat *materializer.Materializer, dryRun bool, ownerFlag string) int {
	opts := materializer.RunOptions{
		AsOf:   time.Now().UTC(),
		DryRun: dryRun,
	}
	if ownerFlag != "" {
		ownerID, err := uuid.Parse(ownerFlag)
		if err != nil {
			log.Error("Invalid -owner flag", "value", ownerFlag, "error", err)
			return 1
		}
		opts.Owner = &ownerID
	}

	report, err := mat.Run(ctx, opts)
	if err != nil {
		log.Error("Materializer run failed", "error", err)
		return 1
	}

	log.Info("Materializer run finished",
		"due", report.DueCount,
		"materialized", len(report.Materialized),
		"failures", len(report.Failures),
		"dry_run", report.DryRun,
	)
	for _, f := range report.Failures {
		log.Error("Template failed to materialize",
			"template_id", f.TemplateID.String(),
			"owner_id", f.OwnerID.String(),
			"reason", f.Reason,
		)
	}

	if len(report.Failures) > 0 {
		return 1
	}
	return 0
}
