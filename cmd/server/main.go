/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave management engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the YAML config (policies, holidays, seed rules)
  3. Initialize SQLite store
  4. Wire the leave service, rule engine and deferred action scheduler
  5. Start server with graceful shutdown, watching the config for edits

COMMAND-LINE FLAGS:
  -addr    HTTP listen address (overrides config, default :8080)
  -db      SQLite database path override
           Use ":memory:" for an in-memory database
  -config  Path to the YAML config file (default: config.yaml)
  -demo    Seed demo employees on startup

CONFIG HOT RELOAD:
  The config file is watched; edits to policies, holidays and seed rules
  land without a restart. Seeded rules (created_by "config") are replaced
  wholesale on each reload; rules created through the API are untouched.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -config=./config.yaml -db=./data/leave.db

  # Run with in-memory database and demo data
  ./server -db=":memory:" -demo

SEE ALSO:
  - api/server.go: Router configuration
  - config/loader.go: Config loading and the file watcher
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/notify"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	demo := flag.Bool("demo", false, "seed demo employees on startup")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	loader, err := config.NewLoader(*configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.Path
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	policies, err := cfg.LeavePolicies()
	if err != nil {
		logger.Error("invalid policies in config", "error", err)
		os.Exit(1)
	}

	svc := &leave.Service{
		Requests:  store,
		Balances:  store,
		Employees: store,
		Holidays:  store,
		Ledger:    store,
		Policies:  policies,
	}

	// Rule engine wired with the default action handlers.
	exec := automation.NewDefaultExecutor(
		api.NewLifecycleAdapter(svc),
		api.NewBalanceAdapter(svc),
		&notify.LogNotifier{Logger: logger},
		logger,
	)
	engine := automation.NewEngine(store, exec, logger)

	ctx := context.Background()
	if err := applyConfig(ctx, cfg, svc, store, logger); err != nil {
		logger.Error("failed to apply config", "error", err)
		os.Exit(1)
	}
	if *demo {
		if err := seedDemoEmployees(ctx, store); err != nil {
			logger.Error("failed to seed demo employees", "error", err)
			os.Exit(1)
		}
		logger.Info("demo employees seeded")
	}

	// Re-apply policies, holidays and seed rules on config edits.
	loader.OnChange(func(next *config.Config) {
		if p, err := next.LeavePolicies(); err == nil {
			svc.Policies = p
		}
		if err := applyConfig(context.Background(), next, svc, store, logger); err != nil {
			logger.Warn("failed to apply reloaded config", "error", err)
		}
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		logger.Warn("config watch unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	scheduler := api.NewActionScheduler(store, exec, logger)
	scheduler.PollInterval = cfg.Scheduler.Interval()
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(svc, engine, store, store, logger)
	server := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// applyConfig pushes holidays and seed rules from the config into the
// store. Seeded rules are replaced wholesale; API-created rules are left
// alone.
func applyConfig(ctx context.Context, cfg *config.Config, svc *leave.Service, store *sqlite.Store, logger *slog.Logger) error {
	holidays, err := cfg.LeaveHolidays()
	if err != nil {
		return err
	}
	for i := range holidays {
		if err := svc.Holidays.SaveHoliday(ctx, &holidays[i]); err != nil {
			return err
		}
	}

	rules, err := cfg.SeedRules()
	if err != nil {
		return err
	}
	existing, err := store.List(ctx, automation.RuleFilter{CreatedBy: config.SeedRuleOwner})
	if err != nil {
		return err
	}
	for _, r := range existing {
		if err := store.Delete(ctx, r.ID); err != nil {
			logger.Warn("failed to remove stale seed rule", "ruleId", r.ID, "error", err)
		}
	}
	for i := range rules {
		if err := store.Create(ctx, &rules[i]); err != nil {
			return err
		}
	}
	if len(rules) > 0 {
		logger.Info("seed rules applied", "count", len(rules))
	}
	return nil
}

func seedDemoEmployees(ctx context.Context, store *sqlite.Store) error {
	employees := []leave.Employee{
		{ID: "emp-alice", Name: "Alice Chen", Email: "alice@example.com",
			Role: "ENGINEER", Department: "ENGINEERING", ManagerID: "emp-dana",
			HireDate: time.Date(2022, 3, 14, 0, 0, 0, 0, time.UTC)},
		{ID: "emp-bob", Name: "Bob Martinez", Email: "bob@example.com",
			Role: "ANALYST", Department: "FINANCE", ManagerID: "emp-dana",
			HireDate: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "emp-dana", Name: "Dana Okafor", Email: "dana@example.com",
			Role: "MANAGER", Department: "ENGINEERING",
			HireDate: time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC)},
	}
	for i := range employees {
		if err := store.SaveEmployee(ctx, &employees[i]); err != nil {
			return err
		}
	}
	return nil
}
