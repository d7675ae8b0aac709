package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/application/recalc"
	"github.com/karkhana-erp/backend/internal/infrastructure/config"
	"github.com/karkhana-erp/backend/internal/infrastructure/event"
	"github.com/karkhana-erp/backend/internal/infrastructure/logger"
	"github.com/karkhana-erp/backend/internal/infrastructure/persistence"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

func main() {
	var (
		partyFlag string
		dryRun    bool
		logLevel  string
	)

	flag.StringVar(&partyFlag, "party", "", "Recalculate a single party by UUID (default: all parties)")
	flag.BoolVar(&dryRun, "dry-run", false, "Report drift without correcting stored figures")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	defer func() {
		if err := lp.Shutdown(ctx); err != nil {
			log.Warn("Error shutting down log exporter", zap.Error(err))
		}
	}()

	// With an enabled collector, logs go to stdout and the collector both
	if cfg.Telemetry.Enabled {
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      logLevel,
			Format:     "console",
			Output:     "stdout",
			TimeFormat: "2006-01-02 15:04:05",
		}, lp, cfg.Telemetry.ServiceName)
		if err != nil {
			log.Warn("Failed to bridge logs to collector, keeping local logger", zap.Error(err))
		} else {
			log = bridged
		}
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(ctx); err != nil {
			log.Warn("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	var ledgerMetrics *telemetry.LedgerMetrics
	if mp.IsEnabled() {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:  mp.Meter("ledger"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to initialize ledger metrics", zap.Error(err))
		}
	}

	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := bus.Stop(ctx); err != nil {
			log.Warn("Error stopping event bus", zap.Error(err))
		}
	}()

	scope := persistence.NewRecalcTransactionScope(db)
	svc := recalc.NewRecalcService(scope, bus, ledgerMetrics, log)

	var drifts []recalc.PartyDrift
	if partyFlag != "" {
		partyID, err := uuid.Parse(partyFlag)
		if err != nil {
			log.Fatal("Invalid party UUID", zap.String("value", partyFlag))
		}
		drift, err := svc.RecalculateParty(ctx, partyID, dryRun)
		if err != nil {
			log.Fatal("Recalculation failed", zap.Error(err))
		}
		drifts = []recalc.PartyDrift{*drift}
	} else {
		drifts, err = svc.RecalculateAll(ctx, dryRun)
		if err != nil {
			log.Fatal("Recalculation failed", zap.Error(err))
		}
	}

	drifted := 0
	for _, d := range drifts {
		if !d.HasDrift() {
			continue
		}
		drifted++
		fmt.Printf("%-12s %-30s stored=%s recomputed=%s drift=%s corrected=%t\n",
			d.Code, d.Name,
			d.Stored.StringFixed(2), d.Recomputed.StringFixed(2), d.Drift.StringFixed(2),
			d.Corrected,
		)
	}

	log.Info("Recalculation complete",
		zap.Int("checked", len(drifts)),
		zap.Int("drifted", drifted),
		zap.Bool("dry_run", dryRun),
	)

	// Non-zero exit lets a scheduled dry run page on drift.
	if dryRun && drifted > 0 {
		os.Exit(2)
	}
}
