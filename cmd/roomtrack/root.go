package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roomtrack/internal/blob"
	"roomtrack/internal/config"
	"roomtrack/internal/core"
	"roomtrack/pkg/domain"
)

// app carries the state shared by every subcommand.
type app struct {
	envFile     string
	storage     string
	sqlitePath  string
	logLevel    string
	traceSpans  bool
	cfg         *config.Config
	log         *zap.Logger
	store       domain.PersistentStore
	metricsHTTP http.Handler
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "roomtrack",
		Short:         "RFID inventory tracking across Room A and Room B",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before reading ROOMTRACK_* variables")
	flags.StringVar(&a.storage, "storage", "", "Storage driver override (memory, sqlite, postgres)")
	flags.StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite database path override")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.BoolVar(&a.traceSpans, "trace", false, "Write one JSON line per service operation to stderr")

	root.AddCommand(
		newServeCmd(a),
		newSeedCmd(a),
		newAddCmd(a),
		newMoveCmd(a),
		newScanCmd(a),
		newItemsCmd(a),
		newMovementsCmd(a),
		newRoomCmd(a),
		newExportCmd(a),
		newCheckCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.storage != "" {
		cfg.Storage.Driver = core.StorageDriver(a.storage)
	}
	if a.sqlitePath != "" {
		cfg.Storage.SQLitePath = a.sqlitePath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	logger, err := core.NewZapLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

func (a *app) close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

// service opens the configured store and wires the observability stack.
// Exports are enabled when withBlobs is set.
func (a *app) service(ctx context.Context, withBlobs bool) (*core.Service, error) {
	store, err := core.OpenPersistentStore(a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Storage.Driver, err)
	}
	a.store = store

	logger := core.NewLogger(a.log)
	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithAuditRecorder(core.LogAuditRecorder{Logger: logger}),
		core.WithRoomResolution(a.cfg.RoomResolution),
	}
	if a.traceSpans {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(os.Stderr)))
	}

	switch a.cfg.Metrics {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
		a.metricsHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	case config.MetricsExpvar:
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
		a.metricsHTTP = expvar.Handler()
	}

	if withBlobs {
		blobs, err := blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		opts = append(opts, core.WithBlobStore(blobs))
	}
	return core.NewService(store, opts...), nil
}

// run opens the service for one command and releases the store afterwards.
func (a *app) run(cmd *cobra.Command, withBlobs bool, fn func(context.Context, *core.Service) error) (err error) {
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	svc, err := a.service(cmd.Context(), withBlobs)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
