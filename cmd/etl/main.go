package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/wind-turbine-etl/internal/config"
	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
	"github.com/couchcryptid/wind-turbine-etl/internal/observability"
	"github.com/couchcryptid/wind-turbine-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source := arcgis.NewClient(cfg.QueryURL, cfg.HTTPTimeout, logger)
	writer := csvfile.NewWriter(cfg.OutputPath, logger)

	p := pipeline.New(source, writer, domain.DefaultRules(), pipeline.Settings{
		BatchSize: cfg.BatchSize,
		Location:  cfg.Location,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		srv.Start()
	}

	logger.Info("run starting", "url", cfg.QueryURL, "batch_size", cfg.BatchSize, "output", cfg.OutputPath)
	_, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
	}

	if cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics textfile write error", "error", err, "path", cfg.MetricsFile)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		stop()
		os.Exit(1)
	}
	logger.Info("output written", "path", writer.Path())
}
