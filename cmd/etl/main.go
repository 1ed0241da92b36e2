// Command etl runs the crash-data pipeline for one jurisdiction: ingest and
// normalize each source table, join them into crash-level rows, and export
// the spatially bucketed web bundles.
//
// Usage:
//
//	etl -jurisdiction fars                    # full run, all years
//	etl -jurisdiction fars -partitions 2016   # one year only
//	etl -jurisdiction dc -refresh             # bypass the fetch cache
//	etl -jurisdiction maryland -export-only   # re-export existing snapshots
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/crash-data-pipeline/internal/adapter/fetch"
	httpadapter "github.com/couchcryptid/crash-data-pipeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crash-data-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/crash-data-pipeline/internal/adapter/snapshot"
	"github.com/couchcryptid/crash-data-pipeline/internal/config"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
	"github.com/couchcryptid/crash-data-pipeline/internal/observability"
	"github.com/couchcryptid/crash-data-pipeline/internal/pipeline"
	"github.com/couchcryptid/crash-data-pipeline/internal/webexport"

	_ "github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction/dc"
	_ "github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction/fars"
	_ "github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction/maryland"
)

func main() {
	if err := run(); err != nil {
		slog.Error("etl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	jurName := flag.String("jurisdiction", "", fmt.Sprintf("jurisdiction to process (%s)", strings.Join(jurisdiction.Names(), ", ")))
	partitions := flag.String("partitions", "", "comma-separated partition labels overriding the jurisdiction's defaults")
	refresh := flag.Bool("refresh", false, "bypass the fetch cache and re-download every extract")
	exportOnly := flag.Bool("export-only", false, "skip ingestion and re-export existing merged snapshots")
	skipExport := flag.Bool("skip-export", false, "run ingestion and merge but skip the web export")
	flag.Parse()

	if *jurName == "" {
		flag.Usage()
		return errors.New("missing required flag: -jurisdiction")
	}

	// Local runs keep settings in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	jur, err := jurisdiction.Get(*jurName)
	if err != nil {
		return err
	}

	fetcher := fetch.New(cfg.CacheDir, cfg.DataDir, cfg.FetchTimeout, logger)
	store := snapshot.NewStore(cfg.DataDir)
	p := pipeline.New(jur, fetcher, store, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	if !*exportOnly {
		opts := pipeline.Options{Refresh: *refresh}
		if *partitions != "" {
			opts.Partitions = strings.Split(*partitions, ",")
		}
		if err := p.Run(ctx, opts); err != nil {
			return err
		}
	}

	if *skipExport {
		return nil
	}

	rows, err := p.ReadJoined()
	if err != nil {
		return err
	}

	exporter := webexport.New(cfg.WebDir, logger, metrics)
	metadata, err := exporter.Export(jur, rows)
	if err != nil {
		return err
	}
	logger.Info("web bundles written",
		"jurisdiction", jur.Name(),
		"files", len(metadata.Filenames),
		"years", fmt.Sprintf("%d-%d", metadata.MinYear, metadata.MaxYear))

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewFeatureWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		if err := writer.PublishBatch(ctx, jur.Name(), webexport.Features(jur, rows)); err != nil {
			return err
		}
		metrics.FeaturesPublished.Add(float64(len(rows)))
	}

	return nil
}
