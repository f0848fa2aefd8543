package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-resizer/internal/config"
	"github.com/aliskhannn/image-resizer/internal/encoder"
	"github.com/aliskhannn/image-resizer/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-resizer/internal/ledger"
	"github.com/aliskhannn/image-resizer/internal/processor"
	"github.com/aliskhannn/image-resizer/internal/service/batch"
	"github.com/aliskhannn/image-resizer/internal/storage/file"
	"github.com/aliskhannn/image-resizer/internal/storage/s3"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Context & signals: an interrupt stops the batch between files.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		zlog.Logger.Error().Err(err).Msg("failed to parse flags")
		return 2
	}

	path, err := flags.GetString("config")
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to read config flag")
		return 2
	}

	cfg, err := config.Load(path, flags)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("config", path).Msg("failed to load config")
		return 1
	}

	// Retry strategy for S3 uploads and Kafka sends.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Output folder and skip ledger must exist before any rendition is produced.
	outputs := file.NewStorage(cfg.OutputFolder)
	if err := outputs.EnsureDir(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to create output folder")
		return 1
	}

	skipped, err := ledger.Open(cfg.OutputFolder, cfg.SkipLedgerFileName)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to open skip ledger")
		return 1
	}
	defer func() {
		if err := skipped.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close skip ledger")
		}
	}()

	var opts []batch.Option

	// Optional mirror of accepted renditions (MinIO / S3).
	if cfg.Storage.Enabled {
		storage, err := s3.NewStorage(ctx, cfg.Storage, strategy)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to connect to storage")
			return 1
		}
		opts = append(opts, batch.WithMirror(storage))
	}

	// Optional rendition event stream.
	if cfg.Kafka.Enabled {
		p := producer.New(&cfg.Kafka, strategy)
		defer func() {
			if err := p.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
			}
		}()
		opts = append(opts, batch.WithPublisher(p))
	}

	service := batch.NewService(
		cfg,
		file.NewStorage(cfg.WatchFolder),
		outputs,
		processor.NewDecoder(cfg.MaxSourcePixels),
		encoder.New(),
		skipped,
		opts...,
	)

	stats, err := service.Run(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("batch could not run")
		return 1
	}

	if stats.LedgerErrors > 0 {
		zlog.Logger.Warn().Int("ledger_errors", stats.LedgerErrors).Msg("batch finished with unrecorded skips")
	}

	return 0
}
