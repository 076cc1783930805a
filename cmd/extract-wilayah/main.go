// Command extract-wilayah downloads wilayah.sql and regenerates the JSON tree.
//
// Usage:
//
//	go run ./cmd/extract-wilayah
//
// This fetches the dump into ./raw/ and writes ./data/states.json plus
// ./data/{cities,districts,villages}/<parent-code>.json. Every flag is
// optional; with none the defaults above apply.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreiashu/wilayah"
)

type options struct {
	sourceURL   string
	rawDir      string
	dataDir     string
	offline     bool
	timeout     time.Duration
	verbose     bool
	metricsFile string

	s3Bucket    string
	s3Region    string
	s3Endpoint  string
	s3Prefix    string
	s3PathStyle bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "extract-wilayah",
		Short: "Convert the wilayah.sql administrative-code dump into per-level JSON files",
		Long: `Downloads the wilayah.sql dump, extracts every ('<code>','<value>') tuple and
writes one JSON file per hierarchy level and parent code:

  data/states.json
  data/cities/<state-code>.json
  data/districts/<city-code>.json
  data/villages/<district-code>.json

Existing files are overwritten.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sourceURL, "url", wilayah.DefaultSourceURL, "Dump location")
	f.StringVar(&opts.rawDir, "raw-dir", wilayah.DefaultRawDir, "Directory for the raw dump copy")
	f.StringVar(&opts.dataDir, "data-dir", wilayah.DefaultDataDir, "Output directory")
	f.BoolVar(&opts.offline, "offline", false, "Reuse an existing raw copy instead of downloading")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Download timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	f.StringVar(&opts.s3Bucket, "s3-bucket", "", "Publish output to this S3 bucket instead of --data-dir")
	f.StringVar(&opts.s3Region, "s3-region", "us-east-1", "S3 region")
	f.StringVar(&opts.s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint (e.g. MinIO)")
	f.StringVar(&opts.s3Prefix, "s3-prefix", "", "Key prefix for published objects")
	f.BoolVar(&opts.s3PathStyle, "s3-path-style", false, "Use path-style S3 addressing")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func run(ctx context.Context, out io.Writer, opts options) (err error) {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics := wilayah.NewMetrics()
	if opts.metricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(opts.metricsFile); werr != nil {
				logger.Warn("failed to write metrics", zap.String("path", opts.metricsFile), zap.Error(werr))
				if err == nil {
					err = fmt.Errorf("writing metrics: %w", werr)
				}
			}
		}()
	}

	pipelineOpts := []wilayah.Option{
		wilayah.WithSourceURL(opts.sourceURL),
		wilayah.WithRawDir(opts.rawDir),
		wilayah.WithDataDir(opts.dataDir),
		wilayah.WithOffline(opts.offline),
		wilayah.WithHTTPTimeout(opts.timeout),
		wilayah.WithLogger(logger),
		wilayah.WithOutput(out),
		wilayah.WithMetrics(metrics),
	}
	if opts.s3Bucket != "" {
		store, serr := wilayah.NewS3Store(ctx, wilayah.S3Config{
			Bucket:    opts.s3Bucket,
			Region:    opts.s3Region,
			Endpoint:  opts.s3Endpoint,
			Prefix:    opts.s3Prefix,
			PathStyle: opts.s3PathStyle,
		})
		if serr != nil {
			return serr
		}
		logger.Info("publishing to s3", zap.String("bucket", opts.s3Bucket), zap.String("prefix", opts.s3Prefix))
		pipelineOpts = append(pipelineOpts, wilayah.WithStore(store))
	}

	summary, err := wilayah.Run(ctx, pipelineOpts...)
	if err != nil {
		return err
	}
	summary.Print(out)
	return nil
}
