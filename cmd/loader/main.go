package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/logger"
	"github.com/woozymasta/geoview/internal/processor"
	"github.com/woozymasta/geoview/internal/reader"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger    `group:"Logger options"`
	S3     reader.S3Options `group:"S3 options"`

	ConfigFile string        `short:"c" long:"config"      env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	Limit      []string      `short:"l" long:"limit"       env:"LIMIT_NAMES" env-delim:"," description:"Limit processing to specific dataset names"`
	OutputDir  string        `short:"o" long:"output"      env:"OUTPUT_DIR"    description:"Output directory (overrides config)"`
	Timeout    time.Duration `long:"fetch-timeout"         env:"FETCH_TIMEOUT" description:"Timeout for remote sources" default:"15s"`
	Preview    bool          `short:"P" long:"preview"     description:"Also write a WebP preview per dataset"`
	Size       int           `short:"s" long:"preview-size" description:"Preview width and height in pixels" default:"512"`
	Tiles      bool          `short:"T" long:"tiles"       description:"Also write a preview tile pyramid per dataset"`
	TileZoom   int           `short:"z" long:"tile-zoom"   description:"Deepest tile pyramid level" default:"2"`
	Workers    int           `short:"w" long:"workers"     env:"LOADER_WORKERS" description:"Number of datasets processed concurrently" default:"4"`
	Force      bool          `short:"f" long:"force"       description:"Force overwrite of existing files"`
	Refresh    bool          `short:"r" long:"refresh"     description:"Refetch remote sources even when cached"`
}

func main() {
	envErr := godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()
	if envErr != nil {
		log.Debug().Msg("No .env file loaded, using process environment")
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "datasets"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.OutputDir, ".cache")
	}

	s3, err := reader.NewS3Client(opts.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure S3 client")
	}

	// Remote sources are cached on disk to stay polite to their servers
	fetcher := reader.NewDiskCache(
		cfg.CacheDir,
		reader.NewSourceFetcher(reader.NewHTTPClient(cfg.Timeout), s3),
		opts.Refresh)

	// Filter datasets if limit is set
	toProcess := cfg.Datasets
	if len(opts.Limit) > 0 {
		toProcess = make([]config.Dataset, 0)
		available := make(map[string]config.Dataset)
		for _, d := range cfg.Datasets {
			available[d.Name] = d
		}

		seen := make(map[string]bool)

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if d, ok := available[limitName]; ok {
				toProcess = append(toProcess, d)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Dataset specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("datasets_total", len(cfg.Datasets)).
		Int("datasets_queued", len(toProcess)).
		Str("output", cfg.OutputDir).
		Msg("Starting loader")

	procOpts := processor.Options{
		OutputDir:     cfg.OutputDir,
		Force:         opts.Force,
		Preview:       opts.Preview,
		PreviewWidth:  opts.Size,
		PreviewHeight: opts.Size,
		Tiles:         opts.Tiles,
		TileZoom:      opts.TileZoom,
		TileSize:      processor.DefaultTileSize,
	}

	failed := 0
	for _, res := range processor.ProcessBatch(context.Background(), fetcher, cfg, toProcess, procOpts, opts.Workers) {
		if res.Err != nil {
			failed++
			log.Error().Err(res.Err).Str("dataset", res.Name).Msg("Failed to process dataset")
		}
	}

	if failed > 0 {
		log.Fatal().Int("failed", failed).Msg("Loader finished with errors")
	}
	log.Info().Msg("Loader finished successfully")
}
