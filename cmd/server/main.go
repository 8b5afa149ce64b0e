package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/logger"
	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger    `group:"Logger options"`
	S3     reader.S3Options `group:"S3 options"`

	ConfigFile string        `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string        `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int           `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Title      string        `short:"t" long:"title"    env:"PAGE_TITLE"     description:"Viewer page title"          default:"geoview"`
	Timeout    time.Duration `long:"fetch-timeout"      env:"FETCH_TIMEOUT"  description:"Timeout for remote sources" default:"15s"`
	CacheDir   string        `long:"cache-dir"          env:"CACHE_DIR"      description:"Directory for cached remote sources (overrides config)"`
}

func main() {
	// .env must be loaded before flags so env defaults can come from it
	envErr := godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()
	if envErr != nil {
		log.Debug().Msg("No .env file loaded, using process environment")
	}

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.CacheDir != "" {
		cfg.CacheDir = opts.CacheDir
	}

	s3, err := reader.NewS3Client(opts.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure S3 client")
	}

	var fetcher reader.Fetcher = reader.NewSourceFetcher(reader.NewHTTPClient(cfg.Timeout), s3)
	if cfg.CacheDir != "" {
		fetcher = reader.NewDiskCache(cfg.CacheDir, fetcher, false)
	}

	index, err := server.BuildIndex(opts.Title)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build viewer page")
	}

	srvCtx := server.NewServerContext(context.Background(), cfg, fetcher, reader.NewCache(), index)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets", srvCtx.HandleDatasetList)
	mux.HandleFunc("/api/datasets/", srvCtx.HandleDataset)
	mux.HandleFunc("/", srvCtx.HandleIndex)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int("datasets_loaded", len(srvCtx.Order)).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
