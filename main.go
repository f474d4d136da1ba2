package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"festival-scraper/config"
	"festival-scraper/scraper"
	"festival-scraper/scraper/festival"
	"festival-scraper/services"
	"festival-scraper/storage"
	"festival-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	logger.Info("=== Festival Scraping System starting ===")
	logger.Info("Config — fetcher: %s | concurrency: %d | rate: %dms | retries: %d | listing pages: %d",
		cfg.Fetcher, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.MaxRetries, cfg.MaxListingPages)

	sources, err := config.LoadSources(cfg.SourcesFile, cfg.Sources)
	if err != nil {
		logger.Error("Failed to load sources: %v", err)
		os.Exit(1)
	}
	logger.Info("Sources: %v", config.IDs(sources))

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	sink := storage.NewMultiSink(csvWriter)

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			os.Exit(1)
		}
		sink.Add(pgWriter)
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := storage.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events will not be published: %v", err)
		} else {
			sink.Add(publisher)
		}
	}

	stats := services.NewStats(runID)

	var enricher *services.Enricher
	if cfg.UploadEnabled {
		cms := services.NewCMSClient(cfg.CMSURL, cfg.CMSCollection, cfg.CMSToken, logger)
		geocoder := services.NewNominatimGeocoder(cfg.GeocoderURL, cfg.UserAgent, cfg.GeocodeTimeout)
		enricher = services.NewEnricher(geocoder, cms, stats, logger)
	}

	parsers := make([]*festival.Parser, 0, len(sources))
	for _, src := range sources {
		parsers = append(parsers, festival.NewParser(src, logger))
	}

	handler := festival.NewHandler(festival.HandlerConfig{
		Parsers:         parsers,
		Detector:        services.NewDetector(),
		Validator:       services.NewValidator(config.IDs(sources)),
		Sink:            sink,
		Enricher:        enricher,
		Stats:           stats,
		Feeds:           scraper.NewFeedReader(cfg.UserAgent, cfg.RequestTimeout),
		Logger:          logger,
		MaxListingPages: cfg.MaxListingPages,
	})

	var fetcher scraper.Fetcher
	switch cfg.Fetcher {
	case "chrome":
		chrome := scraper.NewChromeFetcher(cfg.ChromeBin, cfg.UserAgent, cfg.RequestTimeout, logger)
		defer chrome.Close()
		fetcher = chrome
	default:
		fetcher = scraper.NewHTTPFetcher(cfg.UserAgent, cfg.RequestTimeout)
	}

	crawler := scraper.NewCrawler(fetcher, scraper.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimitMs:    cfg.RateLimitMs,
		MaxRetries:     cfg.MaxRetries,
	}, logger)
	handler.Register(crawler)

	started := time.Now()
	if err := crawler.Run(ctx, handler.Seeds(ctx, started)); err != nil {
		logger.Warn("Crawl interrupted: %v", err)
	}

	if err := sink.Close(); err != nil {
		logger.Error("Closing sinks: %v", err)
	}
	logger.Info("%d festival(s) written to %s", csvWriter.Rows(), csvWriter.Path())

	// a fresh context so an interrupted crawl still archives and reports
	finishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.MinIOEndpoint != "" {
		archive, err := storage.NewMinIOArchive(finishCtx, cfg.MinIOEndpoint, cfg.MinIOAccessKey,
			cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, logger)
		if err != nil {
			logger.Error("MinIO unavailable: %v", err)
		} else if _, err := archive.Upload(finishCtx, csvWriter.Path(), runID, started); err != nil {
			logger.Error("Dataset archive failed: %v", err)
		}
	}

	if cfg.PushgatewayURL != "" {
		if err := stats.Push(finishCtx, cfg.PushgatewayURL, "festival_scraper"); err != nil {
			logger.Warn("Metrics push failed: %v", err)
		}
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(handler.Accepted(), stats.Summary())
	insightSvc.Print(report)

	fmt.Printf("  Done in %s. CSV → %s | run %s\n\n",
		time.Since(started).Round(time.Second), csvWriter.Path(), runID)
}
