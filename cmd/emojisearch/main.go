package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffersTech/emojisearch/internal/catalog"
	"github.com/coffersTech/emojisearch/internal/config"
	"github.com/coffersTech/emojisearch/internal/engine"
	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/server"
)

func main() {
	cfg, err := config.FromEnv(config.Default(), os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid environment: %v\n", err)
		os.Exit(2)
	}

	// Command-line flags override the environment
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port to listen on")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory holding <family>-Metadata.json catalogs")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	family := flag.String("family", string(cfg.DefaultFamily), "Family searched when a request names none")
	flag.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Requests per second per client, 0 disables")
	flag.IntVar(&cfg.RateBurst, "burst", cfg.RateBurst, "Rate limiter burst")
	flag.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Catalog change check interval, 0 disables")
	warm := flag.String("warm", "", "Families to load at startup (comma separated or \"all\")")
	flag.Parse()

	if f, err := model.ParseFamily(*family); err == nil {
		cfg.DefaultFamily = f
	} else {
		cfg.DefaultFamily = model.Family(*family)
	}
	if *warm != "" {
		if cfg.WarmFamilies, err = config.ParseFamilies(*warm); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -warm: %v\n", err)
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewWithFormat(os.Stderr, cfg.LogFormat, level)
	logger.Info("emojisearch starting", "port", cfg.Port, "default_family", string(cfg.DefaultFamily))

	// 1. Catalog source
	repo, err := openCatalog(cfg, logger)
	if err != nil {
		logger.Error("catalog init failed", "error", err)
		os.Exit(1)
	}

	// 2. Engine with persisted stats
	statsDir := cfg.DataDir
	if cfg.UsesBucket() {
		statsDir = ""
	}
	stats := engine.NewStatsRecorder(statsDir)
	se := engine.NewSearchEngine(repo, stats, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.WarmFamilies) > 0 {
		if err := repo.Warm(ctx, cfg.WarmFamilies...); err != nil {
			logger.Error("catalog warm-up failed", "error", err)
			os.Exit(1)
		}
	}

	// 3. Background refresher
	refresherDone := make(chan struct{})
	if cfg.RefreshInterval > 0 {
		go func() {
			engine.NewRefresher(repo, stats, logger).Run(ctx, cfg.RefreshInterval)
			close(refresherDone)
		}()
	} else {
		close(refresherDone)
	}

	// 4. HTTP server
	srv := server.NewSearchServer(se, repo, server.Options{
		DefaultFamily:  cfg.DefaultFamily,
		AdminTokenHash: cfg.AdminTokenHash,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}, logger)
	addr := fmt.Sprintf(":%d", cfg.Port)

	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.Start(addr); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	<-refresherDone
	if cfg.RefreshInterval <= 0 {
		if err := stats.Save(); err != nil {
			logger.Error("stats persist failed", "error", err)
		}
	}

	logger.Info("emojisearch exited gracefully")
}

func openCatalog(cfg config.Config, logger *logging.Logger) (*catalog.Repository, error) {
	if !cfg.UsesBucket() {
		return catalog.OpenRepository(cfg.DataDir, logger)
	}

	client, err := catalog.DialBucket(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
	if err != nil {
		return nil, err
	}
	loader, err := catalog.NewBucketLoader(client, cfg.S3Bucket, cfg.S3Prefix)
	if err != nil {
		return nil, err
	}
	logger.Info("reading catalogs from bucket", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	return catalog.NewRepository(loader, logger), nil
}
