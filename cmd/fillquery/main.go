// fillquery reads aggregation queries from stdin, one per line, and
// writes one answer per line to stdout. Malformed or failed queries are
// logged to stderr and skipped; the stream keeps going.
//
// Usage:
//
//	fillquery -config yml/config.yaml < queries.txt > answers.txt
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/metrics"
	"github.com/fillbot/gofill/internal/processor"
	"github.com/fillbot/gofill/internal/source"
	"github.com/fillbot/gofill/pkg/config"
	"github.com/fillbot/gofill/pkg/logger"
)

func firstExistingFile(paths ...string) (string, bool) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", getenv("FILLQUERY_CONFIG", ""), "config file path (.yaml, .yml or .json)")
		sourceKind = flag.String("source", "", "override source kind (http or sqlite)")
		logLevel   = flag.String("log-level", "", "override log level")
		logFile    = flag.String("log-file", "", "override log file path")
	)
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		logrus.Fatalf("init logging: %v", err)
	}

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	} else if p, ok := firstExistingFile("yml/config.yaml", "yml/config.yml"); ok {
		config.SetConfigPath(p)
		logrus.Debugf("using default config file: %s", p)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("load config: %v", err)
		os.Exit(1)
	}

	// Flags are explicit user intent and beat the config file.
	if *sourceKind != "" {
		cfg.Source.Kind = *sourceKind
		if err := cfg.Validate(); err != nil {
			logrus.Errorf("validate config: %v", err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		logrus.Errorf("init logging: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		if _, err := metrics.StartAsync(ctx, cfg.Metrics.Addr); err != nil {
			logrus.Warnf("metrics server on %s: %v", cfg.Metrics.Addr, err)
		} else {
			logrus.Infof("metrics and pprof on http://%s/debug/vars", cfg.Metrics.Addr)
		}
	}

	src, closeSource, err := source.FromConfig(cfg)
	if err != nil {
		logrus.Errorf("build fill source: %v", err)
		os.Exit(1)
	}
	defer closeSource()

	proc, err := processor.New(processor.Config{
		BucketSize:    cfg.Core.BucketSizeSeconds,
		PrefetchCount: cfg.Core.PrefetchCount,
		CacheCapacity: cfg.Core.CacheCapacity,
	}, src)
	if err != nil {
		logrus.Errorf("build processor: %v", err)
		os.Exit(1)
	}

	if err := proc.ProcessLines(ctx, os.Stdin, os.Stdout); err != nil {
		logrus.Errorf("process queries: %v", err)
		os.Exit(1)
	}
}
