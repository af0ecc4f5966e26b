// server keeps a warm fill cache and answers aggregation queries over
// HTTP. Endpoints: /healthz, /api/v1/query (GET and POST), /api/v1/stats
// and the /api/v1/stream websocket.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/metrics"
	"github.com/fillbot/gofill/internal/processor"
	"github.com/fillbot/gofill/internal/server"
	"github.com/fillbot/gofill/internal/source"
	"github.com/fillbot/gofill/pkg/config"
	"github.com/fillbot/gofill/pkg/logger"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

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

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", getenv("FILLQUERY_CONFIG", ""), "config file path (.yaml, .yml or .json)")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		logrus.Fatalf("init logging: %v", err)
	}

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	} else if p, ok := firstExistingFile("yml/config.yaml", "yml/config.yml"); ok {
		config.SetConfigPath(p)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.Addr = *listenAddr
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

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.Metrics.Enabled {
		if _, err := metrics.StartAsync(rootCtx, cfg.Metrics.Addr); err != nil {
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

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(proc).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("query server listening on %s (source=%s)", cfg.Server.Addr, cfg.Source.Kind)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	logrus.Info("server stopped")
}
