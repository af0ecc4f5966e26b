// fill-recorder pulls fills from the remote API chunk by chunk and
// stores them in a local sqlite database, so queries can later replay
// offline through the sqlite source.
//
// A checkpoint is saved after every stored chunk; -resume continues an
// interrupted backfill from there.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fillbot/gofill/internal/source"
	"github.com/fillbot/gofill/pkg/config"
	"github.com/fillbot/gofill/pkg/logger"
	"github.com/fillbot/gofill/pkg/persistence"
	"github.com/fillbot/gofill/pkg/ratelimit"
)

type recorderCheckpoint struct {
	UpdatedAt time.Time `json:"updated_at"`
	NextFrom  int64     `json:"next_from"`
	End       int64     `json:"end"`
	Chunk     int64     `json:"chunk"`
	Fills     int64     `json:"fills"`
}

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "config file path (.yaml, .yml or .json)")
		start      = flag.Int64("start", 0, "range start, unix seconds (required)")
		end        = flag.Int64("end", 0, "range end, unix seconds (required)")
		chunk      = flag.Int64("chunk", 86400, "seconds fetched per request")
		dbPath     = flag.String("db", "", "sqlite output path (overrides config)")
		rps        = flag.Int("rps", 5, "max requests per second against the fills API (0 disables pacing)")
		stateDir   = flag.String("state-dir", "data/persistence", "directory for checkpoint state")
		resume     = flag.Bool("resume", false, "continue from the last checkpoint")
	)
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		os.Exit(1)
	}

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	} else if _, err := os.Stat("yml/config.yaml"); err == nil {
		config.SetConfigPath("yml/config.yaml")
		logger.Infof("using default config file: yml/config.yaml")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Source.DBPath = *dbPath
	}

	if *start == 0 || *end == 0 || *end < *start {
		logger.Errorf("a valid range is required: -start and -end in unix seconds, end >= start")
		os.Exit(1)
	}
	if *chunk <= 0 {
		logger.Errorf("-chunk must be positive")
		os.Exit(1)
	}

	remote, err := source.NewHTTPFromConfig(cfg)
	if err != nil {
		logger.Errorf("build http source: %v", err)
		os.Exit(1)
	}

	db, err := source.OpenSQLite(cfg.Source.DBPath)
	if err != nil {
		logger.Errorf("open sqlite %s: %v", cfg.Source.DBPath, err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fetch bounds are inclusive, so each window spans chunk+1 seconds
	// and the next one starts right after it.
	span := *end - *start + 1
	window := *chunk + 1
	chunks := (span + window - 1) / window

	store := persistence.NewJSONFileService(*stateDir).
		NewStore("recorder", filepath.Base(cfg.Source.DBPath), "checkpoint")

	from := *start
	var recorded int64
	if *resume {
		var cp recorderCheckpoint
		switch err := store.Load(&cp); {
		case errors.Is(err, persistence.ErrNotExists):
			logger.Infof("no checkpoint found, starting from %d", from)
		case err != nil:
			logger.Errorf("load checkpoint: %v", err)
			os.Exit(1)
		case cp.End != *end || cp.Chunk != *chunk:
			logger.Warnf("checkpoint covers a different run (end=%d chunk=%d), starting over", cp.End, cp.Chunk)
		case cp.NextFrom > *end:
			logger.Infof("range already recorded (%d fills), nothing to do", cp.Fills)
			return
		case cp.NextFrom > from:
			from = cp.NextFrom
			recorded = cp.Fills
			logger.Infof("resuming from %d, %d fills already recorded", from, recorded)
		}
	}

	var limiter *ratelimit.TokenBucket
	if *rps > 0 {
		limiter = ratelimit.NewTokenBucket(*rps, *rps)
	}

	logger.Infof("recording fills [%d, %d] into %s (%d chunks of %ds)",
		*start, *end, cfg.Source.DBPath, chunks, *chunk)

	for ; from <= *end; from += window {
		if ctx.Err() != nil {
			logger.Warnf("interrupted after %d fills", recorded)
			os.Exit(1)
		}

		to := from + *chunk
		if to > *end {
			to = *end
		}
		chunkNo := (from-*start)/window + 1

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				logger.Warnf("interrupted after %d fills", recorded)
				os.Exit(1)
			}
		}

		fills, err := remote.Fetch(ctx, from, to)
		if err != nil {
			if ctx.Err() != nil {
				logger.Warnf("interrupted after %d fills", recorded)
			} else {
				logger.Errorf("fetch [%d, %d]: %v", from, to, err)
			}
			os.Exit(1)
		}
		if err := db.InsertFills(ctx, fills); err != nil {
			logger.Errorf("store [%d, %d]: %v", from, to, err)
			os.Exit(1)
		}
		recorded += int64(len(fills))

		if err := store.Save(&recorderCheckpoint{
			UpdatedAt: time.Now(),
			NextFrom:  from + window,
			End:       *end,
			Chunk:     *chunk,
			Fills:     recorded,
		}); err != nil {
			logger.Warnf("save checkpoint: %v", err)
		}

		logger.Infof("chunk %d/%d: %d fills [%d, %d]", chunkNo, chunks, len(fills), from, to)
	}

	total, err := db.Count(ctx)
	if err != nil {
		logger.Warnf("count stored fills: %v", err)
	} else {
		logger.Infof("done: %d fills recorded for this range, %d total in %s", recorded, total, cfg.Source.DBPath)
	}
}
