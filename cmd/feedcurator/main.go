package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"FeedCurator/internal/app"
	"FeedCurator/internal/config"
	"FeedCurator/internal/domain"
	"FeedCurator/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single processing pass and exit")
	maxFeeds := flag.Int("max-feeds", 0, "cap the number of feeds for this run (0 = all)")
	maxItems := flag.Int("max-items", 0, "cap items per feed for this run (0 = configured default)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		err = application.RunOnce(ctx, domain.RunOptions{
			MaxFeeds:        *maxFeeds,
			MaxItemsPerFeed: *maxItems,
		})
	} else {
		err = application.Run(ctx)
	}

	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
