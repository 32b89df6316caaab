package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize config and logger
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	drivers := flag.Int("drivers", 1, "number of simulated drivers")
	duration := flag.Duration("duration", 2*time.Minute, "trip duration per driver")
	flag.Parse()

	appLogger.Action("simulator_started").Info("Driver simulator starting up",
		"drivers", *drivers, "trip_duration", duration.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= *drivers; i++ {
		logger := NewLogger(fmt.Sprintf("[driver-%d]", i))
		driver := NewDriverService(gctx, i, logger)
		g.Go(func() error {
			return driver.Run(*duration)
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.Error("simulation failed", err)
		return
	}
	appLogger.Action("simulator_finished").Info("All simulated trips completed")
}
