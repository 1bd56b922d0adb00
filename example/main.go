// Demo binary: seeds recurring series from a YAML config into a SQLite
// store and reports each series' upcoming effective events on a cron
// schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opencrm/calengine/calendar"
	"github.com/opencrm/calengine/recurrence"
	"github.com/opencrm/calengine/storage"
	"github.com/opencrm/calengine/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	once := flag.Bool("once", false, "report once and exit instead of scheduling")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger.Info("effective config",
		"database", cfg.Database,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"series_count", len(cfg.Series))

	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "database", cfg.Database, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cache := recurrence.NewCache(recurrence.DefaultCacheConfig)
	defer cache.Close()
	engine := recurrence.NewEngine(
		recurrence.WithCache(cache),
		recurrence.WithLogger(logger))
	svc := calendar.NewService(store,
		calendar.WithEngine(engine),
		calendar.WithLogger(logger))

	ctx := context.Background()
	seeded := seedSeries(ctx, svc, cfg, logger)

	report := func() { reportUpcoming(ctx, svc, seeded, cfg.HorizonDays, logger) }
	report()
	if *once {
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshCron, report); err != nil {
		logger.Error("invalid refresh schedule", "refresh", cfg.RefreshCron, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("scheduler started", "refresh", cfg.RefreshCron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("signal received, shutting down", "signal", sig.String())

	<-scheduler.Stop().Done()
}

// seedSeries creates every configured series, skipping ones already present
// from a previous run. It returns the series that exist after seeding.
func seedSeries(ctx context.Context, svc *calendar.Service, cfg *Config, logger *slog.Logger) []*storage.Series {
	var seeded []*storage.Series
	for _, sc := range cfg.Series {
		sr, err := sc.Series()
		if err != nil {
			logger.Error("skipping invalid series", "name", sc.Name, "error", err)
			continue
		}
		if err := svc.CreateSeries(ctx, sr); err != nil {
			var serr *storage.Error
			if errors.As(err, &serr) && serr.Type == storage.ErrAlreadyExists {
				logger.Info("series already seeded", "series_id", sr.ID, "name", sr.Name)
				seeded = append(seeded, sr)
				continue
			}
			logger.Error("failed to seed series", "name", sc.Name, "error", err)
			continue
		}
		seeded = append(seeded, sr)
	}
	return seeded
}

// reportUpcoming logs each series' effective events over the horizon.
func reportUpcoming(ctx context.Context, svc *calendar.Service, series []*storage.Series, horizonDays int, logger *slog.Logger) {
	from := time.Now()
	to := from.AddDate(0, 0, horizonDays)

	for _, sr := range series {
		events, err := svc.EffectiveEvents(ctx, sr.ID, from, to)
		if err != nil {
			logger.Error("failed to resolve events", "series_id", sr.ID, "error", err)
			continue
		}
		logger.Info("upcoming events",
			"series_id", sr.ID,
			"name", sr.Name,
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly),
			"count", len(events))
		for _, ev := range events {
			logger.Info("event",
				"name", ev.Name,
				"start", ev.Start.Format(time.RFC3339),
				"end", ev.End.Format(time.RFC3339),
				"exception", ev.IsException)
		}
	}
}
