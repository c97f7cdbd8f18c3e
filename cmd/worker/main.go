package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/logger"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/database"
	"adminhub/internal/platform/identity"
	"adminhub/internal/platform/repositories"
	"adminhub/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	runOnce := flag.Bool("run-once", false, "Run the orphan sweep once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	provider, err := identity.FromConfig(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure identity provider")
	}
	profiles := repositories.NewProfileRepository(db, audit.NewLogger(db))

	sweep := func(ctx context.Context) {
		if _, err := workers.ReconcileOrphanIdentities(ctx, provider, profiles, cfg.Worker.OrphanGracePeriod); err != nil {
			log.Error().Err(err).Msg("orphan sweep failed")
		}
	}

	if *runOnce {
		sweep(context.Background())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Worker.OrphanSweepSchedule, func() { sweep(ctx) }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Worker.OrphanSweepSchedule).Msg("invalid sweep schedule")
	}

	log.Info().
		Str("schedule", cfg.Worker.OrphanSweepSchedule).
		Dur("grace_period", cfg.Worker.OrphanGracePeriod).
		Msg("worker started")
	c.Start()

	<-ctx.Done()
	log.Info().Msg("stopping worker")
	<-c.Stop().Done()
}
