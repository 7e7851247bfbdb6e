package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"subreminder/internal/bot"
	"subreminder/internal/config"
	"subreminder/internal/logging"
	"subreminder/internal/repository"
	"subreminder/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	backend, err := repository.OpenSnapshotter(cfg.StoreDriver, cfg.StorePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	store := repository.NewTaskStore(backend, log)
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("load store")
	}

	taskSvc := service.NewTaskService(store, cfg.Routing.Resolver(), cfg.Routing, service.TaskOptions{
		Location:    cfg.Location,
		DefaultFC:   cfg.DefaultFC,
		DefaultBoat: cfg.DefaultBoat,
	}, log)

	telegramBot, err := bot.New(&cfg, taskSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	arrivals := service.NewArrivalService(store, telegramBot, cfg.DeliveryTimeout, log).
		WithRateLimit(cfg.SendRatePerSec)
	scheduler := service.NewSchedulerService(cfg.Location, log)
	if _, err := arrivals.Schedule(ctx, scheduler, cfg.PollInterval); err != nil {
		log.Fatal().Err(err).Msg("schedule arrivals")
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Str("store", cfg.StoreDriver).Dur("poll", cfg.PollInterval).Msg("submarine reminder started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
