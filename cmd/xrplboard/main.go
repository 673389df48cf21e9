package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"xrplboard/internal/infrastructure/config"
	"xrplboard/internal/infrastructure/logger"
	"xrplboard/internal/infrastructure/svc"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	logger.Setup("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Str("api", cfg.API.BaseURL).
		Int("top", cfg.App.Top).
		Int("print_every_min", cfg.App.PrintEveryMin).
		Bool("http", cfg.HTTP.Enabled).
		Msg("xrplboard started")

	if err := sc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("xrplboard exited")
	}
}
