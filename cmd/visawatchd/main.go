package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"visa-appointment-backend/config"
	"visa-appointment-backend/internal/api"
	"visa-appointment-backend/internal/checker"
	"visa-appointment-backend/internal/db"
	"visa-appointment-backend/internal/notification"
	"visa-appointment-backend/internal/process"
	"visa-appointment-backend/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "visawatchd").Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	primaryDB, err := db.InitPrimary(&cfg.Primary)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize primary database")
	}
	mirrorDB, err := db.InitMirror(&cfg.Mirror)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize mirror database")
	}
	logger.Info().Msg("databases initialized")

	primaryStore := store.NewGormStore(primaryDB)
	mirrorStore := store.NewGormStore(mirrorDB)
	dual := store.NewDual(primaryStore, mirrorStore, logger)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	var senders []notification.Sender
	if cfg.Telegram.Enabled {
		senders = append(senders, notification.NewTelegramSender(cfg.Telegram))
	}
	if cfg.Push.Enabled {
		senders = append(senders, notification.NewWebPushSender(primaryDB, &webpushOptions, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, logger, senders...)
	processor := process.New(dual, pool, logger)

	checkerSvc := checker.NewService(cfg, dual, processor, pool, logger)
	go checkerSvc.Run(ctx)

	router := api.NewRouter(&cfg.Server, mirrorStore, primaryDB, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("server gracefully stopped")
}
