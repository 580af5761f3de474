package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"arena-brawl/internal/api"
	"arena-brawl/internal/config"
	"arena-brawl/internal/game"
	"arena-brawl/internal/room"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env in the parent directory first, then the working directory
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	appConfig := config.Load()

	log, err := appConfig.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file found, using environment variables only")
	}

	if err := run(appConfig, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(appConfig config.AppConfig, log *zap.Logger) error {
	catalog := game.DefaultCatalog()
	if path := appConfig.Data.WeaponDataPath; path != "" {
		c, err := game.LoadCatalogFile(path)
		if err != nil {
			return fmt.Errorf("load weapons: %w", err)
		}
		catalog = c
		log.Info("weapon catalog loaded", zap.String("path", path))
	}
	log.Info("weapon catalog ready", zap.Int("weapons", len(catalog.All())))

	var journal *game.EventLog
	if path := appConfig.Data.EventLogPath; path != "" {
		journal = game.NewEventLog()
		if err := journal.Start(path); err != nil {
			log.Warn("event log disabled", zap.Error(err))
			journal = nil
		} else {
			defer journal.Stop()
			log.Info("event log enabled", zap.String("path", path))
		}
	}

	debugSrv, err := api.StartDebugServer(appConfig.Observability, log.Named("debug"))
	if err != nil {
		log.Warn("debug server disabled", zap.Error(err))
	}

	registry := room.NewRegistry(room.RegistryOptions{
		Match:   appConfig.Match,
		Limits:  appConfig.Limits,
		Catalog: catalog,
		Journal: journal,
		Logger:  log.Named("room"),
	})

	server := api.NewServer(registry, appConfig, log.Named("api"))

	log.Info("arena brawl starting",
		zap.Int("port", appConfig.Server.Port),
		zap.Duration("tick", appConfig.Match.TickInterval),
		zap.Int("maxRooms", appConfig.Limits.MaxRooms),
		zap.Int("maxPlayersCap", appConfig.Match.MaxPlayersCap),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	if debugSrv != nil {
		_ = debugSrv.Shutdown(ctx)
	}
	log.Info("shutdown complete")
	return nil
}
