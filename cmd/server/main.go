package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"arkwarden/internal/api"
	"arkwarden/internal/app"
	"arkwarden/internal/config"
	"arkwarden/internal/system"

	"go.uber.org/zap"
)

func main() {
	fmt.Println("Starting arkwarden daemon...")

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("Error getting user config directory: %v", err)
	}
	appName := app.AppName
	if config.IsDev() {
		appName = app.AppName + "-dev"
	}
	configDir := filepath.Join(userConfigDir, appName)

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		logger.Fatal("could not load configuration", zap.Error(err))
	}

	lock, err := system.AcquireInstanceLock(filepath.Join(configDir, appName+".lock"))
	if err != nil {
		logger.Fatal("could not start", zap.Error(err))
	}
	defer lock.Unlock()

	logger.Info("using database", zap.String("path", cfg.DatabasePath))

	container, err := app.New(configDir, cfg, logger)
	if err != nil {
		logger.Fatal("could not build application", zap.Error(err))
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Load(ctx); err != nil {
		logger.Fatal("could not load profiles", zap.Error(err))
	}
	container.Run(ctx)

	if container.Autostart != nil {
		if err := container.Autostart.Apply(cfg.StartWithSystem); err != nil {
			logger.Warn("could not sync autostart entry", zap.Error(err))
		}
	}

	port := cfg.ListenPort()
	apiServer := api.NewAPIServer(container)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := apiServer.Start(ctx, fmt.Sprintf(":%d", port)); err != nil {
			logger.Error("API error", zap.Error(err))
			stop()
		}
	}()

	if cfg.TrayEnabled {
		go func() {
			<-ctx.Done()
			system.QuitTray()
		}()
		system.RunTray(fmt.Sprintf("http://localhost:%d/", port), logger, stop)
	} else {
		<-ctx.Done()
	}

	logger.Info("shutting down")
	<-done
}

func newLogger() (*zap.Logger, error) {
	if config.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
