package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/common/logger"
	"github.com/leplonghi/Horamed-AG-sub003/internal/config"
	"github.com/leplonghi/Horamed-AG-sub003/internal/service"
)

func main() {
	// 1. config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "horamed-scheduler")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. assemble
	app, err := service.NewApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to create horamed-scheduler", zap.Error(err))
	}
	defer app.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start(ctx)
	}()

	// 4. graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-errChan; err != nil {
			log.Error("Shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			log.Error("Service error", zap.Error(err))
		}
	}

	log.Info("horamed-scheduler stopped")
}
