package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/app"
	"github.com/catalogd/catalogd/internal/config"
)

func main() {
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		zap.L().Fatal("build logger", zap.Error(err))
	}
	defer logger.Sync()

	srv, err := app.NewServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}
	if err := srv.Run(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}
