package logger

import (
	"context"

	"contacts-sync/internal/config"
	"contacts-sync/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger builds the console logger and tees it into the Mongo "logs" collection.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Caller must be enabled for the function name to reach the DB core.
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)
	logger := zap.New(NewDBCore(baseLogger.Core(), dbWriter), zap.AddCaller()).
		With(zap.String("app", cfg.AppId))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			return dbWriter.Close(ctx)
		},
	})

	return logger, nil
}
