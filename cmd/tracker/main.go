package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"expense-tracker/internal/clients/cache"
	"expense-tracker/internal/config"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/auth"
	"expense-tracker/internal/model/export"
	"expense-tracker/internal/model/storage"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
	"expense-tracker/internal/transport/cli"
)

func main() {
	_ = godotenv.Load()

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	db, err := storage.New(conf.App().Backend(), conf.SQLite(), conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	defer db.Close()

	evaluator := alerts.NewEvaluator(db)
	trackerSvc := tracker.NewService(db, evaluator, nil, nil)
	summaryGen := summary.NewGenerator(db, nil)

	if conf.Memcached().Enabled() {
		mc, err := cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcached", zap.Error(err))
		}
		trackerSvc.WithCache(mc)
		summaryGen.WithCache(mc)
	}

	app := cli.NewService(
		auth.NewService(db),
		trackerSvc,
		summaryGen,
		export.NewExporter(db, conf.App().ExportDir()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err = app.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Fatal("cli stopped", zap.Error(err))
	}
}
