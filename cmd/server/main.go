package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"expense-tracker/internal/clients/cache"
	"expense-tracker/internal/clients/kafka"
	"expense-tracker/internal/config"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/auth"
	"expense-tracker/internal/model/export"
	"expense-tracker/internal/model/recurring"
	"expense-tracker/internal/model/storage"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
	"expense-tracker/internal/tracing"
	"expense-tracker/internal/transport/httpserver"
)

const serviceName = "expense-tracker"

func main() {
	logger.Info("Server init - start")
	_ = godotenv.Load()

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	tracingCloser, err := tracing.Init(serviceName)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer tracingCloser.Close()

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

	if conf.Kafka().Enabled() {
		producer, err := kafka.NewProducer(conf.Kafka())
		if err != nil {
			logger.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer producer.Close()
		trackerSvc.WithPublisher(producer)
	}

	handler := httpserver.NewHandler(
		auth.NewService(db),
		trackerSvc,
		summaryGen,
		export.NewExporter(db, conf.App().ExportDir()),
	)
	server := httpserver.NewServer(handler, conf.HTTP().Port())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	materializer := recurring.NewMaterializer(db)
	scheduler := cron.New()
	_, err = scheduler.AddFunc(recurring.CronSpec, func() {
		if err := materializer.Run(ctx); err != nil {
			logger.Error("recurring materialization failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule recurring expenses", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Server init - end")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Run(ctx)
	})

	if err = group.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("Server stopped")
}
