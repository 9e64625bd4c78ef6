package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"expense-tracker/internal/clients/kafka"
	"expense-tracker/internal/config"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/notifier"
)

func main() {
	logger.Info("Notifier init - start")
	_ = godotenv.Load()

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}
	if !conf.Kafka().Enabled() {
		logger.Fatal("kafka brokers are not configured")
	}

	consumer, err := kafka.NewConsumer(conf.Kafka(), notifier.NewService(os.Stdout))
	if err != nil {
		logger.Fatal("failed to init kafka consumer", zap.Error(err))
	}

	logger.Info("Notifier init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err = consumer.StartConsuming(ctx); err != nil {
		logger.Fatal("failed to consume alerts", zap.Error(err))
	}
}
