package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/andrisetiaw/go-storefront/internal/config"
	kafkax "github.com/andrisetiaw/go-storefront/internal/kafka"
	"github.com/andrisetiaw/go-storefront/internal/orders"
	"github.com/andrisetiaw/go-storefront/internal/redisx"
	"github.com/andrisetiaw/go-storefront/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName+"-worker")
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	ref := &worker.Refresher{Redis: rdb, Log: log}

	group := getenv("WORKER_GROUP", "status-cache")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "4")

	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, log)
		go func(topic string) {
			log.Info("consumer started", "group", group, "topic", topic, "workers", workers)
			if err := cons.Start(ctx, ref.HandleEvent); err != nil {
				log.Error("consumer exited", "topic", topic, "error", err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down")
	case <-ctx.Done():
	}
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
