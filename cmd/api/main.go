package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/andrisetiaw/go-storefront/internal/config"
	"github.com/andrisetiaw/go-storefront/internal/httpx"
	kafkax "github.com/andrisetiaw/go-storefront/internal/kafka"
	"github.com/andrisetiaw/go-storefront/internal/login"
	"github.com/andrisetiaw/go-storefront/internal/orders"
	"github.com/andrisetiaw/go-storefront/internal/postgres"
	"github.com/andrisetiaw/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pCreated.Start(context.Background())
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	pStatus.Start(context.Background())

	// Core services
	store := postgres.NewStore(db)
	svc := orders.NewService(store, pCreated, pStatus, cfg.ServiceName, log)

	throttle := login.NewThrottle(login.ThrottleConfig{
		MaxAttempts:   cfg.LoginMaxAttempts,
		FailureWindow: cfg.LoginFailureWindow,
		BlockDuration: cfg.LoginBlockDuration,
	})
	stopSweep := throttle.Sweep(cfg.LoginThrottleSweep)
	defer stopSweep()

	auth := &login.Authenticator{
		Users:    &postgres.UserStore{DB: db},
		Tokens:   login.OpaqueIssuer{},
		Throttle: throttle,
		Log:      log,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Service: svc, Redis: rdb, Log: log}).Register(router)
	(&httpx.CartHandler{Service: svc, Log: log}).Register(router)
	(&httpx.AuthHandler{Auth: auth, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// flush producers
	pCreated.Close()
	pStatus.Close()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
