package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/varun4522/calm-sub002/internal/alias"
	"github.com/varun4522/calm-sub002/internal/api"
	"github.com/varun4522/calm-sub002/internal/config"
	"github.com/varun4522/calm-sub002/internal/events"
	"github.com/varun4522/calm-sub002/internal/live"
	"github.com/varun4522/calm-sub002/internal/logger"
	"github.com/varun4522/calm-sub002/internal/metrics"
	"github.com/varun4522/calm-sub002/internal/repository"
	"github.com/varun4522/calm-sub002/internal/service"
	"github.com/varun4522/calm-sub002/internal/storage"
	"github.com/varun4522/calm-sub002/internal/ws"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	mongoClient, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo connect", "err", err)
	}
	coll := mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	repo := repository.NewMessageRepository(coll)

	var rdb *redis.Client
	var feed live.Feed
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		feed = live.NewRedisFeed(rdb, cfg.Redis.Prefix, zlog)
	} else {
		zlog.Warn("redis not configured, using in-process feed")
		feed = live.NewMemoryFeed()
	}

	var producer *events.Producer
	var consumer *events.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCreated)
		consumer = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCreated, cfg.Kafka.GroupID, zlog)
	}

	var notifier *events.NATSPublisher
	if cfg.NATS.URL != "" {
		notifier, err = events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			zlog.Fatalw("nats connect", "err", err)
		}
	}

	aliases, err := alias.Open(cfg.Alias.Path)
	if err != nil {
		zlog.Fatalw("alias store open", "err", err)
	}

	var resolver *storage.Resolver
	if cfg.S3.Bucket != "" {
		resolver, err = storage.NewResolver(context.Background(), cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead, cfg.S3URLTTL)
		if err != nil {
			zlog.Fatalw("s3 resolver init", "err", err)
		}
	}

	var svcProducer service.Publisher
	if producer != nil {
		svcProducer = producer
	}
	var svcNotifier service.Notifier
	if notifier != nil {
		svcNotifier = notifier
	}
	svc := service.NewSyncService(repo, feed, svcProducer, svcNotifier, zlog)

	hub := ws.NewHub()
	ctx, stop := context.WithCancel(context.Background())
	if consumer != nil {
		go consumer.Run(ctx, hub)
	}

	app := api.NewServer(cfg, svc, feed, hub, aliases, resolver, rdb, zlog)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Errorw("metrics server", "err", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Infow("starting calm-sync", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		zlog.Errorw("server error", "err", e)
	case s := <-sig:
		zlog.Infow("signal received", "signal", s.String())
	}

	stop()
	if err := app.Shutdown(); err != nil {
		zlog.Warnw("fiber shutdown", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if consumer != nil {
		_ = consumer.Close()
	}
	if producer != nil {
		_ = producer.Close()
	}
	notifier.Close()
	_ = aliases.Close()
	_ = mongoClient.Disconnect(shutdownCtx)
	zlog.Info("shutdown complete")
}
