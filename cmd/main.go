package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"photoalbum/internal/auth"
	"photoalbum/internal/media"
	"photoalbum/internal/models"
	"photoalbum/internal/processor"
	"photoalbum/internal/server"
	"photoalbum/internal/storage"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Development)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewStorage(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	defer db.Close()

	files, err := media.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to init media store", zap.Error(err))
	}

	var revoker auth.Revoker
	memRevoker := auth.NewMemoryRevoker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		revoker = auth.NewRedisRevoker(rdb)
	} else {
		logger.Warn("redis_addr not set, revoked tokens are kept in memory")
		revoker = memRevoker
	}
	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, revoker)

	proc := processor.New(db, files, logger)

	var publisher processor.Publisher
	if cfg.KafkaBroker != "" {
		producer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBroker),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
		defer producer.Close()
		publisher = processor.NewKafkaPublisher(producer)

		consumer := kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroup,
		})
		defer consumer.Close()
		go proc.Consume(ctx, consumer)
	} else {
		logger.Warn("kafka_broker not set, thumbnails are generated inline")
		publisher = processor.NewInline(proc, logger)
	}

	limiter := server.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)

	sched := cron.New()
	if _, err := sched.AddFunc("@every 10m", func() {
		purged := memRevoker.Purge()
		idle := limiter.Cleanup(10 * time.Minute)
		logger.Debug("housekeeping", zap.Int("revoked_purged", purged), zap.Int("limiters_dropped", idle))
	}); err != nil {
		logger.Fatal("failed to schedule housekeeping", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv, err := server.NewServer(cfg, server.Deps{
		Store:     db,
		Media:     files,
		Tokens:    tokens,
		Publisher: publisher,
		Limiter:   limiter,
		Log:       logger,
	})
	if err != nil {
		logger.Fatal("failed to init server", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
