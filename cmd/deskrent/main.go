package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskrent/internal/app/middleware"
	appoutbox "deskrent/internal/app/outbox"
	"deskrent/internal/app/policies"
	authsvc "deskrent/internal/app/services/auth"
	"deskrent/internal/app/uow"
	"deskrent/internal/app/wiring"
	"deskrent/internal/infra/broker/kafka"
	"deskrent/internal/infra/cache/redis"
	"deskrent/internal/infra/config"
	"deskrent/internal/infra/db/mongo"
	"deskrent/internal/infra/db/postgres"
	ginserver "deskrent/internal/infra/http/gin"
	"deskrent/internal/infra/obs"
	infraoutbox "deskrent/internal/infra/outbox"
	"deskrent/internal/infra/security"
	"deskrent/internal/infra/storage/memory"
	"deskrent/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("deskrent stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("deskrent stopped")
}

type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Store
}

// backend is the storage side selected by STORAGE_DRIVER.
type backend struct {
	factory     uow.UoWFactory
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	checks      map[string]obs.Checker
	closers     []func(context.Context) error
}

func (b *backend) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close(logger)

	var storage policies.ObjectStorage
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
		}, logger)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		storage = client
		be.checks["s3"] = client.Ready
	} else {
		logger.Warn("S3_ENDPOINT not set, image uploads are disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "deskrent")
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		be.closers = append(be.closers, func(context.Context) error { return producer.Close() })
		be.checks["kafka"] = producer.Ready
		worker := &infraoutbox.Worker{
			Store:       be.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "deskrent",
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events stay in the outbox")
	}

	tokens, err := security.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL, "deskrent")
	if err != nil {
		return err
	}
	authService := &authsvc.Service{
		UoWFactory: be.factory,
		Passwords:  security.BcryptHasher{},
		Tokens:     tokens,
		Logger:     logger,
	}
	buses := wiring.Build(wiring.Dependencies{
		UoWFactory:  be.factory,
		Outbox:      be.outbox,
		Idempotency: be.idempotency,
		Storage:     storage,
		Logger:      logger,
	})

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: be.checks}, ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		Account:        ginserver.AccountHandler{Commands: buses.Commands, Logger: logger},
		Profile:        ginserver.ProfileHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Listing:        ginserver.ListingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Rental:         ginserver.RentalHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	be := &backend{checks: map[string]obs.Checker{}}

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		be.closers = append(be.closers, func(context.Context) error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool); err != nil {
			be.close(logger)
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		factory := postgres.Factory{Pool: pool}
		be.factory = factory
		be.outbox = postgres.NewOutboxStore(pool)
		be.checks["postgres"] = factory.Ping
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		be.closers = append(be.closers, client.Close)
		if err := mongo.EnsureIndexes(ctx, client.DB); err != nil {
			be.close(logger)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := infraoutbox.NewMongoStore(ctx, client.DB)
		if err != nil {
			be.close(logger)
			return nil, fmt.Errorf("mongo outbox: %w", err)
		}
		idem, err := mongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			be.close(logger)
			return nil, fmt.Errorf("mongo idempotency: %w", err)
		}
		be.factory = mongo.Factory{DB: client.DB}
		be.outbox = box
		be.idempotency = idem
		be.checks["mongo"] = client.Ping
	default:
		store := memory.NewStore()
		be.factory = store
		be.outbox = memory.NewOutbox(store)
		be.checks["memory"] = store.Ping
		logger.Warn("using in-memory storage, data is lost on restart")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		be.closers = append(be.closers, func(context.Context) error { return rdb.Close() })
		store := redis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		be.idempotency = store
		be.checks["redis"] = store.Ping
	}
	if be.idempotency == nil {
		be.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	return be, nil
}
