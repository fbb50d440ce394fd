package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lodge-ops/internal/auth"
	"lodge-ops/internal/config"
	"lodge-ops/internal/database"
	"lodge-ops/internal/database/migrations"
	"lodge-ops/internal/finance"
	"lodge-ops/internal/kafka"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"
	"lodge-ops/internal/reports"
	"lodge-ops/internal/session"
	"lodge-ops/internal/session/db"
	sessionredis "lodge-ops/internal/session/redis"
	"lodge-ops/internal/session/session_api"
	"lodge-ops/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"
)

func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, log *logger.Logger) error {
	if cfg.Database.Driver == database.DriverPostgres && cfg.Database.AutoMigrate {
		migrationDB, err := database.OpenSQL(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		runner := migrations.NewRunner(migrationDB, cfg.Database.MigrationsDir, log)
		defer func() {
			if err := runner.Close(); err != nil {
				log.Warn("DATABASE", fmt.Sprintf("Failed to close migrator: %v", err))
			}
		}()
		return runner.MigrateUp()
	}
	return db.CreateSchema(ctx, bunDB)
}

// connectRedis returns nil when no address is configured; the service then
// keeps the save guard and review set in process.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.Addr == "" {
		log.Warn("REDIS", "REDIS_ADDR not set, using in-process save guard and review set")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: "lodge-ops", Dir: cfg.Log.Dir, Level: cfg.Log.Level})
	if err != nil {
		log = logger.NewLogger()
		log.Warn("LOGGER", fmt.Sprintf("File logging disabled: %v", err))
	}
	defer log.Close()

	log.Info("APP", "Starting lodge operations service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := session.ParseCharityPolicy(cfg.Attendance.CharityEditPolicy)
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg, bunDB, log); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema preparation failed: %v", err))
	}

	var (
		guard   session.SaveGuard   = session.NewLocalGuard()
		reviews session.ReviewStore = session.NewMemoryReviews()
	)
	if redisClient := connectRedis(ctx, cfg.Redis, log); redisClient != nil {
		defer redisClient.Close()
		redisStore := sessionredis.NewRedis(redisClient, cfg.Attendance.SaveLockTTL, log)
		guard, reviews = redisStore, redisStore
	}

	hub := sse.NewNotificationHub()
	store := &db.DB{Bun: bunDB}

	var publisher session.Publisher
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.SessionFinalized, cfg.Kafka.Topics.TransactionCreated, cfg.Kafka.Topics.CalendarEvents}
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		publisher = producer
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.CalendarEvents, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		log.Info("KAFKA", fmt.Sprintf("Kafka producer and consumer initialized for %v", cfg.Kafka.Brokers))
	} else {
		log.Warn("KAFKA", "Kafka disabled, session events will not be published")
	}

	svc := session.NewService(store, finance.NewLedger(bunDB), guard, reviews, publisher, hub, log, session.Options{
		Window:        cfg.Attendance.RollingWindow,
		Streak:        cfg.Attendance.AlertStreak,
		CharityPolicy: policy,
	})

	if consumer != nil {
		go func() {
			err := consumer.Start(ctx, func(ctx context.Context, event models.Event) error {
				_, err := svc.UpsertEvent(ctx, event)
				return err
			})
			if err != nil {
				log.Error("KAFKA", fmt.Sprintf("Calendar consumer stopped: %v", err))
			}
		}()
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}

	handler := session_api.NewHandler(svc, hub, reports.NewSheetGenerator(cfg.Reports), log)

	r := chi.NewRouter()
	r.Use(session_api.RequestLogger(log))
	r.Get("/health", handler.Health)
	r.Group(func(r chi.Router) {
		if verifier != nil {
			r.Use(auth.Middleware(verifier))
			log.Info("AUTH", "Bearer token verification applied to /api routes")
		} else {
			log.Warn("AUTH", "No OIDC_ISSUER or AUTH_JWT_SECRET set, /api routes are unauthenticated")
		}
		handler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Lodge operations service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP", fmt.Sprintf("HTTP server error: %v", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
		return
	}
	log.Info("HTTP", "Lodge operations service shutdown complete")
}
