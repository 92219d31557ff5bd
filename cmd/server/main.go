package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/application"
	"vn.io.arda/account/internal/config"
	"vn.io.arda/account/internal/infrastructure/keycloak"
	"vn.io.arda/account/internal/infrastructure/postgres"
	"vn.io.arda/account/internal/kafka"
	"vn.io.arda/account/internal/metrics"
	transporthttp "vn.io.arda/account/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting arda-account")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL()); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Msg("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping failed")
	}
	log.Info().Msg("postgres connected")

	// ── Repositories ─────────────────────────────────────────────────────────
	accounts := postgres.New(pool)
	subscriptions := postgres.NewSubscriptions(pool)
	thirdPartyRepo := postgres.NewThirdParty(pool)

	// ── Metrics ──────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// ── Identity provider (Keycloak Admin API) ───────────────────────────────
	provider := keycloak.New(keycloak.Options{
		AdminURL:          cfg.Keycloak.BaseURL,
		AdminRealm:        cfg.Keycloak.AdminRealm,
		UserRealm:         cfg.Keycloak.UserRealm,
		ClientID:          cfg.Keycloak.AdminClientID,
		ClientSecret:      cfg.Keycloak.AdminClientSecret,
		RequestsPerSecond: cfg.Keycloak.RequestsPerSecond,
	})

	// ── Notification producer ────────────────────────────────────────────────
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer producer.Close()

	// ── Application services ─────────────────────────────────────────────────
	guard := application.NewSystemAdminGuard(accounts, cfg.Admission.MaxSystemAdmins, recorder)
	deletion := application.NewDeletionOrchestrator(accounts, subscriptions, provider, recorder)
	scheduler := application.NewLifecycleScheduler(
		accounts,
		application.NewNotificationStep(producer),
		deletion,
		cfg.Thresholds(),
		cfg.Lifecycle.MaxConcurrency,
		recorder,
	)
	accountSvc := application.NewAccountService(accounts, provider)
	gate := application.NewThirdPartyGate(application.NewAdminPolicy(accounts))
	thirdPartySvc := application.NewThirdPartyService(gate, thirdPartyRepo)

	// ── HTTP Server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(transporthttp.Services{
		Admins:     gate,
		Accounts:   accountSvc,
		Admission:  guard,
		Deletion:   deletion,
		Lifecycle:  scheduler,
		ThirdParty: thirdPartySvc,
		DB:         accounts,
	})
	router := transporthttp.NewRouter(handler, cfg.Auth.JWTSecret, registry)

	// ── Kafka Consumer ────────────────────────────────────────────────────────
	consumer, err := kafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.ConsumerGroupID,
		cfg.Kafka.EventTopics,
		accountSvc,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}

	go consumer.Start(ctx)
	log.Info().Strs("topics", cfg.Kafka.EventTopics).Msg("kafka consumer started")

	// ── Lifecycle sweeps ──────────────────────────────────────────────────────
	if cfg.Lifecycle.Enabled {
		go scheduler.Start(ctx, cfg.Lifecycle.Interval)
	} else {
		log.Warn().Msg("lifecycle scheduler disabled")
	}

	// ── Start HTTP Server ─────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("arda-account stopped")
}
