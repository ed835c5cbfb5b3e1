package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ticketflow/internal/flow/handler"
	flowmetrics "ticketflow/internal/flow/metrics"
	"ticketflow/internal/flow/service"
	"ticketflow/internal/flow/store/session"
	"ticketflow/internal/platform/config"
	"ticketflow/internal/platform/httpserver"
	"ticketflow/internal/platform/kafka"
	"ticketflow/internal/platform/logger"
	"ticketflow/internal/platform/metrics"
	"ticketflow/internal/platform/postgres"
	"ticketflow/internal/platform/redis"
	"ticketflow/internal/reconciliation"
	"ticketflow/internal/reconciliation/publisher"
	reconstore "ticketflow/internal/reconciliation/store"
	"ticketflow/internal/verification"
	"ticketflow/pkg/flowtoken"
	"ticketflow/pkg/platform/circuit"
	"ticketflow/pkg/platform/httputil"
)

// main wires backing services, the flow registry and the display API, then
// runs the HTTP server, the flow clock and the reconciliation relay until a
// signal arrives.
func main() {
	// A local .env is optional; real environment variables win.
	envErr := godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("ignoring unreadable .env file", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ticketflow stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.DefaultRegisterer

	snapshots, redisClient, err := buildSnapshotStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	outbox, closeOutbox, err := buildOutbox(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeOutbox()

	pub, closePublisher, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	client := verification.New(cfg.Verification.BaseURL,
		verification.WithWriteTimeout(cfg.Verification.WriteTimeout),
		verification.WithLogger(log),
	)

	flows := service.New(client, snapshots, log,
		service.WithReconciler(reconciliation.NewRecorder(outbox, log)),
		service.WithResendCooldown(cfg.Flow.ResendCooldownSeconds()),
		service.WithSessionTTL(cfg.Flow.SessionTTL),
		service.WithTickInterval(cfg.Flow.TickInterval),
		service.WithMetrics(flowmetrics.New(reg)),
	)

	relay := reconciliation.NewRelay(outbox, pub, log,
		reconciliation.WithPollInterval(cfg.Reconciliation.PollInterval),
		reconciliation.WithBatchSize(cfg.Reconciliation.BatchSize),
		reconciliation.WithBreaker(circuit.New("reconciliation-publisher",
			circuit.WithFailureThreshold(cfg.Reconciliation.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Reconciliation.SuccessThreshold),
		)),
	)

	tokens := flowtoken.New(cfg.FlowTokenKey, cfg.FlowTokenIssuer)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(redisClient))
	handler.New(flows, tokens, tokens, log, metrics.New(reg), cfg.Flow.SessionTTL).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ticketflow",
			"addr", cfg.Addr,
			"env", cfg.Environment,
			"verification_base_url", cfg.Verification.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return flows.Run(gctx)
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})

	return g.Wait()
}

func buildSnapshotStore(ctx context.Context, cfg config.Server, log *slog.Logger) (session.Store, *redis.Client, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("REDIS_URL not set, flow snapshots kept in memory")
		return session.NewInMemory(), nil, nil
	}
	log.Info("flow snapshots stored in redis")
	return session.NewRedis(client.Client), client, nil
}

func buildOutbox(ctx context.Context, cfg config.Server, log *slog.Logger) (reconciliation.Store, func(), error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		log.Info("DATABASE_URL not set, reconciliation outbox kept in memory")
		return reconstore.NewInMemory(), func() {}, nil
	}
	store := reconstore.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}

func buildPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (reconciliation.Publisher, func(), error) {
	client, err := kafka.New(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("KAFKA_BROKERS not set, reconciliation records are logged")
		return publisher.NewLog(log), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 3, 1); err != nil {
		log.Warn("could not ensure reconciliation topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	return publisher.NewKafka(client, cfg.Kafka.Topic), client.Close, nil
}

func healthz(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
