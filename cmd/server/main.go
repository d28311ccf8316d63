package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"talentgate/internal/assessment/handler"
	assessmentmetrics "talentgate/internal/assessment/metrics"
	"talentgate/internal/assessment/service"
	"talentgate/internal/assessment/store"
	"talentgate/internal/audit"
	jwttoken "talentgate/internal/jwt_token"
	"talentgate/internal/platform/config"
	"talentgate/internal/platform/httpserver"
	"talentgate/internal/platform/logger"
	platformmetrics "talentgate/internal/platform/metrics"
	"talentgate/internal/platform/middleware"
	platformredis "talentgate/internal/platform/redis"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []service.Option
	stores, db, err := buildStores(cfg, log, &opts)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	auditor, auditDone := buildAudit(ctx, cfg, log)
	opts = append(opts,
		service.WithAuditPublisher(auditor),
		service.WithMetrics(assessmentmetrics.New()),
		service.WithLogger(log),
	)

	svc := service.NewService(stores, opts...)
	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "talentgate", "talentgate-internal")

	router := chi.NewRouter()
	router.Use(middleware.HTTPMetrics(platformmetrics.New()))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, log, jwtSvc, cfg.InvitationTTL).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting talentgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if auditDone != nil {
		<-auditDone
	}
}

// buildStores selects postgres when DATABASE_URL is set, in-memory otherwise.
// The in-memory variant exists for local runs and demos; it loses everything
// on restart.
func buildStores(cfg config.Server, log *slog.Logger, opts *[]service.Option) (service.Stores, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return service.Stores{
			Invitations: store.NewMemoryInvitations(),
			Assessments: store.NewMemoryAssessments(),
			Responses:   store.NewMemoryResponses(),
			Surveys:     store.NewMemorySurveys(),
			Scores:      store.NewMemoryScores(),
		}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return service.Stores{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return service.Stores{}, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	stores := service.Stores{
		Invitations: store.NewPostgresInvitations(db),
		Assessments: store.NewPostgresAssessments(db),
		Responses:   store.NewPostgresResponses(db),
		Surveys:     store.NewPostgresSurveys(db),
		Scores:      store.NewPostgresScores(db),
	}
	*opts = append(*opts, service.WithTx(newPostgresTx(db)))

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, invitation cache disabled", "error", err)
	} else if redisClient != nil {
		stores.Invitations = store.NewCachedInvitations(stores.Invitations, redisClient.Client, log)
		log.Info("invitation cache enabled")
	}

	return stores, db, nil
}

// buildAudit wires the best-effort audit trail. Without Kafka brokers the
// trail is kept in memory only, which is enough for local runs.
func buildAudit(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Publisher, <-chan struct{}) {
	var sinks []audit.Sink
	var kafkaSink *audit.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka audit sink unavailable", "error", err)
		} else {
			kafkaSink = sink
			sinks = append(sinks, sink)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewMemorySink())
	}

	dispatcher := audit.NewDispatcher(256, log)
	worker := audit.NewWorker(dispatcher.Inbox(), log, sinks...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
		if kafkaSink != nil {
			kafkaSink.Close()
		}
	}()

	return dispatcher, done
}
