package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vetcred/internal/application"
	"vetcred/internal/audit"
	"vetcred/internal/auth"
	"vetcred/internal/card"
	"vetcred/internal/city"
	"vetcred/internal/jwttoken"
	"vetcred/internal/member"
	"vetcred/internal/notify"
	"vetcred/internal/platform/config"
	"vetcred/internal/platform/httpserver"
	"vetcred/internal/platform/logger"
	"vetcred/internal/platform/metrics"
	"vetcred/internal/platform/postgres"
	redisplatform "vetcred/internal/platform/redis"
	"vetcred/internal/qrtoken"
	"vetcred/internal/ratelimit"
	"vetcred/internal/renewal"
	httptransport "vetcred/internal/transport/http"
	"vetcred/pkg/platform/tx"
)

// main wires storage, services, the audit worker, and the HTTP server.
// Business logic lives in the internal service packages; everything here is
// construction and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Stores: postgres when a DSN is configured, in-memory otherwise (local
	// development and tests).
	var (
		accountStore auth.Store
		cityStore    city.Store
		appStore     application.Store
		memberStore  member.Store
		renewalStore renewal.Store
		qrStore      qrtoken.Store
		auditStore   audit.Store
		runner       tx.Runner
		health       = map[string]httptransport.HealthChecker{}
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		accountStore = auth.NewPostgres(db)
		cityStore = city.NewPostgres(db)
		appStore = application.NewPostgres(db)
		memberStore = member.NewPostgres(db)
		renewalStore = renewal.NewPostgres(db)
		qrStore = qrtoken.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
		health["postgres"] = pingChecker{db.PingContext}
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		accountStore = auth.NewInMemory()
		cityStore = city.NewInMemory()
		appStore = application.NewInMemory()
		memberStore = member.NewInMemory()
		renewalStore = renewal.NewInMemory()
		qrStore = qrtoken.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		runner = tx.NewMemoryRunner()
	}

	// Login throttle: shared window via redis when configured.
	var limiterStore ratelimit.Store = ratelimit.NewInMemory()
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient)
		health["redis"] = pingChecker{func(ctx context.Context) error { return redisClient.Health(ctx) }}
	}
	limiter := ratelimit.New(limiterStore)

	// Audit pipeline: buffered publisher, one worker, optional Kafka mirror.
	publisher := audit.NewPublisher(log, 1024)
	var mirrors []audit.Mirror
	if len(cfg.KafkaBrokers) > 0 {
		mirror, err := audit.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka mirror setup failed", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		mirrors = append(mirrors, mirror)
	}
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log, mirrors...)

	var mailer notify.Mailer
	if cfg.MailRelayURL != "" {
		mailer = notify.NewRelayMailer(cfg.MailRelayURL, cfg.MailFrom)
	} else {
		mailer = notify.NewLogMailer(log)
	}

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "vetcred")
	authService := auth.NewService(accountStore, jwtService, limiter, publisher, m)
	cityService := city.NewService(cityStore)
	memberService := member.NewService(memberStore, runner, publisher, m)
	tokenService := qrtoken.NewService(qrStore, publisher, m)
	cardCache := card.NewCache(card.DefaultCacheCapacity)
	cardService := card.NewService(memberStore, cardCache, cfg.CardPayloadPrefix, m)
	memberService.UseCache(cardCache)
	applicationService := application.NewService(appStore, memberStore, tokenService,
		cityService, runner, mailer, publisher, m, log)
	renewalService := renewal.NewService(renewalStore, memberStore, memberService, runner, publisher)

	// City deletion is refused while applications or members reference it.
	cityService.Track(applicationService, memberService)

	handler := httptransport.NewHandler(httptransport.Config{
		Logger:       log,
		Metrics:      m,
		Validator:    jwtService,
		Auth:         authService,
		Applications: applicationService,
		Members:      memberService,
		Renewals:     renewalService,
		Tokens:       tokenService,
		Cards:        cardService,
		Cities:       cityService,
		Health:       health,
	})
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting vetcred", "addr", cfg.Addr)
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

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// pingChecker adapts a ping func to the transport health interface.
type pingChecker struct {
	ping func(context.Context) error
}

func (p pingChecker) Health(ctx context.Context) error { return p.ping(ctx) }
