// Command server runs the credential issuance and verification service.
//
// main wires configuration, storage, the ledger gateway chain, and the
// background workers, then serves HTTP until interrupted. Business logic
// lives in the internal feature packages.
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

	"crest/internal/audit"
	credentialhandler "crest/internal/credential/handler"
	credentialmetrics "crest/internal/credential/metrics"
	credentialservice "crest/internal/credential/service"
	credentialstore "crest/internal/credential/store"
	identityhandler "crest/internal/identity/handler"
	identitymetrics "crest/internal/identity/metrics"
	identityservice "crest/internal/identity/service"
	identitystore "crest/internal/identity/store"
	"crest/internal/jwttoken"
	"crest/internal/ledger"
	"crest/internal/ledger/anchor"
	ledgercache "crest/internal/ledger/cache"
	ledgermetrics "crest/internal/ledger/metrics"
	"crest/internal/ledger/relay"
	"crest/internal/notify"
	"crest/internal/platform/config"
	"crest/internal/platform/httpserver"
	"crest/internal/platform/logger"
	"crest/internal/platform/postgres"
	platformredis "crest/internal/platform/redis"
	httptransport "crest/internal/transport/http"
	"crest/pkg/platform/circuit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Gateway chain: relay -> circuit breaker -> metrics. When the relay is
	// unconfigured every call fails fast and issuance proceeds unanchored.
	var gateway ledger.Gateway = ledger.NewDisabled()
	if cfg.Ledger.Configured() {
		breaker := circuit.New("ledger-relay")
		gateway = ledger.NewWithBreaker(relay.New(cfg.Ledger, log), breaker, log)
	}
	gateway = ledger.NewInstrumented(gateway, ledgermetrics.New())

	var identityStore identityservice.IdentityStore
	var credentialStore credentialservice.CredentialStore
	var auditStore audit.Store
	if db != nil {
		identityStore = identitystore.NewPostgres(db)
		credentialStore = credentialstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		identityStore = identitystore.NewInMemory()
		credentialStore = credentialstore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	auditOpts := []audit.PublisherOption{}
	kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
	if err != nil {
		log.Error("failed to create kafka audit sink", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Warn("kafka audit sink close failed", "error", err)
			}
		}()
		auditOpts = append(auditOpts, audit.WithSink(kafkaSink))
	}
	auditInbox := make(chan audit.Event, 256)
	auditOpts = append(auditOpts, audit.WithInbox(auditInbox))
	auditPublisher := audit.NewPublisher(auditStore, auditOpts...)
	auditWorker := audit.NewWorker(auditStore, auditInbox)

	var confirmationCache ledgercache.ConfirmationCache
	if redisClient != nil {
		confirmationCache = ledgercache.NewRedis(redisClient, cfg.VerifyCacheTTL)
	} else {
		confirmationCache = ledgercache.NewMemory(cfg.VerifyCacheTTL)
	}

	identitySvc := identityservice.New(identityStore, gateway, cfg.InstitutionCode, log,
		identityservice.WithAuditPublisher(auditPublisher),
		identityservice.WithMetrics(identitymetrics.New()))

	var identityLookup credentialservice.IdentityLookup = identityStore
	credentialSvc := credentialservice.New(credentialStore, identityLookup, gateway, log,
		credentialservice.WithNotifier(notify.NewLogNotifier(log)),
		credentialservice.WithAuditPublisher(auditPublisher),
		credentialservice.WithMetrics(credentialmetrics.New()),
		credentialservice.WithConfirmationCache(confirmationCache))

	validator := jwttoken.NewAdapter(jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer))

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = dbChecker{db: db}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Identity:    identityhandler.New(identitySvc, log, validator),
		Credentials: credentialhandler.New(credentialSvc, log, validator),
		Checks:      checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	anchorWorker := anchor.New(credentialStore, identityLookup, gateway, log,
		anchor.WithAuditPublisher(auditPublisher),
		anchor.WithInterval(cfg.AnchorInterval),
		anchor.WithBatchSize(cfg.AnchorBatchSize))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting crest server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := anchorWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
