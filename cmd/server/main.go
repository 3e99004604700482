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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"

	"exportgate/internal/auditpack"
	packmetrics "exportgate/internal/auditpack/metrics"
	"exportgate/internal/auditpack/signing"
	"exportgate/internal/decision"
	decisionmetrics "exportgate/internal/decision/metrics"
	"exportgate/internal/document"
	"exportgate/internal/org"
	"exportgate/internal/platform/config"
	"exportgate/internal/platform/httpserver"
	"exportgate/internal/platform/logger"
	platformpostgres "exportgate/internal/platform/postgres"
	platformredis "exportgate/internal/platform/redis"
	"exportgate/internal/regime"
	"exportgate/internal/rules"
	"exportgate/internal/shipment"
	httptransport "exportgate/internal/transport/http"
	"exportgate/pkg/platform/audit"
	auditmemory "exportgate/pkg/platform/audit/store/memory"
	auditpostgres "exportgate/pkg/platform/audit/store/postgres"
	auditworker "exportgate/pkg/platform/audit/worker"
	"exportgate/pkg/platform/middleware/auth"
	platformtx "exportgate/pkg/platform/tx"
)

// main wires the dependency graph and owns the process lifecycle. Without a
// Postgres DSN everything runs on in-memory stores, which is the dev mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("exportgate exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := regime.ValidateTable(); err != nil {
		return err
	}
	catalog, err := rules.NewCatalog()
	if err != nil {
		return err
	}

	var (
		documentStore document.Store
		snapshots     shipment.SnapshotReader
		reportStore   decision.Store
		packStore     auditpack.Store
		orgStore      org.Store
		auditStore    audit.Store
		outboxDB      *sql.DB
	)
	var storeTx platformtx.Runner = platformtx.Nop{}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := platformpostgres.Apply(ctx, pool); err != nil {
				return err
			}
			log.Info("database schema applied")
		}

		outboxDB, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer outboxDB.Close()

		documentStore = document.NewPostgres(pool)
		snapshots = shipment.NewPostgres(pool)
		reportStore = decision.NewPostgres(pool)
		packStore = auditpack.NewPostgres(pool)
		orgStore = org.NewPostgres(pool)
		auditStore = auditpostgres.New(pool)
		storeTx = platformtx.NewPgxRunner(pool)
	} else {
		log.Warn("no postgres dsn configured, using in-memory stores")
		docs := document.NewInMemoryStore()
		documentStore = docs
		snapshots = shipment.NewInMemoryReader(docs)
		reportStore = decision.NewInMemoryStore()
		packStore = auditpack.NewInMemoryStore()
		orgStore = org.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log))

	signer, err := signing.NewLocalSigner()
	if err != nil {
		return err
	}

	orgs := org.NewService(orgStore, org.WithLogger(log))

	documents := document.NewService(documentStore,
		document.WithLogger(log),
		document.WithAuditPublisher(auditor),
		document.WithTxRunner(storeTx),
	)

	decisions := decision.NewService(snapshots, reportStore, catalog,
		decision.WithLogger(log),
		decision.WithAuditPublisher(auditor),
		decision.WithMetrics(decisionmetrics.New()),
		decision.WithOrganizationGate(orgs),
		decision.WithTxRunner(storeTx),
	)

	packOpts := []auditpack.Option{
		auditpack.WithLogger(log),
		auditpack.WithAuditPublisher(auditor),
		auditpack.WithSigningTimeout(cfg.SigningTimeout),
		auditpack.WithOrganizationGate(orgs),
		auditpack.WithMetrics(packmetrics.New()),
		auditpack.WithTxRunner(storeTx),
	}
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		packOpts = append(packOpts, auditpack.WithGenerationGuard(auditpack.NewRedisGuard(redisClient)))
	}
	packs := auditpack.NewAssembler(snapshots, reportStore, packStore,
		signer, signing.NewLocalTimestamper(), packOpts...)

	if len(cfg.KafkaBrokers) > 0 && outboxDB != nil {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.AllowAutoTopicCreation(),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()

		if err := auditworker.EnsureTopic(ctx, kafkaClient, cfg.AuditTopic, 3); err != nil {
			return err
		}
		worker := auditworker.New(outboxDB, kafkaClient, cfg.AuditTopic, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	handler := httptransport.NewHandler(documents, decisions, packs, orgs, auditor, log)
	authMW := auth.New([]byte(cfg.JWTSigningKey), log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, authMW))

	errCh := make(chan error, 1)
	go func() {
		log.Info("exportgate listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
