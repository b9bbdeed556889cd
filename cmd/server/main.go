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
	_ "time/tzdata"

	goredis "github.com/redis/go-redis/v9"

	"hcert/internal/condense"
	"hcert/internal/cose"
	"hcert/internal/hc1"
	"hcert/internal/issuance"
	issuancemetrics "hcert/internal/issuance/metrics"
	"hcert/internal/platform/config"
	"hcert/internal/platform/httpserver"
	"hcert/internal/platform/logger"
	"hcert/internal/platform/metrics"
	"hcert/internal/platform/postgres"
	"hcert/internal/platform/redis"
	"hcert/internal/refdata"
	"hcert/internal/signing"
	"hcert/internal/transliterate"
	"hcert/internal/uvci"
	"hcert/internal/uvci/store"
	"hcert/pkg/platform/circuit"
)

// main wires the issuance pipeline, proves it end to end with a canary
// certificate and serves the operational endpoints. Issuance itself is
// invoked as a library by the excluded HTTP layer.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpserver.Check{}

	var redisClient *goredis.Client
	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	ledgerStore, err := openLedgerStore(ctx, cfg, redisClient, checks)
	if err != nil {
		return err
	}

	refs, err := openRefData(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}

	keyring, err := openKeyring(cfg.Signing, log)
	if err != nil {
		return err
	}
	checks["signing"] = func(ctx context.Context) error {
		_, err := keyring.RandomKey(ctx)
		return err
	}

	location, err := time.LoadLocation(cfg.Issuance.TimeZone)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}

	generator, err := uvci.NewGenerator(cfg.Ledger.Prefix, cfg.Ledger.Version)
	if err != nil {
		return err
	}
	ledger, err := uvci.NewLedger(generator, ledgerStore,
		uvci.WithLogger(log),
		uvci.WithCollisionRecorder(metrics.New()),
		uvci.WithMaxAttempts(cfg.Ledger.MaxAttempts),
	)
	if err != nil {
		return err
	}
	condenser := condense.New(refs, transliterate.New(), condense.Config{
		DefaultCountry: cfg.Issuance.DefaultCountry,
		DefaultIssuer:  cfg.Issuance.DefaultIssuer,
		SchemaVersion:  cfg.Issuance.SchemaVersion,
		Location:       location,
	})
	svc := issuance.New(ledger, condenser, hc1.NewEncoder(cose.NewSigner(keyring)),
		issuance.Config{
			Issuer:           cfg.Issuance.IssuerCountry,
			TestValidity:     cfg.Issuance.TestValidity,
			RecoveryValidity: cfg.Issuance.RecoveryValidity,
			MaxConcurrency:   cfg.Issuance.MaxConcurrency,
		},
		issuance.WithLogger(log),
		issuance.WithMetrics(issuancemetrics.New()),
	)

	if err := runCanary(ctx, svc, keyring, cfg.Issuance.IssuerCountry); err != nil {
		return fmt.Errorf("issuance canary failed: %w", err)
	}
	log.Info("issuance pipeline ready",
		"ledger", cfg.Ledger.Backend,
		"signing_tags", keyring.Tags(),
	)

	srv := httpserver.New(cfg.Addr, httpserver.NewOpsRouter(log, checks))
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting hcert", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openLedgerStore(ctx context.Context, cfg config.Config, redisClient *goredis.Client, checks map[string]httpserver.Check) (uvci.Store, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		checks["postgres"] = db.PingContext
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case config.LedgerRedis:
		return store.NewRedis(redisClient), nil
	default:
		return store.NewInMemory(), nil
	}
}

// openRefData merges the optional value-set file over the built-in sets.
// With Redis configured the merged sets are published there and served
// through an LRU cache, falling back to the local copy while Redis is down.
func openRefData(ctx context.Context, cfg config.Config, redisClient *goredis.Client, log *slog.Logger) (refdata.Provider, error) {
	tables := refdata.Defaults()
	if cfg.ValueSetsFile != "" {
		f, err := os.Open(cfg.ValueSetsFile)
		if err != nil {
			return nil, fmt.Errorf("open value sets: %w", err)
		}
		defer f.Close()
		overlay, err := refdata.LoadJSON(f)
		if err != nil {
			return nil, err
		}
		tables = refdata.Merge(tables, overlay)
		log.Info("value sets loaded", "file", cfg.ValueSetsFile, "sets", len(overlay))
	}

	if redisClient == nil {
		return refdata.NewStatic(tables), nil
	}
	remote := refdata.NewRedis(redisClient)
	if err := remote.Publish(ctx, tables); err != nil {
		return nil, err
	}
	local := refdata.NewStatic(tables)
	return refdata.NewResilient(
		refdata.NewCached(remote, 4096, 10*time.Minute),
		local,
		circuit.New("refdata"),
		refdata.WithLogger(log),
	), nil
}

func openKeyring(cfg config.SigningConfig, log *slog.Logger) (*signing.Keyring, error) {
	keyring := signing.NewKeyring(signing.WithLogger(log))
	if cfg.KeysDir != "" {
		if err := keyring.LoadDir(cfg.KeysDir, cfg.Tags); err != nil {
			return nil, err
		}
		return keyring, nil
	}
	for _, tag := range cfg.Tags {
		kid, err := keyring.Generate(tag)
		if err != nil {
			return nil, err
		}
		log.Warn("using ephemeral signing key", "tag", tag, "kid", kid)
	}
	return keyring, nil
}
