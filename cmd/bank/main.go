package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mybank/banking-system/internal/auth"
	"github.com/mybank/banking-system/internal/config"
	"github.com/mybank/banking-system/internal/console"
	"github.com/mybank/banking-system/internal/logging"
	"github.com/mybank/banking-system/internal/password"
	"github.com/mybank/banking-system/internal/service"
	"github.com/mybank/banking-system/internal/storage/csvstore"
	"github.com/mybank/banking-system/internal/storage/sqlstore"
)

func main() {
	if err := run(context.Background(), os.Stdin, os.Stdout); err != nil {
		slog.Error("bank stopped", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, err := logging.Open(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logOut.Close()
	logging.Init("bank", cfg.LogLevel, cfg.AppEnv, logOut)

	hasher, err := password.New(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bank := service.NewBank(store, hasher, nil)
	if err := bank.Load(ctx); err != nil {
		return err
	}

	secret := cfg.SessionSecret
	if secret == "" {
		if secret, err = auth.RandomSecret(); err != nil {
			return err
		}
		slog.Warn("SESSION_SECRET not set, using a per-process secret")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("bank started", "store", cfg.StoreDriver)
	c := console.New(console.Options{
		Bank:          bank,
		In:            stdin,
		Out:           stdout,
		SessionSecret: secret,
		SessionTTL:    cfg.SessionTTL,
	})

	// The console blocks on input, so it runs apart from the shutdown wait.
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		slog.Info("shutdown requested, saving", "reason", context.Cause(ctx))
	}

	if err := bank.Save(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, err)
	}
	slog.Info("bank stopped cleanly")
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config) (service.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL, sqlstore.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, nil, err
		}
		return migrated(ctx, sqlstore.New(db, sqlstore.Postgres))

	case config.DriverSQLite:
		db, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return migrated(ctx, sqlstore.New(db, sqlstore.SQLite))

	default:
		s, err := csvstore.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func migrated(ctx context.Context, s *sqlstore.Store) (service.Store, func(), error) {
	closeDB := func() { s.Conn().Close() }
	if err := s.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return s, closeDB, nil
}
