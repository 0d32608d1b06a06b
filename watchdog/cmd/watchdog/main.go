package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	sentrygo "github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/norugfun/ledger/ledger/pkg/engine"
	"github.com/norugfun/ledger/ledger/pkg/store"
	"github.com/norugfun/ledger/utils/pkg/logger"
	"github.com/norugfun/ledger/watchdog/pkg/server"
	"github.com/norugfun/ledger/watchdog/pkg/watchdog"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", "0.0.0.0:8080", "address to listen on for the operational HTTP server")
	pprofAddrFlag := flag.String("pprof-addr", "", "address to listen on for pprof (empty = disabled)")
	databaseURLFlag := flag.String("database-url", "", "PostgreSQL connection string (or set DATABASE_URL env var)")
	programIDFlag := flag.String("program-id", "", "base58 program identity records are derived under (or set PROGRAM_ID env var)")
	sweepIntervalFlag := flag.Duration("sweep-interval", 30*time.Second, "how often to sweep for due epochs")
	migrateFlag := flag.Bool("migrate", false, "run database migrations before starting")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 15*time.Second, "maximum time to wait for graceful shutdown")

	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	if env := os.Getenv("DATABASE_URL"); env != "" {
		*databaseURLFlag = env
	}
	if env := os.Getenv("PROGRAM_ID"); env != "" {
		*programIDFlag = env
	}
	if *databaseURLFlag == "" {
		return fmt.Errorf("--database-url is required")
	}
	if *programIDFlag == "" {
		return fmt.Errorf("--program-id is required")
	}

	keyBytes, err := base58.Decode(*programIDFlag)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}
	if len(keyBytes) != solana.PublicKeyLength {
		return fmt.Errorf("invalid program id: expected %d bytes, got %d", solana.PublicKeyLength, len(keyBytes))
	}
	programID := solana.PublicKeyFromBytes(keyBytes)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentrygo.Init(sentrygo.ClientOptions{
			Dsn:         dsn,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
			Release:     version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentrygo.Flush(5 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateFlag {
		if err := store.RunMigrations(log, *databaseURLFlag); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := pgxpool.New(ctx, *databaseURLFlag)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	st, err := store.New(store.Config{Logger: log, Pool: pool})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Logger:    log,
		Store:     st,
		ProgramID: programID,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	wd, err := watchdog.New(watchdog.Config{
		Logger:        log,
		Ledger:        eng,
		SweepInterval: *sweepIntervalFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create watchdog: %w", err)
	}

	srv, err := server.New(log, server.Config{
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
		Ledger:   eng,
		Watchdog: wd,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	server.BuildInfo.WithLabelValues(version, commit, date).Set(1)
	log.Info("watchdog: starting", "version", version, "program_id", programID.String(), "interval", *sweepIntervalFlag)

	wd.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if *pprofAddrFlag != "" {
		g.Go(func() error {
			pprofSrv := &http.Server{Addr: *pprofAddrFlag, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeoutFlag)
				defer cancel()
				_ = pprofSrv.Shutdown(shutdownCtx)
			}()
			log.Info("watchdog: pprof listening", "address", *pprofAddrFlag)
			if err := pprofSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("pprof server error: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
