package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/norugfun/ledger/admin/internal/admin"
	"github.com/norugfun/ledger/ledger/pkg/store"
	"github.com/norugfun/ledger/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Connection configuration
	databaseURLFlag := flag.String("database-url", "", "PostgreSQL connection string (or set DATABASE_URL env var)")
	programIDFlag := flag.String("program-id", "", "base58 program identity records are derived under (or set PROGRAM_ID env var)")
	authorityFlag := flag.String("authority", "", "base58 admin authority signing privileged operations (or set LEDGER_AUTHORITY env var)")

	// Migration commands
	migrateFlag := flag.Bool("migrate", false, "Run database migrations using goose")
	migrateDownFlag := flag.Bool("migrate-down", false, "Roll back the most recent database migration")
	migrateStatusFlag := flag.Bool("migrate-status", false, "Show database migration status")

	// Ledger commands
	bootstrapFlag := flag.String("bootstrap", "", "Initialize config, treasury, and roles with the given base58 admin identity")
	startEpochFlag := flag.Int64("start-epoch", -1, "Start the epoch with this id")
	endEpochFlag := flag.Int64("end-epoch", -1, "End the epoch with this id")
	markProcessedFlag := flag.Int64("mark-processed", -1, "Mark the closed epoch with this id as processed")
	finalizeProposalFlag := flag.String("finalize-proposal", "", "Finalize the proposal at this base58 address")
	finalizeStatusFlag := flag.String("finalize-status", "rejected", "Final status for --finalize-proposal (validated or rejected)")
	fundWalletFlag := flag.String("fund-wallet", "", "Credit lamports to this base58 wallet")
	lamportsFlag := flag.Uint64("lamports", 0, "Lamport amount for --fund-wallet")
	showTreasuryFlag := flag.Bool("show-treasury", false, "Print the treasury record as JSON")

	// Epoch timing options
	epochStartTimeFlag := flag.Int64("epoch-start-time", 0, "Epoch start as unix seconds (0 = now)")
	epochDurationFlag := flag.Duration("epoch-duration", 7*24*time.Hour, "Epoch length for --start-epoch")

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
	if env := os.Getenv("LEDGER_AUTHORITY"); env != "" {
		*authorityFlag = env
	}
	if *databaseURLFlag == "" {
		return fmt.Errorf("--database-url is required")
	}

	ctx := context.Background()
	cfg := admin.Config{
		DatabaseURL: *databaseURLFlag,
		ProgramID:   *programIDFlag,
		Authority:   *authorityFlag,
	}

	// Execute commands
	if *migrateFlag {
		return store.RunMigrations(log, *databaseURLFlag)
	}
	if *migrateDownFlag {
		return store.RollbackMigration(log, *databaseURLFlag)
	}
	if *migrateStatusFlag {
		return store.MigrationStatus(log, *databaseURLFlag)
	}

	// Everything below needs a program identity.
	if *programIDFlag == "" {
		return fmt.Errorf("--program-id is required")
	}

	if *bootstrapFlag != "" {
		return admin.Bootstrap(ctx, log, cfg, *bootstrapFlag)
	}

	if *startEpochFlag >= 0 {
		startTime := *epochStartTimeFlag
		if startTime == 0 {
			startTime = time.Now().Unix()
		}
		endTime := startTime + int64(epochDurationFlag.Seconds())
		return admin.StartEpoch(ctx, log, cfg, uint64(*startEpochFlag), startTime, endTime)
	}

	if *endEpochFlag >= 0 {
		return admin.EndEpoch(ctx, log, cfg, uint64(*endEpochFlag))
	}

	if *markProcessedFlag >= 0 {
		return admin.MarkEpochProcessed(ctx, log, cfg, uint64(*markProcessedFlag))
	}

	if *finalizeProposalFlag != "" {
		return admin.FinalizeProposal(ctx, log, cfg, *finalizeProposalFlag, *finalizeStatusFlag)
	}

	if *fundWalletFlag != "" {
		if *lamportsFlag == 0 {
			return fmt.Errorf("--lamports is required for --fund-wallet")
		}
		return admin.FundWallet(ctx, log, cfg, *fundWalletFlag, *lamportsFlag)
	}

	if *showTreasuryFlag {
		return admin.ShowTreasury(ctx, log, cfg)
	}

	flag.Usage()
	return fmt.Errorf("no command specified")
}
