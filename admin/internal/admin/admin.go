// Package admin implements the operator-facing commands behind the admin
// CLI: ledger bootstrap, epoch control, and proposal finalization.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mr-tron/base58"

	"github.com/norugfun/ledger/ledger/pkg/engine"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// Config holds the connection settings shared by all admin commands.
type Config struct {
	DatabaseURL string
	ProgramID   string
	// Authority signs every privileged operation.
	Authority string
}

// ParseKey decodes and validates a base58 identity.
func ParseKey(s string) (solana.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid base58 key %q: %w", s, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("invalid key %q: expected %d bytes, got %d", s, solana.PublicKeyLength, len(raw))
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// Connect builds an engine from the shared config. The returned closer shuts
// down the underlying pool.
func Connect(ctx context.Context, log *slog.Logger, cfg Config) (*engine.Engine, func(), error) {
	programID, err := ParseKey(cfg.ProgramID)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	st, err := store.New(store.Config{Logger: log, Pool: pool})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Logger:    log,
		Store:     st,
		ProgramID: programID,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return eng, pool.Close, nil
}

func (cfg Config) authority() (solana.PublicKey, error) {
	if cfg.Authority == "" {
		return solana.PublicKey{}, fmt.Errorf("--authority is required for this command")
	}
	return ParseKey(cfg.Authority)
}

// Bootstrap initializes the singleton config, treasury, and role registry
// with the given admin identity. Records that already exist are reported and
// skipped so bootstrap can be re-run.
func Bootstrap(ctx context.Context, log *slog.Logger, cfg Config, adminKey string) error {
	admin, err := ParseKey(adminKey)
	if err != nil {
		return err
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.InitializeConfig(ctx, admin); err != nil {
		if protocol.KindOf(err) != protocol.KindState {
			return err
		}
		log.Info("admin: config already initialized, skipping")
	}
	if err := eng.InitializeTreasury(ctx, admin); err != nil {
		if protocol.KindOf(err) != protocol.KindState {
			return err
		}
		log.Info("admin: treasury already initialized, skipping")
	}
	if err := eng.InitializeTreasuryRoles(ctx, []solana.PublicKey{admin}); err != nil {
		if protocol.KindOf(err) != protocol.KindState {
			return err
		}
		log.Info("admin: treasury roles already initialized, skipping")
	}

	log.Info("admin: ledger bootstrapped", "admin", admin.String())
	return nil
}

// StartEpoch opens a new epoch with explicit unix-second bounds.
func StartEpoch(ctx context.Context, log *slog.Logger, cfg Config, epochID uint64, startTime, endTime int64) error {
	authority, err := cfg.authority()
	if err != nil {
		return err
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	address, err := eng.StartEpoch(ctx, authority, epochID, startTime, endTime)
	if err != nil {
		return err
	}
	log.Info("admin: epoch started", "epoch_id", epochID, "address", address.String())
	return nil
}

// EndEpoch closes an epoch ahead of (or after) its scheduled end.
func EndEpoch(ctx context.Context, log *slog.Logger, cfg Config, epochID uint64) error {
	authority, err := cfg.authority()
	if err != nil {
		return err
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.EndEpoch(ctx, authority, epochID); err != nil {
		return err
	}
	log.Info("admin: epoch ended", "epoch_id", epochID)
	return nil
}

// MarkEpochProcessed flags a closed epoch as settled.
func MarkEpochProcessed(ctx context.Context, log *slog.Logger, cfg Config, epochID uint64) error {
	authority, err := cfg.authority()
	if err != nil {
		return err
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.MarkEpochProcessed(ctx, authority, epochID); err != nil {
		return err
	}
	log.Info("admin: epoch marked processed", "epoch_id", epochID)
	return nil
}

// FinalizeProposal moves a proposal to validated or rejected.
func FinalizeProposal(ctx context.Context, log *slog.Logger, cfg Config, proposalKey, status string) error {
	authority, err := cfg.authority()
	if err != nil {
		return err
	}
	proposal, err := ParseKey(proposalKey)
	if err != nil {
		return err
	}
	newStatus := protocol.ProposalStatus(status)
	if !newStatus.Final() {
		return fmt.Errorf("invalid final status %q: must be %q or %q", status, protocol.ProposalValidated, protocol.ProposalRejected)
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.FinalizeProposalStatus(ctx, authority, proposal, newStatus); err != nil {
		return err
	}
	log.Info("admin: proposal finalized", "proposal", proposal.String(), "status", status)
	return nil
}

// FundWallet credits lamports to an identity's tracked balance.
func FundWallet(ctx context.Context, log *slog.Logger, cfg Config, walletKey string, lamports uint64) error {
	wallet, err := ParseKey(walletKey)
	if err != nil {
		return err
	}

	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.FundWallet(ctx, wallet, lamports); err != nil {
		return err
	}
	log.Info("admin: wallet funded", "wallet", wallet.String(), "lamports", lamports)
	return nil
}

// ShowTreasury prints the treasury record as JSON.
func ShowTreasury(ctx context.Context, log *slog.Logger, cfg Config) error {
	eng, closer, err := Connect(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closer()

	treasury, err := eng.GetTreasury(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(treasury)
}
