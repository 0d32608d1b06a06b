// Package engine implements the governance and fund-custody operation
// surface. Every entry point executes as one atomic transaction against the
// record store: all validation happens before any mutation, any failure
// rolls the whole operation back, and authority checks run under the same
// locks as the mutations they guard.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/norugfun/ledger/ledger/pkg/addr"
	"github.com/norugfun/ledger/ledger/pkg/metrics"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

type Config struct {
	Logger    *slog.Logger
	Store     *store.Store
	Clock     clockwork.Clock
	ProgramID solana.PublicKey

	// SupportRecordRent is the storage deposit charged when a support record
	// is created. Zero means use the protocol default.
	SupportRecordRent uint64
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.ProgramID.IsZero() {
		return errors.New("program id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SupportRecordRent == 0 {
		cfg.SupportRecordRent = protocol.SupportRecordRentLamports
	}
	return nil
}

type Engine struct {
	log   *slog.Logger
	cfg   Config
	store *store.Store

	// Singleton record addresses, derived once.
	configAddr   solana.PublicKey
	configBump   uint8
	treasuryAddr solana.PublicKey
	treasuryBump uint8
	rolesAddr    solana.PublicKey
	rolesBump    uint8
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		log:   cfg.Logger,
		cfg:   cfg,
		store: cfg.Store,
	}

	var err error
	if e.configAddr, e.configBump, err = addr.Config(cfg.ProgramID); err != nil {
		return nil, fmt.Errorf("failed to derive config address: %w", err)
	}
	if e.treasuryAddr, e.treasuryBump, err = addr.Treasury(cfg.ProgramID); err != nil {
		return nil, fmt.Errorf("failed to derive treasury address: %w", err)
	}
	if e.rolesAddr, e.rolesBump, err = addr.TreasuryRoles(cfg.ProgramID); err != nil {
		return nil, fmt.Errorf("failed to derive treasury roles address: %w", err)
	}
	return e, nil
}

// ProgramID returns the namespace the engine derives record addresses under.
func (e *Engine) ProgramID() solana.PublicKey { return e.cfg.ProgramID }

// run executes one operation inside a transaction and records metrics.
func (e *Engine) run(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	start := e.cfg.Clock.Now()
	err := e.store.WithTx(ctx, fn)
	metrics.ObserveOperation(op, err, e.cfg.Clock.Since(start))
	if err != nil {
		e.log.Debug("engine: operation rejected", "op", op, "kind", protocol.KindOf(err).String(), "error", err)
	}
	return err
}

// requireAdmin checks the caller against the configured admin authority
// inside the current transaction.
func (e *Engine) requireAdmin(ctx context.Context, tx pgx.Tx, authority solana.PublicKey) error {
	cfg, err := e.store.GetConfig(ctx, tx, e.configAddr)
	if err != nil {
		return err
	}
	if !cfg.AdminAuthority.Equals(authority) {
		return protocol.ErrInvalidAuthority
	}
	return nil
}

// now reads the trusted clock once, as unix seconds.
func (e *Engine) now() int64 {
	return e.cfg.Clock.Now().Unix()
}
