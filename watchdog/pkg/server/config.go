package server

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/norugfun/ledger/ledger/pkg/store"
	"github.com/norugfun/ledger/watchdog/pkg/watchdog"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// LedgerReader is the read-only slice of the engine the server exposes.
type LedgerReader interface {
	ListActiveEpochs(ctx context.Context) ([]store.EpochRecord, error)
	GetEpoch(ctx context.Context, epochID uint64) (store.EpochRecord, error)
	ListProposalsByEpoch(ctx context.Context, epochID uint64) ([]store.ProposalRecord, error)
	GetProposal(ctx context.Context, proposal solana.PublicKey) (store.ProposalRecord, error)
	GetTreasury(ctx context.Context) (store.TreasuryRecord, error)
}

type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo
	Ledger            LedgerReader
	Watchdog          *watchdog.Watchdog
}

func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Ledger == nil {
		return errors.New("ledger is required")
	}
	if cfg.Watchdog == nil {
		return errors.New("watchdog is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	return nil
}
