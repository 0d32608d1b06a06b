package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/norugfun/ledger/ledger/pkg/addr"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// Read-only lookups run outside a transaction against the pool directly.

func (e *Engine) GetConfig(ctx context.Context) (store.ConfigRecord, error) {
	return e.store.GetConfig(ctx, e.store.Pool(), e.configAddr)
}

func (e *Engine) GetEpoch(ctx context.Context, epochID uint64) (store.EpochRecord, error) {
	address, _, err := addr.Epoch(e.cfg.ProgramID, epochID)
	if err != nil {
		return store.EpochRecord{}, err
	}
	return e.store.GetEpoch(ctx, e.store.Pool(), address, store.LockNone)
}

func (e *Engine) GetProposal(ctx context.Context, proposal solana.PublicKey) (store.ProposalRecord, error) {
	return e.store.GetProposal(ctx, e.store.Pool(), proposal, store.LockNone)
}

func (e *Engine) GetSupport(ctx context.Context, epochID uint64, user, proposal solana.PublicKey) (store.SupportRecord, error) {
	address, _, err := addr.Support(e.cfg.ProgramID, epochID, user, proposal)
	if err != nil {
		return store.SupportRecord{}, err
	}
	return e.store.GetSupport(ctx, e.store.Pool(), address, store.LockNone)
}

func (e *Engine) GetTreasury(ctx context.Context) (store.TreasuryRecord, error) {
	return e.store.GetTreasury(ctx, e.store.Pool(), e.treasuryAddr, store.LockNone)
}

func (e *Engine) GetTreasuryRoles(ctx context.Context) (store.RolesRecord, []store.RoleGrant, error) {
	rec, err := e.store.GetRoles(ctx, e.store.Pool(), e.rolesAddr, store.LockNone)
	if err != nil {
		return store.RolesRecord{}, nil, err
	}
	grants, err := e.store.ListGrants(ctx, e.store.Pool(), e.rolesAddr)
	if err != nil {
		return store.RolesRecord{}, nil, err
	}
	return rec, grants, nil
}

func (e *Engine) ListActiveEpochs(ctx context.Context) ([]store.EpochRecord, error) {
	return e.store.ListActiveEpochs(ctx, e.store.Pool())
}

func (e *Engine) ListProposalsByEpoch(ctx context.Context, epochID uint64) ([]store.ProposalRecord, error) {
	return e.store.ListProposalsByEpoch(ctx, e.store.Pool(), epochID)
}

// DueEpochs lists the active epochs whose end time has passed on the
// engine's clock, for the watchdog sweep.
func (e *Engine) DueEpochs(ctx context.Context) ([]store.EpochRecord, error) {
	return e.store.ListDueEpochs(ctx, e.store.Pool(), e.now())
}

// WalletBalance reports the tracked lamport balance of an identity.
func (e *Engine) WalletBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	return e.store.WalletBalance(ctx, e.store.Pool(), address)
}

// FundWallet credits lamports to an identity's tracked balance. Deposits
// originate outside the ledger, so this is the only unauthenticated credit
// path.
func (e *Engine) FundWallet(ctx context.Context, address solana.PublicKey, lamports uint64) error {
	return e.store.CreditWallet(ctx, e.store.Pool(), address, lamports)
}
