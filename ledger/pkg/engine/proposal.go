package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/addr"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// CreateProposalParams are the creator-supplied launch terms.
type CreateProposalParams struct {
	EpochID           uint64
	TokenName         string
	TokenSymbol       string
	Description       string
	ImageURL          *string
	TotalSupply       uint64
	CreatorAllocation uint8
	LockupPeriod      int64
}

func (p *CreateProposalParams) validate() error {
	if p.TokenName == "" {
		return protocol.ErrTokenNameMustNotBeEmpty
	}
	if len(p.TokenName) > protocol.MaxTokenNameLen {
		return protocol.ErrTokenNameTooLong
	}
	if len(p.TokenSymbol) > protocol.MaxTokenSymbolLen {
		return protocol.ErrTokenSymbolTooLong
	}
	if len(p.Description) > protocol.MaxDescriptionLen {
		return protocol.ErrDescriptionTooLong
	}
	if p.ImageURL != nil && len(*p.ImageURL) > protocol.MaxImageURLLen {
		return protocol.ErrImageURLTooLong
	}
	if p.TotalSupply == 0 {
		return protocol.ErrTotalSupplyMustBePositive
	}
	if p.CreatorAllocation > protocol.MaxCreatorAllocation {
		return protocol.ErrCreatorAllocationTooHigh
	}
	if p.LockupPeriod < 0 {
		return protocol.ErrNegativeLockupPeriod
	}
	return nil
}

// CreateProposal records a new token-launch proposal in an active epoch. The
// creator pays the fixed creation fee, which is credited in full to the
// treasury operations sub-account.
func (e *Engine) CreateProposal(ctx context.Context, creator solana.PublicKey, params CreateProposalParams) (solana.PublicKey, error) {
	if err := params.validate(); err != nil {
		return solana.PublicKey{}, err
	}
	epochAddr, _, err := addr.Epoch(e.cfg.ProgramID, params.EpochID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	address, bump, err := addr.Proposal(e.cfg.ProgramID, creator, params.EpochID, params.TokenName)
	if err != nil {
		return solana.PublicKey{}, err
	}

	err = e.run(ctx, "create_proposal", func(tx pgx.Tx) error {
		epoch, err := e.store.GetEpoch(ctx, tx, epochAddr, store.LockShare)
		if err != nil {
			return err
		}
		if epoch.Status != protocol.EpochActive {
			return protocol.ErrEpochNotActive
		}

		if err := e.store.InsertProposal(ctx, tx, store.ProposalRecord{
			Address:             address,
			EpochID:             params.EpochID,
			Creator:             creator,
			TokenName:           params.TokenName,
			TokenSymbol:         params.TokenSymbol,
			Description:         params.Description,
			ImageURL:            params.ImageURL,
			TotalSupply:         params.TotalSupply,
			CreatorAllocation:   params.CreatorAllocation,
			SupporterAllocation: protocol.SupporterAllocation(params.CreatorAllocation),
			LockupPeriod:        params.LockupPeriod,
			Status:              protocol.ProposalActive,
			Bump:                bump,
		}); err != nil {
			return err
		}

		treasury, err := e.store.GetTreasury(ctx, tx, e.treasuryAddr, store.LockUpdate)
		if err != nil {
			return err
		}
		if treasury.Operations.SolBalance, err = protocol.CheckedAdd(treasury.Operations.SolBalance, protocol.ProposalCreationFeeLamports); err != nil {
			return err
		}
		if err := e.store.UpdateTreasury(ctx, tx, treasury); err != nil {
			return err
		}
		if err := e.store.DebitWallet(ctx, tx, creator, protocol.ProposalCreationFeeLamports); err != nil {
			return err
		}

		e.log.Info("engine: proposal created",
			"proposal", address.String(),
			"epoch_id", params.EpochID,
			"creator", creator.String(),
			"token_name", params.TokenName,
			"creator_allocation", params.CreatorAllocation,
		)
		return nil
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	return address, nil
}

// UpdateProposalParams are the creator-editable fields. Nil pointers leave a
// field unchanged. The token name is part of the proposal's derived address
// and cannot change.
type UpdateProposalParams struct {
	TokenSymbol       *string
	Description       *string
	ImageURL          *string
	TotalSupply       *uint64
	CreatorAllocation *uint8
	LockupPeriod      *int64
}

// UpdateProposal edits a proposal's launch terms while its epoch is still
// active. Changing the creator allocation recomputes the supporter
// allocation with the same rounding as creation.
func (e *Engine) UpdateProposal(ctx context.Context, creator, proposal solana.PublicKey, params UpdateProposalParams) error {
	return e.run(ctx, "update_proposal", func(tx pgx.Tx) error {
		rec, err := e.store.GetProposal(ctx, tx, proposal, store.LockUpdate)
		if err != nil {
			return err
		}
		if !rec.Creator.Equals(creator) {
			return protocol.ErrUnauthorizedCreator
		}
		if rec.Status != protocol.ProposalActive {
			return protocol.ErrProposalNotActive
		}

		epochAddr, _, err := addr.Epoch(e.cfg.ProgramID, rec.EpochID)
		if err != nil {
			return err
		}
		epoch, err := e.store.GetEpoch(ctx, tx, epochAddr, store.LockShare)
		if err != nil {
			return err
		}
		if epoch.Status != protocol.EpochActive {
			return protocol.ErrEpochNotActive
		}

		if params.TokenSymbol != nil {
			if len(*params.TokenSymbol) > protocol.MaxTokenSymbolLen {
				return protocol.ErrTokenSymbolTooLong
			}
			rec.TokenSymbol = *params.TokenSymbol
		}
		if params.Description != nil {
			if len(*params.Description) > protocol.MaxDescriptionLen {
				return protocol.ErrDescriptionTooLong
			}
			rec.Description = *params.Description
		}
		if params.ImageURL != nil {
			if len(*params.ImageURL) > protocol.MaxImageURLLen {
				return protocol.ErrImageURLTooLong
			}
			rec.ImageURL = params.ImageURL
		}
		if params.TotalSupply != nil {
			if *params.TotalSupply == 0 {
				return protocol.ErrTotalSupplyMustBePositive
			}
			rec.TotalSupply = *params.TotalSupply
		}
		if params.CreatorAllocation != nil {
			if *params.CreatorAllocation > protocol.MaxCreatorAllocation {
				return protocol.ErrCreatorAllocationTooHigh
			}
			rec.CreatorAllocation = *params.CreatorAllocation
			rec.SupporterAllocation = protocol.SupporterAllocation(*params.CreatorAllocation)
		}
		if params.LockupPeriod != nil {
			if *params.LockupPeriod < 0 {
				return protocol.ErrNegativeLockupPeriod
			}
			rec.LockupPeriod = *params.LockupPeriod
		}

		if err := e.store.UpdateProposal(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventProposalUpdated, map[string]any{
			"proposal": proposal.String(),
			"epoch_id": rec.EpochID,
		}); err != nil {
			return err
		}
		e.log.Info("engine: proposal updated", "proposal", proposal.String())
		return nil
	})
}

// FinalizeProposalStatus moves an active proposal to its terminal status
// once its epoch is closed. The transition is one-way.
func (e *Engine) FinalizeProposalStatus(ctx context.Context, authority, proposal solana.PublicKey, newStatus protocol.ProposalStatus) error {
	if !newStatus.Final() {
		return protocol.ErrInvalidProposalStatus
	}
	return e.run(ctx, "finalize_proposal_status", func(tx pgx.Tx) error {
		if err := e.requireAdmin(ctx, tx, authority); err != nil {
			return err
		}
		rec, err := e.store.GetProposal(ctx, tx, proposal, store.LockUpdate)
		if err != nil {
			return err
		}
		if rec.Status != protocol.ProposalActive {
			return protocol.ErrProposalAlreadyFinalized
		}

		epochAddr, _, err := addr.Epoch(e.cfg.ProgramID, rec.EpochID)
		if err != nil {
			return err
		}
		epoch, err := e.store.GetEpoch(ctx, tx, epochAddr, store.LockShare)
		if err != nil {
			return err
		}
		if epoch.Status != protocol.EpochClosed {
			return protocol.ErrEpochNotClosed
		}

		rec.Status = newStatus
		if err := e.store.UpdateProposal(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventProposalFinalized, map[string]any{
			"proposal": proposal.String(),
			"epoch_id": rec.EpochID,
			"status":   string(newStatus),
		}); err != nil {
			return err
		}
		e.log.Info("engine: proposal finalized", "proposal", proposal.String(), "status", string(newStatus))
		return nil
	})
}
