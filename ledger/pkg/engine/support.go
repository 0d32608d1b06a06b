package engine

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/addr"
	"github.com/norugfun/ledger/ledger/pkg/metrics"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// SupportResult describes one accepted contribution.
type SupportResult struct {
	SupportAddress solana.PublicKey
	Fee            uint64
	Net            uint64
	// Total is the user's cumulative net contribution after this call.
	Total uint64
	// Created reports whether this call created the support record. Only the
	// creating call charges the record's storage deposit.
	Created bool
}

// SupportProposal contributes lamports to a proposal. The protocol fee is
// carved out of the amount and split across the treasury sub-accounts; the
// net remainder is escrowed by the proposal. A user's first contribution to
// a proposal creates their support record and charges its storage deposit on
// top of the contributed amount.
func (e *Engine) SupportProposal(ctx context.Context, user, proposal solana.PublicKey, amount uint64) (SupportResult, error) {
	fee, net, err := protocol.SupportFee(amount)
	if err != nil {
		return SupportResult{}, err
	}
	split, err := protocol.SplitSupportFee(fee)
	if err != nil {
		return SupportResult{}, err
	}

	var res SupportResult
	err = e.run(ctx, "support_proposal", func(tx pgx.Tx) error {
		prop, err := e.store.GetProposal(ctx, tx, proposal, store.LockUpdate)
		if err != nil {
			return err
		}
		if prop.Status != protocol.ProposalActive {
			return protocol.ErrProposalNotActive
		}

		epochAddr, _, err := addr.Epoch(e.cfg.ProgramID, prop.EpochID)
		if err != nil {
			return err
		}
		// The share lock holds the epoch open until this transaction commits;
		// a concurrent close waits behind it.
		epoch, err := e.store.GetEpoch(ctx, tx, epochAddr, store.LockShare)
		if err != nil {
			return err
		}
		if epoch.Status != protocol.EpochActive {
			return protocol.ErrEpochNotActive
		}
		if epoch.EpochID != prop.EpochID {
			return protocol.ErrProposalNotInEpoch
		}

		supportAddr, bump, err := addr.Support(e.cfg.ProgramID, prop.EpochID, user, proposal)
		if err != nil {
			return err
		}

		rec, err := e.store.GetSupport(ctx, tx, supportAddr, store.LockUpdate)
		switch {
		case errors.Is(err, protocol.ErrSupportNotFound):
			rec = store.SupportRecord{
				Address:      supportAddr,
				EpochID:      prop.EpochID,
				User:         user,
				Proposal:     proposal,
				RentLamports: e.cfg.SupportRecordRent,
				Bump:         bump,
			}
			if err := e.store.InsertSupport(ctx, tx, rec); err != nil {
				return err
			}
			if prop.TotalContributions, err = protocol.CheckedAdd(prop.TotalContributions, 1); err != nil {
				return err
			}
			res.Created = true
		case err != nil:
			return err
		}

		if rec.Amount, err = protocol.CheckedAdd(rec.Amount, net); err != nil {
			return err
		}
		if err := e.store.UpdateSupportAmount(ctx, tx, supportAddr, rec.Amount); err != nil {
			return err
		}

		if prop.SolRaised, err = protocol.CheckedAdd(prop.SolRaised, net); err != nil {
			return err
		}
		if prop.EscrowLamports, err = protocol.CheckedAdd(prop.EscrowLamports, net); err != nil {
			return err
		}
		if err := e.store.UpdateProposal(ctx, tx, prop); err != nil {
			return err
		}

		treasury, err := e.store.GetTreasury(ctx, tx, e.treasuryAddr, store.LockUpdate)
		if err != nil {
			return err
		}
		for _, c := range []struct {
			sub   *store.SubAccount
			share uint64
		}{
			{&treasury.Marketing, split.Marketing},
			{&treasury.Team, split.Team},
			{&treasury.Operations, split.Operations},
			{&treasury.Investments, split.Investments},
			{&treasury.Crank, split.Crank},
		} {
			if c.sub.SolBalance, err = protocol.CheckedAdd(c.sub.SolBalance, c.share); err != nil {
				return err
			}
		}
		if err := e.store.UpdateTreasury(ctx, tx, treasury); err != nil {
			return err
		}

		debit := amount
		if res.Created {
			if debit, err = protocol.CheckedAdd(debit, rec.RentLamports); err != nil {
				return err
			}
		}
		if err := e.store.DebitWallet(ctx, tx, user, debit); err != nil {
			return err
		}

		res.SupportAddress = supportAddr
		res.Fee = fee
		res.Net = net
		res.Total = rec.Amount
		return nil
	})
	if err != nil {
		return SupportResult{}, err
	}

	metrics.SupportVolumeLamports.Add(float64(amount))
	metrics.ObserveFeeSplit(split)
	e.log.Info("engine: proposal supported",
		"proposal", proposal.String(),
		"user", user.String(),
		"amount", amount,
		"fee", fee,
		"net", net,
		"created", res.Created,
	)
	return res, nil
}

// ReclaimSupport refunds a user's full recorded contribution from a rejected
// proposal's escrow, destroys the support record, and releases its storage
// deposit back to the user. Destruction makes the refund exactly-once.
func (e *Engine) ReclaimSupport(ctx context.Context, user, proposal solana.PublicKey) (uint64, error) {
	var reclaimed uint64
	err := e.run(ctx, "reclaim_support", func(tx pgx.Tx) error {
		prop, err := e.store.GetProposal(ctx, tx, proposal, store.LockUpdate)
		if err != nil {
			return err
		}
		if prop.Status != protocol.ProposalRejected {
			return protocol.ErrProposalNotRejected
		}

		epochAddr, _, err := addr.Epoch(e.cfg.ProgramID, prop.EpochID)
		if err != nil {
			return err
		}
		epoch, err := e.store.GetEpoch(ctx, tx, epochAddr, store.LockShare)
		if err != nil {
			return err
		}
		if !epoch.Processed {
			return protocol.ErrEpochNotProcessedYet
		}

		supportAddr, _, err := addr.Support(e.cfg.ProgramID, prop.EpochID, user, proposal)
		if err != nil {
			return err
		}
		rec, err := e.store.GetSupport(ctx, tx, supportAddr, store.LockUpdate)
		if err != nil {
			return err
		}
		if !rec.User.Equals(user) || !rec.Proposal.Equals(proposal) {
			return protocol.ErrProposalMismatch
		}
		if rec.Amount == 0 {
			return protocol.ErrNothingToReclaim
		}

		// While reclaim is the only escrow drain, the balance always covers a
		// live record; the check stands on its own if another drain is added.
		if prop.EscrowLamports < rec.Amount {
			return protocol.ErrInsufficientProposalFunds
		}
		if prop.EscrowLamports, err = protocol.CheckedSub(prop.EscrowLamports, rec.Amount); err != nil {
			return err
		}
		if err := e.store.UpdateProposal(ctx, tx, prop); err != nil {
			return err
		}
		if err := e.store.DeleteSupport(ctx, tx, supportAddr); err != nil {
			return err
		}

		refund, err := protocol.CheckedAdd(rec.Amount, rec.RentLamports)
		if err != nil {
			return err
		}
		if err := e.store.CreditWallet(ctx, tx, user, refund); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventSupportReclaimed, map[string]any{
			"proposal": proposal.String(),
			"user":     user.String(),
			"amount":   rec.Amount,
			"epoch_id": prop.EpochID,
		}); err != nil {
			return err
		}

		reclaimed = rec.Amount
		e.log.Info("engine: support reclaimed",
			"proposal", proposal.String(),
			"user", user.String(),
			"amount", rec.Amount,
			"rent_refund", rec.RentLamports,
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reclaimed, nil
}
