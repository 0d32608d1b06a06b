package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// SupportRecord is one user's cumulative net contribution toward one
// proposal. RentLamports is the storage deposit charged at creation and
// refunded when the record is destroyed on reclaim.
type SupportRecord struct {
	Address      solana.PublicKey
	EpochID      uint64
	User         solana.PublicKey
	Proposal     solana.PublicKey
	Amount       uint64
	RentLamports uint64
	Bump         uint8
}

const supportColumns = `address, epoch_id, user_address, proposal_address, amount, rent_lamports, bump`

func scanSupport(row pgx.Row) (SupportRecord, error) {
	var rec SupportRecord
	var addrStr, userStr, proposalStr string
	var epochID, amount, rent int64
	var bump int16

	if err := row.Scan(&addrStr, &epochID, &userStr, &proposalStr, &amount, &rent, &bump); err != nil {
		return SupportRecord{}, err
	}

	var err error
	if rec.Address, err = solana.PublicKeyFromBase58(addrStr); err != nil {
		return SupportRecord{}, fmt.Errorf("failed to parse support address: %w", err)
	}
	if rec.User, err = solana.PublicKeyFromBase58(userStr); err != nil {
		return SupportRecord{}, fmt.Errorf("failed to parse support user: %w", err)
	}
	if rec.Proposal, err = solana.PublicKeyFromBase58(proposalStr); err != nil {
		return SupportRecord{}, fmt.Errorf("failed to parse support proposal: %w", err)
	}
	rec.EpochID = uint64(epochID)
	rec.Amount = uint64(amount)
	rec.RentLamports = uint64(rent)
	rec.Bump = uint8(bump)
	return rec, nil
}

func (s *Store) InsertSupport(ctx context.Context, db DB, rec SupportRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO supports (address, epoch_id, user_address, proposal_address, amount, rent_lamports, bump)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Address.String(), int64(rec.EpochID), rec.User.String(), rec.Proposal.String(),
		int64(rec.Amount), int64(rec.RentLamports), int16(rec.Bump))
	if err != nil {
		return fmt.Errorf("failed to insert support record: %w", err)
	}
	return nil
}

func (s *Store) GetSupport(ctx context.Context, db DB, address solana.PublicKey, lock RowLock) (SupportRecord, error) {
	query := `SELECT ` + supportColumns + ` FROM supports WHERE address = $1` + lock.clause()
	rec, err := scanSupport(db.QueryRow(ctx, query, address.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SupportRecord{}, protocol.ErrSupportNotFound
		}
		return SupportRecord{}, fmt.Errorf("failed to get support record: %w", err)
	}
	return rec, nil
}

// UpdateSupportAmount persists the cumulative contribution of one record.
func (s *Store) UpdateSupportAmount(ctx context.Context, db DB, address solana.PublicKey, amount uint64) error {
	tag, err := db.Exec(ctx, `
		UPDATE supports SET amount = $2 WHERE address = $1
	`, address.String(), int64(amount))
	if err != nil {
		return fmt.Errorf("failed to update support amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrSupportNotFound
	}
	return nil
}

// DeleteSupport destroys one support record. Destruction is what makes
// reclaim exactly-once: a second reclaim finds no record.
func (s *Store) DeleteSupport(ctx context.Context, db DB, address solana.PublicKey) error {
	tag, err := db.Exec(ctx, `DELETE FROM supports WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("failed to delete support record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrSupportNotFound
	}
	return nil
}
