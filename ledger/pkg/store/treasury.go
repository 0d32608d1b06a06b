package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// SubAccount is one treasury fee-destination bucket.
type SubAccount struct {
	SolBalance     uint64
	LastWithdrawal int64
}

// TreasuryRecord is the singleton treasury with its five sub-accounts.
type TreasuryRecord struct {
	Address     solana.PublicKey
	Authority   solana.PublicKey
	Marketing   SubAccount
	Team        SubAccount
	Operations  SubAccount
	Investments SubAccount
	Crank       SubAccount
	Bump        uint8
}

func (s *Store) InsertTreasury(ctx context.Context, db DB, rec TreasuryRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO treasury (address, authority,
			marketing_lamports, marketing_last_withdrawal,
			team_lamports, team_last_withdrawal,
			operations_lamports, operations_last_withdrawal,
			investments_lamports, investments_last_withdrawal,
			crank_lamports, crank_last_withdrawal,
			bump)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, rec.Address.String(), rec.Authority.String(),
		int64(rec.Marketing.SolBalance), rec.Marketing.LastWithdrawal,
		int64(rec.Team.SolBalance), rec.Team.LastWithdrawal,
		int64(rec.Operations.SolBalance), rec.Operations.LastWithdrawal,
		int64(rec.Investments.SolBalance), rec.Investments.LastWithdrawal,
		int64(rec.Crank.SolBalance), rec.Crank.LastWithdrawal,
		int16(rec.Bump))
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrTreasuryAlreadyInitialized
		}
		return fmt.Errorf("failed to insert treasury: %w", err)
	}
	return nil
}

func (s *Store) GetTreasury(ctx context.Context, db DB, address solana.PublicKey, lock RowLock) (TreasuryRecord, error) {
	query := `
		SELECT address, authority,
			marketing_lamports, marketing_last_withdrawal,
			team_lamports, team_last_withdrawal,
			operations_lamports, operations_last_withdrawal,
			investments_lamports, investments_last_withdrawal,
			crank_lamports, crank_last_withdrawal,
			bump
		FROM treasury
		WHERE address = $1` + lock.clause()

	var rec TreasuryRecord
	var addrStr, authorityStr string
	var marketing, team, operations, investments, crank int64
	var bump int16

	err := db.QueryRow(ctx, query, address.String()).Scan(
		&addrStr, &authorityStr,
		&marketing, &rec.Marketing.LastWithdrawal,
		&team, &rec.Team.LastWithdrawal,
		&operations, &rec.Operations.LastWithdrawal,
		&investments, &rec.Investments.LastWithdrawal,
		&crank, &rec.Crank.LastWithdrawal,
		&bump)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TreasuryRecord{}, protocol.ErrTreasuryNotInitialized
		}
		return TreasuryRecord{}, fmt.Errorf("failed to get treasury: %w", err)
	}

	if rec.Address, err = solana.PublicKeyFromBase58(addrStr); err != nil {
		return TreasuryRecord{}, fmt.Errorf("failed to parse treasury address: %w", err)
	}
	if rec.Authority, err = solana.PublicKeyFromBase58(authorityStr); err != nil {
		return TreasuryRecord{}, fmt.Errorf("failed to parse treasury authority: %w", err)
	}
	rec.Marketing.SolBalance = uint64(marketing)
	rec.Team.SolBalance = uint64(team)
	rec.Operations.SolBalance = uint64(operations)
	rec.Investments.SolBalance = uint64(investments)
	rec.Crank.SolBalance = uint64(crank)
	rec.Bump = uint8(bump)
	return rec, nil
}

// UpdateTreasury persists every sub-account balance and withdrawal stamp.
func (s *Store) UpdateTreasury(ctx context.Context, db DB, rec TreasuryRecord) error {
	tag, err := db.Exec(ctx, `
		UPDATE treasury
		SET authority = $2,
			marketing_lamports = $3, marketing_last_withdrawal = $4,
			team_lamports = $5, team_last_withdrawal = $6,
			operations_lamports = $7, operations_last_withdrawal = $8,
			investments_lamports = $9, investments_last_withdrawal = $10,
			crank_lamports = $11, crank_last_withdrawal = $12
		WHERE address = $1
	`, rec.Address.String(), rec.Authority.String(),
		int64(rec.Marketing.SolBalance), rec.Marketing.LastWithdrawal,
		int64(rec.Team.SolBalance), rec.Team.LastWithdrawal,
		int64(rec.Operations.SolBalance), rec.Operations.LastWithdrawal,
		int64(rec.Investments.SolBalance), rec.Investments.LastWithdrawal,
		int64(rec.Crank.SolBalance), rec.Crank.LastWithdrawal)
	if err != nil {
		return fmt.Errorf("failed to update treasury: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrTreasuryNotInitialized
	}
	return nil
}
