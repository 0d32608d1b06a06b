package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// Wallet rows mirror the lamport balances the host chain holds for external
// identities and record escrows. Fund-moving operations debit and credit
// them inside the same transaction as the record mutations they accompany.

// WalletBalance returns the lamports held by one address. A missing row is a
// zero balance.
func (s *Store) WalletBalance(ctx context.Context, db DB, address solana.PublicKey) (uint64, error) {
	var lamports int64
	err := db.QueryRow(ctx, `
		SELECT lamports FROM wallets WHERE address = $1
	`, address.String()).Scan(&lamports)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get wallet balance: %w", err)
	}
	return uint64(lamports), nil
}

// CreditWallet adds lamports to an address, creating the row if needed.
func (s *Store) CreditWallet(ctx context.Context, db DB, address solana.PublicKey, lamports uint64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wallets (address, lamports)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET lamports = wallets.lamports + EXCLUDED.lamports
	`, address.String(), int64(lamports))
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return nil
}

// DebitWallet removes lamports from an address. The guarded update makes an
// underfunded (or missing) wallet fail without mutating anything.
func (s *Store) DebitWallet(ctx context.Context, db DB, address solana.PublicKey, lamports uint64) error {
	tag, err := db.Exec(ctx, `
		UPDATE wallets SET lamports = lamports - $2
		WHERE address = $1 AND lamports >= $2
	`, address.String(), int64(lamports))
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrInsufficientFunds
	}
	return nil
}
