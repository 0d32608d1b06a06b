package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// ConfigRecord is the singleton program configuration: the one on-ledger
// admin key every privileged operation is checked against.
type ConfigRecord struct {
	Address        solana.PublicKey
	AdminAuthority solana.PublicKey
	Bump           uint8
}

func (s *Store) InsertConfig(ctx context.Context, db DB, rec ConfigRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO program_config (address, admin_authority, bump)
		VALUES ($1, $2, $3)
	`, rec.Address.String(), rec.AdminAuthority.String(), int16(rec.Bump))
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrConfigAlreadyInitialized
		}
		return fmt.Errorf("failed to insert program config: %w", err)
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context, db DB, address solana.PublicKey) (ConfigRecord, error) {
	var rec ConfigRecord
	var addrStr, adminStr string
	var bump int16

	err := db.QueryRow(ctx, `
		SELECT address, admin_authority, bump
		FROM program_config
		WHERE address = $1
	`, address.String()).Scan(&addrStr, &adminStr, &bump)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConfigRecord{}, protocol.ErrConfigNotInitialized
		}
		return ConfigRecord{}, fmt.Errorf("failed to get program config: %w", err)
	}

	if rec.Address, err = solana.PublicKeyFromBase58(addrStr); err != nil {
		return ConfigRecord{}, fmt.Errorf("failed to parse config address: %w", err)
	}
	if rec.AdminAuthority, err = solana.PublicKeyFromBase58(adminStr); err != nil {
		return ConfigRecord{}, fmt.Errorf("failed to parse admin authority: %w", err)
	}
	rec.Bump = uint8(bump)
	return rec, nil
}
