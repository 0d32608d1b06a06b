package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// EpochRecord is one time-boxed governance cycle. Times are unix seconds from
// the trusted external clock.
type EpochRecord struct {
	Address   solana.PublicKey
	EpochID   uint64
	StartTime int64
	EndTime   int64
	Status    protocol.EpochStatus
	Processed bool
	Bump      uint8
}

const epochColumns = `address, epoch_id, start_time, end_time, status, processed, bump`

func scanEpoch(row pgx.Row) (EpochRecord, error) {
	var rec EpochRecord
	var addrStr, status string
	var epochID int64
	var bump int16

	if err := row.Scan(&addrStr, &epochID, &rec.StartTime, &rec.EndTime, &status, &rec.Processed, &bump); err != nil {
		return EpochRecord{}, err
	}

	address, err := solana.PublicKeyFromBase58(addrStr)
	if err != nil {
		return EpochRecord{}, fmt.Errorf("failed to parse epoch address: %w", err)
	}
	rec.Address = address
	rec.EpochID = uint64(epochID)
	rec.Status = protocol.EpochStatus(status)
	rec.Bump = uint8(bump)
	return rec, nil
}

func (s *Store) InsertEpoch(ctx context.Context, db DB, rec EpochRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO epochs (address, epoch_id, start_time, end_time, status, processed, bump)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Address.String(), int64(rec.EpochID), rec.StartTime, rec.EndTime, string(rec.Status), rec.Processed, int16(rec.Bump))
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrEpochAlreadyExists
		}
		return fmt.Errorf("failed to insert epoch: %w", err)
	}
	return nil
}

// GetEpoch loads one epoch by address, holding the requested lock for the
// remainder of the transaction.
func (s *Store) GetEpoch(ctx context.Context, db DB, address solana.PublicKey, lock RowLock) (EpochRecord, error) {
	query := `SELECT ` + epochColumns + ` FROM epochs WHERE address = $1` + lock.clause()
	rec, err := scanEpoch(db.QueryRow(ctx, query, address.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EpochRecord{}, protocol.ErrEpochNotFound
		}
		return EpochRecord{}, fmt.Errorf("failed to get epoch: %w", err)
	}
	return rec, nil
}

// UpdateEpoch persists the mutable epoch fields (status, end time, processed
// flag).
func (s *Store) UpdateEpoch(ctx context.Context, db DB, rec EpochRecord) error {
	tag, err := db.Exec(ctx, `
		UPDATE epochs
		SET status = $2, end_time = $3, processed = $4
		WHERE address = $1
	`, rec.Address.String(), string(rec.Status), rec.EndTime, rec.Processed)
	if err != nil {
		return fmt.Errorf("failed to update epoch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrEpochNotFound
	}
	return nil
}

// ListDueEpochs returns active epochs whose end time is at or before now.
// Used by the watchdog to find epochs that need auto-closing.
func (s *Store) ListDueEpochs(ctx context.Context, db DB, now int64) ([]EpochRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT `+epochColumns+`
		FROM epochs
		WHERE status = $1 AND end_time <= $2
		ORDER BY epoch_id
	`, string(protocol.EpochActive), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due epochs: %w", err)
	}
	defer rows.Close()

	var out []EpochRecord
	for rows.Next() {
		rec, err := scanEpoch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan epoch: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListActiveEpochs returns all epochs currently in the Active state.
func (s *Store) ListActiveEpochs(ctx context.Context, db DB) ([]EpochRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT `+epochColumns+`
		FROM epochs
		WHERE status = $1
		ORDER BY epoch_id
	`, string(protocol.EpochActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active epochs: %w", err)
	}
	defer rows.Close()

	var out []EpochRecord
	for rows.Next() {
		rec, err := scanEpoch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan epoch: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
