package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// LedgerEvent is a closure/finalization notification written in the same
// transaction as the mutation that caused it, for off-ledger consumers.
type LedgerEvent struct {
	ID      uuid.UUID
	Kind    string
	Payload json.RawMessage
}

// Event kinds.
const (
	EventEpochEnded        = "epoch_ended"
	EventEpochAutoEnded    = "epoch_auto_ended"
	EventEpochProcessed    = "epoch_processed"
	EventProposalUpdated   = "proposal_updated"
	EventProposalFinalized = "proposal_finalized"
	EventSupportReclaimed  = "support_reclaimed"
)

// InsertEvent records one notification. The payload must be JSON-encodable.
func (s *Store) InsertEvent(ctx context.Context, db DB, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO ledger_events (id, kind, payload)
		VALUES ($1, $2, $3)
	`, uuid.New(), kind, raw)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListEventsByKind returns events of one kind in emission order, newest
// last. Intended for tests and operational inspection.
func (s *Store) ListEventsByKind(ctx context.Context, db DB, kind string) ([]LedgerEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT id, kind, payload
		FROM ledger_events
		WHERE kind = $1
		ORDER BY emitted_at
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []LedgerEvent
	for rows.Next() {
		var ev LedgerEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
