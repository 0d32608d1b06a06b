package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/addr"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// StartEpoch opens a new governance cycle. Only the admin authority may
// start epochs, and the time range must be strictly ordered.
func (e *Engine) StartEpoch(ctx context.Context, authority solana.PublicKey, epochID uint64, startTime, endTime int64) (solana.PublicKey, error) {
	if startTime >= endTime {
		return solana.PublicKey{}, protocol.ErrInvalidEpochTimeRange
	}
	address, bump, err := addr.Epoch(e.cfg.ProgramID, epochID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	err = e.run(ctx, "start_epoch", func(tx pgx.Tx) error {
		if err := e.requireAdmin(ctx, tx, authority); err != nil {
			return err
		}
		if err := e.store.InsertEpoch(ctx, tx, store.EpochRecord{
			Address:   address,
			EpochID:   epochID,
			StartTime: startTime,
			EndTime:   endTime,
			Status:    protocol.EpochActive,
			Bump:      bump,
		}); err != nil {
			return err
		}
		e.log.Info("engine: epoch started", "epoch_id", epochID, "start", startTime, "end", endTime)
		return nil
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	return address, nil
}

// EndEpoch closes an epoch explicitly. The recorded end time is overwritten
// with the close time so downstream consumers see when support actually
// stopped.
func (e *Engine) EndEpoch(ctx context.Context, authority solana.PublicKey, epochID uint64) error {
	address, _, err := addr.Epoch(e.cfg.ProgramID, epochID)
	if err != nil {
		return err
	}
	return e.run(ctx, "end_epoch", func(tx pgx.Tx) error {
		if err := e.requireAdmin(ctx, tx, authority); err != nil {
			return err
		}
		rec, err := e.store.GetEpoch(ctx, tx, address, store.LockUpdate)
		if err != nil {
			return err
		}
		if rec.EpochID != epochID {
			return protocol.ErrInvalidEpochID
		}
		if rec.Status != protocol.EpochActive {
			return protocol.ErrEpochAlreadyInactive
		}

		closedAt := e.now()
		rec.Status = protocol.EpochClosed
		rec.EndTime = closedAt
		if err := e.store.UpdateEpoch(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventEpochEnded, map[string]any{
			"epoch_id": epochID,
			"ended_at": closedAt,
		}); err != nil {
			return err
		}
		e.log.Info("engine: epoch ended", "epoch_id", epochID, "ended_at", closedAt)
		return nil
	})
}

// AutoCheckAndClose closes the epoch if its scheduled end time has passed.
// It is safe to call at any time: an epoch that is already closed, or not
// yet due, is left untouched and reported as not closed.
func (e *Engine) AutoCheckAndClose(ctx context.Context, epochID uint64) (bool, error) {
	address, _, err := addr.Epoch(e.cfg.ProgramID, epochID)
	if err != nil {
		return false, err
	}
	var closed bool
	err = e.run(ctx, "auto_check_and_close", func(tx pgx.Tx) error {
		rec, err := e.store.GetEpoch(ctx, tx, address, store.LockUpdate)
		if err != nil {
			return err
		}
		if rec.Status != protocol.EpochActive {
			return nil
		}
		now := e.now()
		if now < rec.EndTime {
			return nil
		}

		rec.Status = protocol.EpochClosed
		rec.EndTime = now
		if err := e.store.UpdateEpoch(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventEpochAutoEnded, map[string]any{
			"epoch_id": epochID,
			"ended_at": now,
		}); err != nil {
			return err
		}
		closed = true
		e.log.Info("engine: epoch auto-closed", "epoch_id", epochID, "ended_at", now)
		return nil
	})
	return closed, err
}

// MarkEpochProcessed flags a closed epoch as settled, unlocking reclaims for
// rejected proposals in it. It succeeds at most once per epoch.
func (e *Engine) MarkEpochProcessed(ctx context.Context, authority solana.PublicKey, epochID uint64) error {
	address, _, err := addr.Epoch(e.cfg.ProgramID, epochID)
	if err != nil {
		return err
	}
	return e.run(ctx, "mark_epoch_processed", func(tx pgx.Tx) error {
		if err := e.requireAdmin(ctx, tx, authority); err != nil {
			return err
		}
		rec, err := e.store.GetEpoch(ctx, tx, address, store.LockUpdate)
		if err != nil {
			return err
		}
		if rec.Status != protocol.EpochClosed {
			return protocol.ErrEpochNotClosed
		}
		if rec.Processed {
			return protocol.ErrEpochAlreadyProcessed
		}

		rec.Processed = true
		if err := e.store.UpdateEpoch(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.store.InsertEvent(ctx, tx, store.EventEpochProcessed, map[string]any{
			"epoch_id":     epochID,
			"processed_at": e.now(),
		}); err != nil {
			return err
		}
		e.log.Info("engine: epoch marked processed", "epoch_id", epochID)
		return nil
	})
}
