package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
	ledgertesting "github.com/norugfun/ledger/ledger/testing"
	ledgertest "github.com/norugfun/ledger/utils/pkg/testing"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	log := ledgertest.NewLogger()

	db, err := ledgertesting.NewDB(t.Context(), log, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	pool := ledgertesting.NewTestPool(t, log, db)

	st, err := store.New(store.Config{Logger: log, Pool: pool})
	require.NoError(t, err)
	return st
}

func TestLedger_Store_WithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	address := solana.NewWallet().PublicKey()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx pgx.Tx) error {
		if err := st.InsertEpoch(ctx, tx, store.EpochRecord{
			Address:   address,
			EpochID:   1,
			StartTime: 100,
			EndTime:   200,
			Status:    protocol.EpochActive,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.GetEpoch(ctx, st.Pool(), address, store.LockNone)
	require.ErrorIs(t, err, protocol.ErrEpochNotFound)
}

func TestLedger_Store_EpochRoundTrip(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	rec := store.EpochRecord{
		Address:   solana.NewWallet().PublicKey(),
		EpochID:   42,
		StartTime: 1_700_000_000,
		EndTime:   1_700_003_600,
		Status:    protocol.EpochActive,
		Bump:      254,
	}
	require.NoError(t, st.InsertEpoch(ctx, st.Pool(), rec))

	got, err := st.GetEpoch(ctx, st.Pool(), rec.Address, store.LockNone)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	// Same epoch id under a different address still collides.
	err = st.InsertEpoch(ctx, st.Pool(), store.EpochRecord{
		Address: solana.NewWallet().PublicKey(),
		EpochID: 42,
		Status:  protocol.EpochActive,
	})
	require.ErrorIs(t, err, protocol.ErrEpochAlreadyExists)
}

func TestLedger_Store_EpochShareLockBlocksClose(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	rec := store.EpochRecord{
		Address:   solana.NewWallet().PublicKey(),
		EpochID:   11,
		StartTime: 100,
		EndTime:   200,
		Status:    protocol.EpochActive,
	}
	require.NoError(t, st.InsertEpoch(ctx, st.Pool(), rec))

	// A contribution-style transaction holds the epoch open with a share
	// lock while it writes its other rows.
	reader, err := st.Pool().Begin(ctx)
	require.NoError(t, err)
	defer reader.Rollback(ctx)

	held, err := st.GetEpoch(ctx, reader, rec.Address, store.LockShare)
	require.NoError(t, err)
	require.Equal(t, protocol.EpochActive, held.Status)

	// A concurrent close needs the exclusive lock and must wait until the
	// share lock is released.
	closed := make(chan error, 1)
	go func() {
		closed <- st.WithTx(ctx, func(tx pgx.Tx) error {
			cur, err := st.GetEpoch(ctx, tx, rec.Address, store.LockUpdate)
			if err != nil {
				return err
			}
			cur.Status = protocol.EpochClosed
			return st.UpdateEpoch(ctx, tx, cur)
		})
	}()

	select {
	case err := <-closed:
		t.Fatalf("epoch closed while the share lock was held: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, reader.Commit(ctx))
	require.NoError(t, <-closed)

	got, err := st.GetEpoch(ctx, st.Pool(), rec.Address, store.LockNone)
	require.NoError(t, err)
	require.Equal(t, protocol.EpochClosed, got.Status)
}

func TestLedger_Store_WalletDebitIsGuarded(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	wallet := solana.NewWallet().PublicKey()

	// Missing rows read as zero.
	balance, err := st.WalletBalance(ctx, st.Pool(), wallet)
	require.NoError(t, err)
	require.Zero(t, balance)

	err = st.DebitWallet(ctx, st.Pool(), wallet, 1)
	require.ErrorIs(t, err, protocol.ErrInsufficientFunds)

	require.NoError(t, st.CreditWallet(ctx, st.Pool(), wallet, 1000))
	require.NoError(t, st.CreditWallet(ctx, st.Pool(), wallet, 500))

	err = st.DebitWallet(ctx, st.Pool(), wallet, 1501)
	require.ErrorIs(t, err, protocol.ErrInsufficientFunds)

	require.NoError(t, st.DebitWallet(ctx, st.Pool(), wallet, 1500))

	balance, err = st.WalletBalance(ctx, st.Pool(), wallet)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestLedger_Store_SupportDeleteIsFinal(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	proposal := store.ProposalRecord{
		Address:     solana.NewWallet().PublicKey(),
		EpochID:     1,
		Creator:     solana.NewWallet().PublicKey(),
		TokenName:   "anchor",
		TokenSymbol: "ANC",
		Description: "a token launch",
		TotalSupply: 1000,
		Status:      protocol.ProposalActive,
	}
	require.NoError(t, st.InsertProposal(ctx, st.Pool(), proposal))

	rec := store.SupportRecord{
		Address:      solana.NewWallet().PublicKey(),
		EpochID:      1,
		User:         solana.NewWallet().PublicKey(),
		Proposal:     proposal.Address,
		Amount:       995,
		RentLamports: 1_503_360,
		Bump:         250,
	}
	require.NoError(t, st.InsertSupport(ctx, st.Pool(), rec))

	got, err := st.GetSupport(ctx, st.Pool(), rec.Address, store.LockNone)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	require.NoError(t, st.DeleteSupport(ctx, st.Pool(), rec.Address))

	_, err = st.GetSupport(ctx, st.Pool(), rec.Address, store.LockNone)
	require.ErrorIs(t, err, protocol.ErrSupportNotFound)

	err = st.DeleteSupport(ctx, st.Pool(), rec.Address)
	require.ErrorIs(t, err, protocol.ErrSupportNotFound)
}

func TestLedger_Store_EventsRecorded(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, st.InsertEvent(ctx, st.Pool(), store.EventEpochEnded, map[string]any{
		"epoch_id": 7,
	}))
	require.NoError(t, st.InsertEvent(ctx, st.Pool(), store.EventEpochEnded, map[string]any{
		"epoch_id": 8,
	}))

	events, err := st.ListEventsByKind(ctx, st.Pool(), store.EventEpochEnded)
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = st.ListEventsByKind(ctx, st.Pool(), store.EventSupportReclaimed)
	require.NoError(t, err)
	require.Empty(t, events)
}
