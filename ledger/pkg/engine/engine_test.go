package engine_test

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/norugfun/ledger/ledger/pkg/engine"
	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
	ledgertesting "github.com/norugfun/ledger/ledger/testing"
	ledgertest "github.com/norugfun/ledger/utils/pkg/testing"
)

const fundLamports = 100_000_000

type testEnv struct {
	eng   *engine.Engine
	clock *clockwork.FakeClock
	admin solana.PublicKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := t.Context()
	log := ledgertest.NewLogger()

	db, err := ledgertesting.NewDB(ctx, log, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	pool := ledgertesting.NewTestPool(t, log, db)

	st, err := store.New(store.Config{Logger: log, Pool: pool})
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	admin := solana.NewWallet().PublicKey()

	eng, err := engine.New(engine.Config{
		Logger:    log,
		Store:     st,
		Clock:     clock,
		ProgramID: solana.NewWallet().PublicKey(),
	})
	require.NoError(t, err)

	require.NoError(t, eng.InitializeConfig(ctx, admin))
	require.NoError(t, eng.InitializeTreasury(ctx, admin))
	require.NoError(t, eng.InitializeTreasuryRoles(ctx, []solana.PublicKey{admin}))

	return &testEnv{eng: eng, clock: clock, admin: admin}
}

func (env *testEnv) fundedWallet(t *testing.T) solana.PublicKey {
	t.Helper()
	w := solana.NewWallet().PublicKey()
	require.NoError(t, env.eng.FundWallet(t.Context(), w, fundLamports))
	return w
}

// startEpoch opens an epoch running one hour from the fake clock's now.
func (env *testEnv) startEpoch(t *testing.T, epochID uint64) {
	t.Helper()
	now := env.clock.Now().Unix()
	_, err := env.eng.StartEpoch(t.Context(), env.admin, epochID, now, now+3600)
	require.NoError(t, err)
}

func (env *testEnv) createProposal(t *testing.T, creator solana.PublicKey, epochID uint64, name string, alloc uint8) solana.PublicKey {
	t.Helper()
	addr, err := env.eng.CreateProposal(t.Context(), creator, engine.CreateProposalParams{
		EpochID:           epochID,
		TokenName:         name,
		TokenSymbol:       "TKN",
		Description:       "a token launch",
		TotalSupply:       1_000_000,
		CreatorAllocation: alloc,
	})
	require.NoError(t, err)
	return addr
}

func TestLedger_Engine_Lifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	creator := env.fundedWallet(t)
	user := env.fundedWallet(t)

	env.startEpoch(t, 1)
	proposal := env.createProposal(t, creator, 1, "rugless", 10)

	prop, err := env.eng.GetProposal(ctx, proposal)
	require.NoError(t, err)
	require.Equal(t, uint8(10), prop.CreatorAllocation)
	require.Equal(t, uint8(45), prop.SupporterAllocation)
	require.Equal(t, protocol.ProposalActive, prop.Status)

	// Creation fee left the creator's wallet and landed in operations.
	creatorBal, err := env.eng.WalletBalance(ctx, creator)
	require.NoError(t, err)
	require.Equal(t, uint64(fundLamports-protocol.ProposalCreationFeeLamports), creatorBal)

	treasury, err := env.eng.GetTreasury(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ProposalCreationFeeLamports, treasury.Operations.SolBalance)

	// Two contributions by the same user accumulate into one record.
	res1, err := env.eng.SupportProposal(ctx, user, proposal, 1000)
	require.NoError(t, err)
	require.True(t, res1.Created)
	require.Equal(t, uint64(5), res1.Fee)
	require.Equal(t, uint64(995), res1.Net)

	res2, err := env.eng.SupportProposal(ctx, user, proposal, 1000)
	require.NoError(t, err)
	require.False(t, res2.Created)
	require.Equal(t, uint64(1990), res2.Total)

	prop, err = env.eng.GetProposal(ctx, proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(1), prop.TotalContributions)
	require.Equal(t, uint64(1990), prop.SolRaised)
	require.Equal(t, uint64(1990), prop.EscrowLamports)

	// Fee split: each contribution's 5 lamports split 0/2/0/2/1.
	treasury, err = env.eng.GetTreasury(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), treasury.Marketing.SolBalance)
	require.Equal(t, uint64(4), treasury.Team.SolBalance)
	require.Equal(t, protocol.ProposalCreationFeeLamports, treasury.Operations.SolBalance)
	require.Equal(t, uint64(4), treasury.Investments.SolBalance)
	require.Equal(t, uint64(2), treasury.Crank.SolBalance)

	userBal, err := env.eng.WalletBalance(ctx, user)
	require.NoError(t, err)
	require.Equal(t, uint64(fundLamports-2000-protocol.SupportRecordRentLamports), userBal)

	// Close, reject, settle, reclaim.
	require.NoError(t, env.eng.EndEpoch(ctx, env.admin, 1))
	require.NoError(t, env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalRejected))
	require.NoError(t, env.eng.MarkEpochProcessed(ctx, env.admin, 1))

	reclaimed, err := env.eng.ReclaimSupport(ctx, user, proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(1990), reclaimed)

	// The user ends down exactly the two extracted fees; the record's
	// storage deposit came back with the refund.
	userBal, err = env.eng.WalletBalance(ctx, user)
	require.NoError(t, err)
	require.Equal(t, uint64(fundLamports-10), userBal)

	prop, err = env.eng.GetProposal(ctx, proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(0), prop.EscrowLamports)

	// Exactly-once: the record is gone.
	_, err = env.eng.ReclaimSupport(ctx, user, proposal)
	require.ErrorIs(t, err, protocol.ErrSupportNotFound)

	_, err = env.eng.GetSupport(ctx, 1, user, proposal)
	require.ErrorIs(t, err, protocol.ErrSupportNotFound)
}

func TestLedger_Engine_EpochRules(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()
	now := env.clock.Now().Unix()

	t.Run("rejects inverted time range", func(t *testing.T) {
		_, err := env.eng.StartEpoch(ctx, env.admin, 1, now+3600, now)
		require.ErrorIs(t, err, protocol.ErrInvalidEpochTimeRange)

		_, err = env.eng.StartEpoch(ctx, env.admin, 1, now, now)
		require.ErrorIs(t, err, protocol.ErrInvalidEpochTimeRange)
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		intruder := solana.NewWallet().PublicKey()
		_, err := env.eng.StartEpoch(ctx, intruder, 1, now, now+3600)
		require.ErrorIs(t, err, protocol.ErrInvalidAuthority)
	})

	t.Run("rejects duplicate epoch id", func(t *testing.T) {
		env.startEpoch(t, 1)
		_, err := env.eng.StartEpoch(ctx, env.admin, 1, now, now+3600)
		require.ErrorIs(t, err, protocol.ErrEpochAlreadyExists)
	})

	t.Run("mark processed requires closed epoch", func(t *testing.T) {
		err := env.eng.MarkEpochProcessed(ctx, env.admin, 1)
		require.ErrorIs(t, err, protocol.ErrEpochNotClosed)
	})

	t.Run("end is one-way", func(t *testing.T) {
		require.NoError(t, env.eng.EndEpoch(ctx, env.admin, 1))
		err := env.eng.EndEpoch(ctx, env.admin, 1)
		require.ErrorIs(t, err, protocol.ErrEpochAlreadyInactive)
	})

	t.Run("mark processed is exactly-once", func(t *testing.T) {
		require.NoError(t, env.eng.MarkEpochProcessed(ctx, env.admin, 1))
		err := env.eng.MarkEpochProcessed(ctx, env.admin, 1)
		require.ErrorIs(t, err, protocol.ErrEpochAlreadyProcessed)
	})

	t.Run("unknown epoch", func(t *testing.T) {
		err := env.eng.EndEpoch(ctx, env.admin, 999)
		require.ErrorIs(t, err, protocol.ErrEpochNotFound)
	})
}

func TestLedger_Engine_AutoClose(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	env.startEpoch(t, 7)

	// Not yet due: untouched.
	closed, err := env.eng.AutoCheckAndClose(ctx, 7)
	require.NoError(t, err)
	require.False(t, closed)

	rec, err := env.eng.GetEpoch(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, protocol.EpochActive, rec.Status)

	// Past the end time: closes and records when.
	env.clock.Advance(2 * time.Hour)
	closed, err = env.eng.AutoCheckAndClose(ctx, 7)
	require.NoError(t, err)
	require.True(t, closed)

	rec, err = env.eng.GetEpoch(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, protocol.EpochClosed, rec.Status)
	require.Equal(t, env.clock.Now().Unix(), rec.EndTime)

	// Calling again after closure is a tolerated no-op for retries.
	closed, err = env.eng.AutoCheckAndClose(ctx, 7)
	require.NoError(t, err)
	require.False(t, closed)
}

func TestLedger_Engine_ProposalRules(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	creator := env.fundedWallet(t)
	env.startEpoch(t, 1)

	t.Run("caps creator allocation", func(t *testing.T) {
		_, err := env.eng.CreateProposal(ctx, creator, engine.CreateProposalParams{
			EpochID:           1,
			TokenName:         "greedy",
			TotalSupply:       1000,
			CreatorAllocation: 11,
		})
		require.ErrorIs(t, err, protocol.ErrCreatorAllocationTooHigh)
	})

	t.Run("requires a token name", func(t *testing.T) {
		_, err := env.eng.CreateProposal(ctx, creator, engine.CreateProposalParams{
			EpochID:     1,
			TotalSupply: 1000,
		})
		require.ErrorIs(t, err, protocol.ErrTokenNameMustNotBeEmpty)
	})

	t.Run("rejects duplicate launch terms", func(t *testing.T) {
		env.createProposal(t, creator, 1, "dupe", 5)
		_, err := env.eng.CreateProposal(ctx, creator, engine.CreateProposalParams{
			EpochID:           1,
			TokenName:         "dupe",
			TotalSupply:       1000,
			CreatorAllocation: 5,
		})
		require.ErrorIs(t, err, protocol.ErrProposalAlreadyExists)
	})

	t.Run("update is creator-only and recomputes allocation", func(t *testing.T) {
		proposal := env.createProposal(t, creator, 1, "mutable", 2)

		intruder := env.fundedWallet(t)
		newAlloc := uint8(7)
		err := env.eng.UpdateProposal(ctx, intruder, proposal, engine.UpdateProposalParams{
			CreatorAllocation: &newAlloc,
		})
		require.ErrorIs(t, err, protocol.ErrUnauthorizedCreator)

		require.NoError(t, env.eng.UpdateProposal(ctx, creator, proposal, engine.UpdateProposalParams{
			CreatorAllocation: &newAlloc,
		}))

		rec, err := env.eng.GetProposal(ctx, proposal)
		require.NoError(t, err)
		require.Equal(t, uint8(7), rec.CreatorAllocation)
		require.Equal(t, uint8(47), rec.SupporterAllocation)
	})

	t.Run("finalize gates on epoch closure and is one-way", func(t *testing.T) {
		proposal := env.createProposal(t, creator, 1, "final", 5)

		err := env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalActive)
		require.ErrorIs(t, err, protocol.ErrInvalidProposalStatus)

		err = env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalValidated)
		require.ErrorIs(t, err, protocol.ErrEpochNotClosed)

		require.NoError(t, env.eng.EndEpoch(ctx, env.admin, 1))
		require.NoError(t, env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalValidated))

		err = env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalRejected)
		require.ErrorIs(t, err, protocol.ErrProposalAlreadyFinalized)

		// No more edits once final.
		symbol := "NOPE"
		err = env.eng.UpdateProposal(ctx, creator, proposal, engine.UpdateProposalParams{TokenSymbol: &symbol})
		require.ErrorIs(t, err, protocol.ErrProposalNotActive)
	})

	t.Run("creation requires an active epoch", func(t *testing.T) {
		_, err := env.eng.CreateProposal(ctx, creator, engine.CreateProposalParams{
			EpochID:           1,
			TokenName:         "late",
			TotalSupply:       1000,
			CreatorAllocation: 5,
		})
		require.ErrorIs(t, err, protocol.ErrEpochNotActive)
	})
}

func TestLedger_Engine_SupportRules(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	creator := env.fundedWallet(t)
	env.startEpoch(t, 1)
	proposal := env.createProposal(t, creator, 1, "popular", 5)

	t.Run("rejects zero amount", func(t *testing.T) {
		user := env.fundedWallet(t)
		_, err := env.eng.SupportProposal(ctx, user, proposal, 0)
		require.ErrorIs(t, err, protocol.ErrAmountMustBeGreaterThanZero)
	})

	t.Run("rejects amounts whose fee rounds to zero", func(t *testing.T) {
		user := env.fundedWallet(t)
		_, err := env.eng.SupportProposal(ctx, user, proposal, 100)
		require.ErrorIs(t, err, protocol.ErrFeeCannotBeZero)
	})

	t.Run("requires wallet funds for amount plus deposit", func(t *testing.T) {
		poor := solana.NewWallet().PublicKey()
		require.NoError(t, env.eng.FundWallet(ctx, poor, 1000))
		_, err := env.eng.SupportProposal(ctx, poor, proposal, 1000)
		require.ErrorIs(t, err, protocol.ErrInsufficientFunds)
	})

	t.Run("counts contributions per distinct user", func(t *testing.T) {
		alice := env.fundedWallet(t)
		bob := env.fundedWallet(t)

		_, err := env.eng.SupportProposal(ctx, alice, proposal, 1000)
		require.NoError(t, err)
		_, err = env.eng.SupportProposal(ctx, alice, proposal, 2000)
		require.NoError(t, err)
		_, err = env.eng.SupportProposal(ctx, bob, proposal, 1000)
		require.NoError(t, err)

		rec, err := env.eng.GetProposal(ctx, proposal)
		require.NoError(t, err)
		require.Equal(t, uint64(2), rec.TotalContributions)

		aliceRec, err := env.eng.GetSupport(ctx, 1, alice, proposal)
		require.NoError(t, err)
		require.Equal(t, uint64(995+1990), aliceRec.Amount)
	})

	t.Run("rejects once the epoch closes", func(t *testing.T) {
		user := env.fundedWallet(t)
		require.NoError(t, env.eng.EndEpoch(ctx, env.admin, 1))
		_, err := env.eng.SupportProposal(ctx, user, proposal, 1000)
		require.ErrorIs(t, err, protocol.ErrEpochNotActive)
	})
}

func TestLedger_Engine_ReclaimRules(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	creator := env.fundedWallet(t)
	user := env.fundedWallet(t)
	env.startEpoch(t, 1)
	proposal := env.createProposal(t, creator, 1, "doomed", 5)

	_, err := env.eng.SupportProposal(ctx, user, proposal, 1000)
	require.NoError(t, err)

	t.Run("requires rejected proposal", func(t *testing.T) {
		_, err := env.eng.ReclaimSupport(ctx, user, proposal)
		require.ErrorIs(t, err, protocol.ErrProposalNotRejected)
	})

	require.NoError(t, env.eng.EndEpoch(ctx, env.admin, 1))
	require.NoError(t, env.eng.FinalizeProposalStatus(ctx, env.admin, proposal, protocol.ProposalRejected))

	t.Run("requires processed epoch", func(t *testing.T) {
		_, err := env.eng.ReclaimSupport(ctx, user, proposal)
		require.ErrorIs(t, err, protocol.ErrEpochNotProcessedYet)
	})

	require.NoError(t, env.eng.MarkEpochProcessed(ctx, env.admin, 1))

	t.Run("non-supporter has nothing to reclaim", func(t *testing.T) {
		stranger := env.fundedWallet(t)
		_, err := env.eng.ReclaimSupport(ctx, stranger, proposal)
		require.ErrorIs(t, err, protocol.ErrSupportNotFound)
	})

	t.Run("refunds amount and deposit exactly once", func(t *testing.T) {
		before, err := env.eng.WalletBalance(ctx, user)
		require.NoError(t, err)

		reclaimed, err := env.eng.ReclaimSupport(ctx, user, proposal)
		require.NoError(t, err)
		require.Equal(t, uint64(995), reclaimed)

		after, err := env.eng.WalletBalance(ctx, user)
		require.NoError(t, err)
		require.Equal(t, before+995+protocol.SupportRecordRentLamports, after)

		_, err = env.eng.ReclaimSupport(ctx, user, proposal)
		require.ErrorIs(t, err, protocol.ErrSupportNotFound)
	})
}

func TestLedger_Engine_Roles(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	second := solana.NewWallet().PublicKey()
	third := solana.NewWallet().PublicKey()

	t.Run("admin list is bounded", func(t *testing.T) {
		require.NoError(t, env.eng.AddAdmin(ctx, env.admin, second))
		require.NoError(t, env.eng.AddAdmin(ctx, env.admin, third))

		err := env.eng.AddAdmin(ctx, env.admin, solana.NewWallet().PublicKey())
		require.ErrorIs(t, err, protocol.ErrTooManyAdmins)

		err = env.eng.AddAdmin(ctx, env.admin, second)
		require.ErrorIs(t, err, protocol.ErrAdminAlreadyExists)
	})

	t.Run("only listed authorities manage the registry", func(t *testing.T) {
		intruder := solana.NewWallet().PublicKey()
		err := env.eng.AddAdmin(ctx, intruder, solana.NewWallet().PublicKey())
		require.ErrorIs(t, err, protocol.ErrUnauthorized)
	})

	t.Run("at least one admin remains", func(t *testing.T) {
		require.NoError(t, env.eng.RemoveAdmin(ctx, env.admin, third))
		require.NoError(t, env.eng.RemoveAdmin(ctx, env.admin, second))

		err := env.eng.RemoveAdmin(ctx, env.admin, env.admin)
		require.ErrorIs(t, err, protocol.ErrLastAdmin)

		err = env.eng.RemoveAdmin(ctx, env.admin, third)
		require.ErrorIs(t, err, protocol.ErrAdminNotFound)
	})

	t.Run("grants reject duplicates and invalid categories", func(t *testing.T) {
		holder := solana.NewWallet().PublicKey()
		grant := store.RoleGrant{
			Holder:   holder,
			RoleType: protocol.RoleWithdrawer,
			Category: protocol.CategoryMarketing,
		}
		require.NoError(t, env.eng.AddTreasuryRole(ctx, env.admin, grant))

		err := env.eng.AddTreasuryRole(ctx, env.admin, grant)
		require.ErrorIs(t, err, protocol.ErrRoleAlreadyExists)

		err = env.eng.AddTreasuryRole(ctx, env.admin, store.RoleGrant{
			Holder:   holder,
			RoleType: protocol.RoleWithdrawer,
			Category: "yachts",
		})
		require.ErrorIs(t, err, protocol.ErrInvalidCategory)

		err = env.eng.AddTreasuryRole(ctx, env.admin, store.RoleGrant{
			Holder:   holder,
			RoleType: protocol.RoleAdmin,
			Category: protocol.CategoryMarketing,
		})
		require.ErrorIs(t, err, protocol.ErrInvalidCategory)
	})

	t.Run("removal of an absent grant is a no-op", func(t *testing.T) {
		err := env.eng.RemoveTreasuryRole(ctx, env.admin, solana.NewWallet().PublicKey(), protocol.RoleWithdrawer, protocol.CategoryTeam)
		require.NoError(t, err)
	})

	t.Run("update requires an existing grant", func(t *testing.T) {
		limit := uint64(500)
		err := env.eng.UpdateTreasuryRole(ctx, env.admin, store.RoleGrant{
			Holder:          solana.NewWallet().PublicKey(),
			RoleType:        protocol.RoleWithdrawer,
			Category:        protocol.CategoryTeam,
			WithdrawalLimit: &limit,
		})
		require.ErrorIs(t, err, protocol.ErrRoleNotFound)
	})

	t.Run("grant list is capacity-bounded", func(t *testing.T) {
		_, grants, err := env.eng.GetTreasuryRoles(ctx)
		require.NoError(t, err)

		for i := len(grants); i < protocol.MaxTreasuryRoles; i++ {
			require.NoError(t, env.eng.AddTreasuryRole(ctx, env.admin, store.RoleGrant{
				Holder:   solana.NewWallet().PublicKey(),
				RoleType: protocol.RoleAdmin,
			}))
		}

		err = env.eng.AddTreasuryRole(ctx, env.admin, store.RoleGrant{
			Holder:   solana.NewWallet().PublicKey(),
			RoleType: protocol.RoleAdmin,
		})
		require.ErrorIs(t, err, protocol.ErrRolesCapacityExceeded)
	})
}

func TestLedger_Engine_InitOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := t.Context()

	err := env.eng.InitializeConfig(ctx, solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, protocol.ErrConfigAlreadyInitialized)

	err = env.eng.InitializeTreasury(ctx, solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, protocol.ErrTreasuryAlreadyInitialized)

	err = env.eng.InitializeTreasuryRoles(ctx, []solana.PublicKey{solana.NewWallet().PublicKey()})
	require.ErrorIs(t, err, protocol.ErrRolesAlreadyInitialized)
}
