package addr

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

var testProgram = solana.MustPublicKeyFromBase58("3HBzNutk8DrRfffCS74S55adJAjgY8NHrWXgRtABaSbF")

func TestLedger_Addr_Deterministic(t *testing.T) {
	t.Parallel()

	a1, bump1, err := Epoch(testProgram, 42)
	require.NoError(t, err)
	a2, bump2, err := Epoch(testProgram, 42)
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, bump1, bump2)
}

func TestLedger_Addr_DistinctParentsDistinctAddresses(t *testing.T) {
	t.Parallel()

	creator := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	seen := map[solana.PublicKey]string{}
	record := func(name string, a solana.PublicKey) {
		prev, dup := seen[a]
		require.False(t, dup, "address collision between %s and %s", prev, name)
		seen[a] = name
	}

	for _, epochID := range []uint64{0, 1, 2, 1 << 40} {
		a, _, err := Epoch(testProgram, epochID)
		require.NoError(t, err)
		record("epoch", a)
	}

	p1, _, err := Proposal(testProgram, creator, 1, "MOON")
	require.NoError(t, err)
	record("proposal-moon", p1)

	p2, _, err := Proposal(testProgram, creator, 1, "MARS")
	require.NoError(t, err)
	record("proposal-mars", p2)

	p3, _, err := Proposal(testProgram, other, 1, "MOON")
	require.NoError(t, err)
	record("proposal-other-creator", p3)

	p4, _, err := Proposal(testProgram, creator, 2, "MOON")
	require.NoError(t, err)
	record("proposal-other-epoch", p4)

	s1, _, err := Support(testProgram, 1, creator, p1)
	require.NoError(t, err)
	record("support", s1)

	s2, _, err := Support(testProgram, 1, other, p1)
	require.NoError(t, err)
	record("support-other-user", s2)

	cfg, _, err := Config(testProgram)
	require.NoError(t, err)
	record("config", cfg)

	tr, _, err := Treasury(testProgram)
	require.NoError(t, err)
	record("treasury", tr)

	roles, _, err := TreasuryRoles(testProgram)
	require.NoError(t, err)
	record("treasury-roles", roles)
}

func TestLedger_Addr_ProgramScoped(t *testing.T) {
	t.Parallel()

	otherProgram := solana.NewWallet().PublicKey()

	a1, _, err := Treasury(testProgram)
	require.NoError(t, err)
	a2, _, err := Treasury(otherProgram)
	require.NoError(t, err)
	require.NotEqual(t, a1, a2)
}
