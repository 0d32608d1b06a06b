package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedger_Protocol_SupporterAllocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		creator  uint8
		expected uint8
	}{
		{0, 50},
		{1, 50}, // ceil(99/2)
		{2, 49},
		{7, 47}, // ceil(93/2)
		{9, 46},
		{10, 45},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, SupporterAllocation(tc.creator), "creator_allocation=%d", tc.creator)
	}
}

func TestLedger_Protocol_SupportFee(t *testing.T) {
	t.Parallel()

	t.Run("nominal amount", func(t *testing.T) {
		t.Parallel()
		fee, net, err := SupportFee(1000)
		require.NoError(t, err)
		require.Equal(t, uint64(5), fee)
		require.Equal(t, uint64(995), net)
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		t.Parallel()
		_, _, err := SupportFee(0)
		require.ErrorIs(t, err, ErrAmountMustBeGreaterThanZero)
		require.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("fee rounds to zero", func(t *testing.T) {
		t.Parallel()
		_, _, err := SupportFee(100)
		require.ErrorIs(t, err, ErrFeeCannotBeZero)
	})

	t.Run("smallest amount with a nonzero fee", func(t *testing.T) {
		t.Parallel()
		fee, net, err := SupportFee(200)
		require.NoError(t, err)
		require.Equal(t, uint64(1), fee)
		require.Equal(t, uint64(199), net)
	})

	t.Run("fee never consumes the amount at the protocol ratio", func(t *testing.T) {
		t.Parallel()
		// Pins the guard order: every amount with a nonzero fee clears the
		// amount <= fee guard, so AmountTooLowToCoverFees cannot fire at
		// 5/1000 and net is always positive.
		for _, amount := range []uint64{200, 201, 999, 1000, 1_000_000, 5_000_000_000} {
			fee, net, err := SupportFee(amount)
			require.NoError(t, err, "amount=%d", amount)
			require.Less(t, fee, amount, "amount=%d", amount)
			require.Positive(t, net, "amount=%d", amount)
			require.Equal(t, amount, fee+net, "amount=%d", amount)
		}
	})

	t.Run("overflow in fee scaling", func(t *testing.T) {
		t.Parallel()
		_, _, err := SupportFee(math.MaxUint64)
		require.ErrorIs(t, err, ErrCalculationOverflow)
		require.Equal(t, KindArithmetic, KindOf(err))
	})
}

func TestLedger_Protocol_SplitSupportFee(t *testing.T) {
	t.Parallel()

	t.Run("percent constants sum to 100", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, uint64(100), uint64(treasuryPercentTotal))
	})

	t.Run("nominal split", func(t *testing.T) {
		t.Parallel()
		split, err := SplitSupportFee(1000)
		require.NoError(t, err)
		require.Equal(t, uint64(100), split.Marketing)
		require.Equal(t, uint64(400), split.Team)
		require.Equal(t, uint64(50), split.Operations)
		require.Equal(t, uint64(440), split.Investments)
		require.Equal(t, uint64(10), split.Crank)
	})

	t.Run("crank absorbs rounding dust", func(t *testing.T) {
		t.Parallel()
		// Fees that do not divide evenly across the percentages.
		for _, fee := range []uint64{1, 3, 7, 13, 99, 101, 997, 12345, 5_000_001} {
			split, err := SplitSupportFee(fee)
			require.NoError(t, err)
			require.Equal(t, fee, split.Total(), "fee=%d", fee)
		}
	})

	t.Run("overflow in share scaling", func(t *testing.T) {
		t.Parallel()
		_, err := SplitSupportFee(math.MaxUint64)
		require.ErrorIs(t, err, ErrCalculationOverflow)
	})
}

func TestLedger_Protocol_CheckedArithmetic(t *testing.T) {
	t.Parallel()

	t.Run("add overflow", func(t *testing.T) {
		t.Parallel()
		_, err := CheckedAdd(math.MaxUint64, 1)
		require.ErrorIs(t, err, ErrCalculationOverflow)

		sum, err := CheckedAdd(math.MaxUint64-1, 1)
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), sum)
	})

	t.Run("sub underflow", func(t *testing.T) {
		t.Parallel()
		_, err := CheckedSub(1, 2)
		require.ErrorIs(t, err, ErrCalculationOverflow)
	})

	t.Run("mul overflow", func(t *testing.T) {
		t.Parallel()
		_, err := CheckedMul(math.MaxUint64/2+1, 2)
		require.ErrorIs(t, err, ErrCalculationOverflow)

		product, err := CheckedMul(0, math.MaxUint64)
		require.NoError(t, err)
		require.Zero(t, product)
	})
}
