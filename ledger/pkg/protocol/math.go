package protocol

import "math"

// CheckedAdd returns a+b or ErrCalculationOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrCalculationOverflow
	}
	return a + b, nil
}

// CheckedSub returns a-b or ErrCalculationOverflow on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrCalculationOverflow
	}
	return a - b, nil
}

// CheckedMul returns a*b or ErrCalculationOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrCalculationOverflow
	}
	return a * b, nil
}

// SupporterAllocation returns the supporter share of total supply for a given
// creator allocation: ceil((100 - creator) / 2). The rounding is part of the
// protocol; callers must never substitute plain subtraction.
func SupporterAllocation(creatorAllocation uint8) uint8 {
	return (100 - creatorAllocation + 1) / 2
}

// SupportFee computes the protocol fee for a support contribution and the net
// amount that reaches the proposal escrow. A fee that rounds to zero and an
// amount that cannot cover its fee are both rejected.
func SupportFee(amount uint64) (fee, net uint64, err error) {
	if amount == 0 {
		return 0, 0, ErrAmountMustBeGreaterThanZero
	}
	scaled, err := CheckedMul(amount, SupportFeeNumerator)
	if err != nil {
		return 0, 0, err
	}
	fee = scaled / SupportFeeDenominator
	if fee == 0 {
		return 0, 0, ErrFeeCannotBeZero
	}
	// Unreachable at 5/1000, where fee < amount whenever fee > 0; the guard
	// only bites if the ratio is ever raised to 100% or more.
	if amount <= fee {
		return 0, 0, ErrAmountTooLowToCoverFees
	}
	return fee, amount - fee, nil
}

// FeeSplit is a percentage-class fee divided across the five treasury
// sub-accounts. The shares always sum to the input fee exactly.
type FeeSplit struct {
	Marketing   uint64
	Team        uint64
	Operations  uint64
	Investments uint64
	Crank       uint64
}

// Total returns the sum of all shares.
func (s FeeSplit) Total() uint64 {
	return s.Marketing + s.Team + s.Operations + s.Investments + s.Crank
}

// SplitSupportFee distributes a percentage-class fee across the treasury
// sub-accounts. Each non-crank share is floor(fee * percent / 100); the crank
// share takes the remainder so no lamport is ever stranded.
func SplitSupportFee(fee uint64) (FeeSplit, error) {
	share := func(percent uint64) (uint64, error) {
		scaled, err := CheckedMul(fee, percent)
		if err != nil {
			return 0, err
		}
		return scaled / treasuryPercentTotal, nil
	}

	var split FeeSplit
	var err error
	if split.Marketing, err = share(TreasuryMarketingPercent); err != nil {
		return FeeSplit{}, err
	}
	if split.Team, err = share(TreasuryTeamPercent); err != nil {
		return FeeSplit{}, err
	}
	if split.Operations, err = share(TreasuryOperationsPercent); err != nil {
		return FeeSplit{}, err
	}
	if split.Investments, err = share(TreasuryInvestmentsPercent); err != nil {
		return FeeSplit{}, err
	}

	rest := fee
	for _, s := range []uint64{split.Marketing, split.Team, split.Operations, split.Investments} {
		if rest, err = CheckedSub(rest, s); err != nil {
			return FeeSplit{}, err
		}
	}
	split.Crank = rest
	return split, nil
}
