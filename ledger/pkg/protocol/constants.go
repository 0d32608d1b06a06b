package protocol

// Protocol-wide constants. These are fixed terms of the launch platform, not
// tunables: changing any of them changes the meaning of already-persisted
// records.
const (
	// ProposalCreationFeeLamports is the flat fee charged when a proposal is
	// created. It is credited in full to the treasury operations sub-account.
	ProposalCreationFeeLamports uint64 = 5_000_000

	// Support fee as a fraction of the contributed amount: 5/1000 = 0.5%.
	SupportFeeNumerator   uint64 = 5
	SupportFeeDenominator uint64 = 1000

	// Treasury distribution percentages for percentage-class fees.
	// Must sum to 100; the crank share absorbs rounding dust.
	TreasuryMarketingPercent   uint64 = 10
	TreasuryTeamPercent        uint64 = 40
	TreasuryOperationsPercent  uint64 = 5
	TreasuryInvestmentsPercent uint64 = 44
	TreasuryCrankPercent       uint64 = 1

	// MaxCreatorAllocation is the largest share of total supply (in percent)
	// a creator may reserve for themselves.
	MaxCreatorAllocation uint8 = 10

	// Field length caps for proposal records.
	MaxTokenNameLen   = 32
	MaxTokenSymbolLen = 8
	MaxDescriptionLen = 512
	MaxImageURLLen    = 256

	// Role registry bounds.
	MaxTreasuryRoles = 16
	MaxAdmins        = 3

	// SupportRecordRentLamports is the storage deposit charged when a support
	// record is created and refunded when the record is destroyed on reclaim.
	// Sized as the rent-exempt minimum for the 88-byte support record.
	SupportRecordRentLamports uint64 = 1_503_360
)

// treasuryPercentTotal exists so the split code divides by the actual total
// rather than a literal 100; a unit test pins it to 100.
const treasuryPercentTotal = TreasuryMarketingPercent +
	TreasuryTeamPercent +
	TreasuryOperationsPercent +
	TreasuryInvestmentsPercent +
	TreasuryCrankPercent
