package protocol

// EpochStatus is the lifecycle state of a governance epoch.
type EpochStatus string

const (
	EpochActive  EpochStatus = "active"
	EpochPending EpochStatus = "pending"
	EpochClosed  EpochStatus = "closed"
)

// Valid reports whether s is one of the enumerated epoch states.
func (s EpochStatus) Valid() bool {
	switch s {
	case EpochActive, EpochPending, EpochClosed:
		return true
	}
	return false
}

// ProposalStatus is the lifecycle state of a token proposal. Validated and
// Rejected are terminal.
type ProposalStatus string

const (
	ProposalActive    ProposalStatus = "active"
	ProposalValidated ProposalStatus = "validated"
	ProposalRejected  ProposalStatus = "rejected"
)

// Valid reports whether s is one of the enumerated proposal states.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalActive, ProposalValidated, ProposalRejected:
		return true
	}
	return false
}

// Final reports whether s is a terminal status.
func (s ProposalStatus) Final() bool {
	return s == ProposalValidated || s == ProposalRejected
}

// TreasuryCategory names one of the five fee-destination sub-accounts.
type TreasuryCategory string

const (
	CategoryMarketing   TreasuryCategory = "marketing"
	CategoryTeam        TreasuryCategory = "team"
	CategoryOperations  TreasuryCategory = "operations"
	CategoryInvestments TreasuryCategory = "investments"
	CategoryCrank       TreasuryCategory = "crank"
)

// Valid reports whether c is one of the enumerated categories.
func (c TreasuryCategory) Valid() bool {
	switch c {
	case CategoryMarketing, CategoryTeam, CategoryOperations, CategoryInvestments, CategoryCrank:
		return true
	}
	return false
}

// RoleType is the kind of a treasury role grant. Admin roles carry no
// category; CategoryManager and Withdrawer are scoped to one sub-account.
type RoleType string

const (
	RoleAdmin           RoleType = "admin"
	RoleCategoryManager RoleType = "category_manager"
	RoleWithdrawer      RoleType = "withdrawer"
)

// Valid reports whether t is one of the enumerated role types.
func (t RoleType) Valid() bool {
	switch t {
	case RoleAdmin, RoleCategoryManager, RoleWithdrawer:
		return true
	}
	return false
}

// NeedsCategory reports whether grants of this type are scoped to a treasury
// category.
func (t RoleType) NeedsCategory() bool {
	return t == RoleCategoryManager || t == RoleWithdrawer
}
