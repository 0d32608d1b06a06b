package protocol

import "errors"

// Kind classifies a domain error so callers can decide how to react without
// matching individual sentinels. Conflict-kind errors are transient host-side
// write conflicts and are safe to resubmit; everything else is terminal for
// that submission.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindState
	KindArithmetic
	KindResource
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindArithmetic:
		return "arithmetic"
	case KindResource:
		return "resource"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a named, kind-classified domain error. All engine operations fail
// with exactly one of the sentinels below (possibly wrapped with context).
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind returns the taxonomy class of the error.
func (e *Error) Kind() Kind { return e.kind }

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// KindOf returns the Kind of err, unwrapping as needed. Errors that are not
// protocol errors classify as KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.kind
	}
	return KindUnknown
}

// Epoch lifecycle.
var (
	ErrInvalidEpochTimeRange = newError(KindValidation, "invalid epoch time range")
	ErrInvalidEpochID        = newError(KindValidation, "epoch id does not match")
	ErrEpochAlreadyInactive  = newError(KindState, "epoch is already inactive")
	ErrEpochNotActive        = newError(KindState, "epoch is not active")
	ErrEpochNotClosed        = newError(KindState, "epoch must be closed to perform this action")
	ErrEpochAlreadyProcessed = newError(KindState, "epoch has already been processed")
	ErrEpochNotProcessedYet  = newError(KindState, "epoch has not yet been marked as processed")
	ErrEpochNotFound         = newError(KindNotFound, "epoch not found")
	ErrEpochAlreadyExists    = newError(KindState, "epoch already exists")
)

// Proposal lifecycle.
var (
	ErrProposalNotActive          = newError(KindState, "proposal is not active")
	ErrProposalAlreadyFinalized   = newError(KindState, "proposal already has a final status")
	ErrProposalNotInEpoch         = newError(KindState, "proposal does not belong to the provided epoch")
	ErrProposalNotRejected        = newError(KindState, "proposal must be rejected to reclaim funds")
	ErrProposalNotFound           = newError(KindNotFound, "proposal not found")
	ErrProposalAlreadyExists      = newError(KindState, "proposal already exists")
	ErrInvalidProposalStatus      = newError(KindValidation, "invalid proposal status update")
	ErrCreatorAllocationTooHigh   = newError(KindValidation, "creator allocation cannot exceed 10%")
	ErrTokenNameTooLong           = newError(KindValidation, "token name is too long")
	ErrTokenSymbolTooLong         = newError(KindValidation, "token symbol is too long")
	ErrDescriptionTooLong         = newError(KindValidation, "description is too long")
	ErrImageURLTooLong            = newError(KindValidation, "image url is too long")
	ErrNegativeLockupPeriod       = newError(KindValidation, "lockup period cannot be negative")
	ErrTotalSupplyMustBePositive  = newError(KindValidation, "total supply must be greater than zero")
	ErrTokenNameMustNotBeEmpty    = newError(KindValidation, "token name must not be empty")
)

// Support and reclaim.
var (
	ErrAmountMustBeGreaterThanZero = newError(KindValidation, "amount must be greater than zero")
	ErrFeeCannotBeZero             = newError(KindValidation, "calculated fee amount cannot be zero")
	ErrAmountTooLowToCoverFees     = newError(KindValidation, "support amount is insufficient to cover fees")
	ErrProposalMismatch            = newError(KindState, "support record does not match the provided proposal")
	ErrNothingToReclaim            = newError(KindState, "no amount to reclaim in this support record")
	ErrSupportNotFound             = newError(KindNotFound, "support record not found")
	ErrInsufficientProposalFunds   = newError(KindResource, "insufficient funds in the proposal escrow for the refund")
	ErrInsufficientFunds           = newError(KindResource, "insufficient wallet funds")
)

// Authorization.
var (
	ErrInvalidAuthority    = newError(KindAuthorization, "only the admin authority can perform this action")
	ErrUnauthorized        = newError(KindAuthorization, "unauthorized")
	ErrUnauthorizedCreator = newError(KindAuthorization, "only the proposal creator can perform this action")
)

// Treasury and roles.
var (
	ErrRoleAlreadyExists           = newError(KindState, "role already exists for this holder")
	ErrRolesCapacityExceeded       = newError(KindResource, "maximum number of roles has been reached")
	ErrRoleNotFound                = newError(KindNotFound, "role not found")
	ErrAdminAlreadyExists          = newError(KindState, "admin already listed")
	ErrAdminNotFound               = newError(KindNotFound, "admin not listed")
	ErrTooManyAdmins               = newError(KindResource, "admin list is at capacity")
	ErrLastAdmin                   = newError(KindState, "at least one admin must remain")
	ErrTreasuryNotInitialized      = newError(KindState, "treasury is not initialized")
	ErrTreasuryAlreadyInitialized  = newError(KindState, "treasury is already initialized")
	ErrRolesNotInitialized         = newError(KindState, "treasury roles are not initialized")
	ErrRolesAlreadyInitialized     = newError(KindState, "treasury roles are already initialized")
	ErrNoAuthorities               = newError(KindValidation, "at least one authority is required")
	ErrInvalidRoleType             = newError(KindValidation, "invalid role type")
	ErrInvalidCategory             = newError(KindValidation, "invalid treasury category for this role type")
)

// Config and addressing.
var (
	ErrConfigNotInitialized     = newError(KindState, "program config is not initialized")
	ErrConfigAlreadyInitialized = newError(KindState, "program config is already initialized")
	ErrDerivationExhausted      = newError(KindResource, "could not derive a record address")
)

// Arithmetic.
var (
	ErrCalculationOverflow = newError(KindArithmetic, "a calculation resulted in an overflow")
)

// ErrWriteConflict marks a transient host-side write conflict on a shared
// record. Callers should resubmit the operation.
var ErrWriteConflict = newError(KindConflict, "write conflict, resubmit the operation")
