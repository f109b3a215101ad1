package capshield

import (
	"errors"
	"fmt"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/account"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/fee"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/multisig"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/pause"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/supply"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Sentinel errors for common failure scenarios. Component errors are
// re-exported so callers only need this package to match them.
var (
	// Input errors
	ErrZeroAddress        = types.ErrZeroAddress
	ErrInvalidAmount      = types.ErrInvalidAmount
	ErrInvalidRevenue     = errors.New("capshield: invalid revenue")
	ErrInvalidMarketValue = errors.New("capshield: invalid market value")
	ErrInvalidInput       = errors.New("capshield: invalid input")
	ErrInvalidFeeRate     = fee.ErrInvalidRate

	// Supply errors
	ErrMaxSupplyExceeded = supply.ErrMaxSupplyExceeded

	// Balance errors
	ErrInsufficientBalance   = account.ErrInsufficientBalance
	ErrInsufficientAllowance = account.ErrInsufficientAllowance

	// Authorization errors
	ErrUnauthorized        = role.ErrUnauthorized
	ErrUnknownRole         = role.ErrUnknownRole
	ErrAdminMustBeContract = ownership.ErrAdminMustBeContract
	ErrRenounceDisabled    = ownership.ErrRenounceDisabled
	ErrNoHandoverRequest   = ownership.ErrNoHandoverRequest
	ErrQuorumNotMet        = multisig.ErrQuorumNotMet

	// State errors
	ErrPaused      = pause.ErrPaused
	ErrUnsupported = errors.New("capshield: operation not supported by this ledger variant")

	// Store errors
	ErrNotFound          = store.ErrNotFound
	ErrStoreClosed       = store.ErrClosed
	ErrSequenceConflict  = store.ErrConflict
	ErrStoreNotReady     = errors.New("capshield: store not ready")
	ErrTransactionFailed = errors.New("capshield: transaction failed")
	ErrMigrationFailed   = errors.New("capshield: migration failed")
	ErrSnapshotStale     = errors.New("capshield: snapshot is older than the event log")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("capshield: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "capshield: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("capshield: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the caller lacked the capability for the call.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrAdminMustBeContract) ||
		errors.Is(err, ErrRenounceDisabled) ||
		errors.Is(err, ErrQuorumNotMet)
}

// IsSupplyError returns true if the error relates to amounts, balances or
// the supply cap.
func IsSupplyError(err error) bool {
	return errors.Is(err, ErrMaxSupplyExceeded) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRevenue) ||
		errors.Is(err, ErrInvalidMarketValue) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
