/*
errors.go - Centralized error types for the payout engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store adapters map driver-level failures onto these sentinels so callers
  can branch with errors.Is regardless of the backing database.

ERROR CATEGORIES:
  1. Fetch errors  - Store reads failed; the recalculation aborts, nothing
     is written
  2. Write errors  - Payout insert failed; the computed display set is still
     returned to the caller
  3. Config errors - Unknown pay structure; not fatal, surfaced as warnings
  4. Status errors - Invalid approval-workflow transitions
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnconfiguredPayStructure is returned by the calculator when a job's
	// pay structure matches no calculation branch. The breakdown is still
	// produced with zero amounts so the run proceeds.
	ErrUnconfiguredPayStructure = errors.New("unconfigured pay structure")

	// ErrPayoutWrite is returned when persisting new payout rows fails.
	// The computed result set remains valid and displayable.
	ErrPayoutWrite = errors.New("payout write failed")

	// ErrPayoutNotFound is returned when a payout row lookup by id misses.
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrJobNotFound is returned when a referenced job config doesn't exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned for status writes that violate the
	// pending -> approved -> processed lifecycle.
	ErrInvalidTransition = errors.New("invalid payout status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnconfiguredPayError identifies which job carried the unknown structure.
type UnconfiguredPayError struct {
	JobID        JobID
	PayStructure PayStructure
}

func (e *UnconfiguredPayError) Error() string {
	return fmt.Sprintf("job %s: pay structure %q matches no calculation branch", e.JobID, e.PayStructure)
}

func (e *UnconfiguredPayError) Unwrap() error {
	return ErrUnconfiguredPayStructure
}

// WriteError wraps the store failure from the insert step while keeping the
// ErrPayoutWrite sentinel in the chain.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("payout write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrPayoutWrite, e.Err}
}

// TransitionError identifies the rejected status change.
type TransitionError struct {
	PayoutID string
	From     PayoutStatus
	To       PayoutStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("payout %s: cannot transition %s -> %s", e.PayoutID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPayoutNotFound) || errors.Is(err, ErrJobNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
