package app

import "errors"

// Validation failures surfaced to callers. A failed operation reports
// exactly one of these (possibly wrapped) and mutates nothing; retry is
// always the caller's decision.
var (
	// Timing violations.
	ErrContestNotActive = errors.New("contest is not active")
	ErrContestEnded     = errors.New("contest has ended")
	ErrContestNotEnded  = errors.New("contest has not ended yet")

	// Identity mismatches.
	ErrUnauthorizedPlayer = errors.New("unauthorized player")
	ErrUnauthorized       = errors.New("unauthorized operation")

	// State-reuse violations.
	ErrRunAlreadyCompleted       = errors.New("run already completed")
	ErrDuplicateEntry            = errors.New("player already entered this epoch")
	ErrInsuranceAlreadyPurchased = errors.New("insurance already purchased")

	// Integrity failure; retryable with corrected inputs.
	ErrInvalidScoreHash = errors.New("invalid score hash")

	// Settlement parameter errors.
	ErrInvalidRank    = errors.New("invalid rank specified")
	ErrPlayerNotFound = errors.New("player not found in leaderboard")

	// Initialize-time configuration error.
	ErrInvalidFee = errors.New("invalid house fee")

	// Ledger failures propagate under this cause, never reinterpreted.
	ErrTransferFailed = errors.New("transfer failed")
)
