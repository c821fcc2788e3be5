package models

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrRecordNotFound   = errors.New("record not found")
	ErrMarketNotFound   = errors.New("market not found")
	ErrPositionNotFound = errors.New("position not found")
	ErrOracleNotFound   = errors.New("oracle provider not found")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrUnsupportedAsset   = errors.New("unsupported asset")
	ErrInvalidQuestion    = errors.New("invalid market question")
	ErrInvalidOutcomes    = errors.New("market needs at least two distinct outcomes")
	ErrInvalidOutcome     = errors.New("outcome is not part of the market")
	ErrInvalidDuration    = errors.New("market duration must be positive")
	ErrInvalidComparator  = errors.New("invalid oracle comparator")
	ErrInvalidOracle      = errors.New("invalid oracle configuration")
	ErrInvalidClaimPeriod = errors.New("claim period cannot be negative")
	ErrInvalidUser        = errors.New("invalid user")

	ErrInvalidState          = errors.New("operation not allowed in current market state")
	ErrMarketClosed          = errors.New("market is closed for staking")
	ErrMarketNotEnded        = errors.New("market end time not reached")
	ErrMarketNotTerminal     = errors.New("market is not in a terminal state")
	ErrNoWinningStake        = errors.New("no winning stake to claim")
	ErrNoRefundableStake     = errors.New("no refundable stake")
	ErrOutcomeChangeRejected = errors.New("restaking on a different outcome is not allowed")
	ErrOracleConfigLocked    = errors.New("oracle configuration is locked once stakes exist")
	ErrMetadataFrozen        = errors.New("market metadata is frozen once stakes exist")
	ErrRecoveryRefused       = errors.New("recovery refused for terminal market")
	ErrUnrecoverable         = errors.New("market integrity cannot be restored by recomputation")
	ErrIDSpaceExhausted      = errors.New("market id counter space exhausted")

	ErrNegativeTotalStaked = errors.New("total staked is negative")
	ErrMissingEndTime      = errors.New("market end time is not set")
	ErrStakeDrift          = errors.New("total staked does not match the sum of stakes")

	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrAlreadyClaimed  = errors.New("payout already claimed")
	ErrAlreadyExecuted = errors.New("operation already executed")
	ErrAlreadyArchived = errors.New("market already archived")

	ErrClaimPeriodExpired    = errors.New("claim period has expired")
	ErrClaimPeriodNotExpired = errors.New("claim period has not expired")

	ErrOracleUnavailable     = errors.New("oracle unavailable")
	ErrReentrancyGuardActive = errors.New("reentrancy guard active")
	ErrOverflow              = errors.New("arithmetic overflow")

	ErrInvalidFeeBps                   = errors.New("invalid platform fee")
	ErrInvalidPageSize                 = errors.New("invalid page size")
	ErrInvalidFundingPolicy            = errors.New("invalid funding policy")
	ErrInvalidRestakePolicy            = errors.New("invalid restake policy")
	ErrInvalidAccount                  = errors.New("invalid account configuration")
	ErrDatabaseCredentialNotConfigured = errors.New("database credentials not configured")
)

// Kind classifies an error into the failure codes surfaced to callers.
type Kind string

const (
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindNotFound              Kind = "NOT_FOUND"
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindInvalidState          Kind = "INVALID_STATE"
	KindInsufficientBalance   Kind = "INSUFFICIENT_BALANCE"
	KindAlreadyClaimed        Kind = "ALREADY_CLAIMED"
	KindAlreadyExecuted       Kind = "ALREADY_EXECUTED"
	KindClaimPeriodExpired    Kind = "CLAIM_PERIOD_EXPIRED"
	KindClaimPeriodNotExpired Kind = "CLAIM_PERIOD_NOT_EXPIRED"
	KindOracleUnavailable     Kind = "ORACLE_UNAVAILABLE"
	KindReentrancyGuardActive Kind = "REENTRANCY_GUARD_ACTIVE"
	KindOverflow              Kind = "OVERFLOW"
	KindInternal              Kind = "INTERNAL"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindUnauthorized, []error{ErrUnauthorized, ErrForbidden}},
	{KindNotFound, []error{ErrRecordNotFound, ErrMarketNotFound, ErrPositionNotFound, ErrOracleNotFound}},
	{KindInvalidInput, []error{
		ErrInvalidInput, ErrInvalidAmount, ErrUnsupportedAsset, ErrInvalidQuestion,
		ErrInvalidOutcomes, ErrInvalidOutcome, ErrInvalidDuration, ErrInvalidComparator,
		ErrInvalidOracle, ErrInvalidClaimPeriod, ErrInvalidUser,
	}},
	{KindInvalidState, []error{
		ErrInvalidState, ErrMarketClosed, ErrMarketNotEnded, ErrMarketNotTerminal,
		ErrNoWinningStake, ErrNoRefundableStake, ErrOutcomeChangeRejected,
		ErrOracleConfigLocked, ErrMetadataFrozen, ErrRecoveryRefused, ErrUnrecoverable,
		ErrNegativeTotalStaked, ErrMissingEndTime, ErrStakeDrift, ErrIDSpaceExhausted,
	}},
	{KindInsufficientBalance, []error{ErrInsufficientBalance}},
	{KindAlreadyClaimed, []error{ErrAlreadyClaimed}},
	{KindAlreadyExecuted, []error{ErrAlreadyExecuted, ErrAlreadyArchived}},
	{KindClaimPeriodExpired, []error{ErrClaimPeriodExpired}},
	{KindClaimPeriodNotExpired, []error{ErrClaimPeriodNotExpired}},
	{KindOracleUnavailable, []error{ErrOracleUnavailable}},
	{KindReentrancyGuardActive, []error{ErrReentrancyGuardActive}},
	{KindOverflow, []error{ErrOverflow}},
}

// KindOf returns the failure kind of err. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}

// HTTPStatus maps a failure kind to the status code used by the API.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindClaimPeriodNotExpired:
		return http.StatusBadRequest
	case KindInsufficientBalance:
		return http.StatusPaymentRequired
	case KindInvalidState, KindAlreadyClaimed, KindAlreadyExecuted, KindClaimPeriodExpired:
		return http.StatusConflict
	case KindOracleUnavailable:
		return http.StatusServiceUnavailable
	case KindReentrancyGuardActive:
		return http.StatusLocked
	case KindOverflow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
