package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is returned when admin input is missing or malformed
	ErrValidation = errors.New("validation error")

	// ErrRateLimited is matched by errors.Is for any *RateLimitedError
	ErrRateLimited = errors.New("rate limited")

	// ErrNoCouponsAvailable is returned when there is no active coupon to hand out
	ErrNoCouponsAvailable = errors.New("no coupons available")

	// ErrStorageUnavailable wraps every failure of the backing store
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrReferentialConflict is returned when a coupon cannot be deleted because claims reference it
	ErrReferentialConflict = errors.New("coupon is referenced by claims")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponExists is returned when attempting to create a coupon whose code is taken
	ErrCouponExists = errors.New("coupon already exists")

	// ErrAllocationContention is returned when every stamp attempt lost to a concurrent claim
	ErrAllocationContention = errors.New("coupon allocation contention")
)

// RateLimitedError is returned by ClaimCoupon when the caller is inside a cooldown window.
type RateLimitedError struct {
	NextEligibleTime time.Time
	MinutesRemaining int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: next eligible at %s (%d min)",
		e.NextEligibleTime.Format(time.RFC3339), e.MinutesRemaining)
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// ValidationError carries a client-facing reason and matches ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// storageErr tags a store failure as ErrStorageUnavailable while keeping the cause.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
