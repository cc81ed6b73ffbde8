package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-distribution/internal/metrics"
	"github.com/fairyhunter13/coupon-distribution/internal/model"
)

// ClaimConfig tunes the claim flow.
type ClaimConfig struct {
	Cooldown      time.Duration
	QueryTimeout  time.Duration
	StampAttempts int
}

// ClaimService checks cooldown eligibility and hands out coupons
// in least-recently-assigned order.
type ClaimService struct {
	couponRepo CouponRepositoryInterface
	claimRepo  ClaimRepositoryInterface
	identity   IdentityGenerator
	cfg        ClaimConfig
	now        func() time.Time
}

// NewClaimService creates a new ClaimService.
func NewClaimService(couponRepo CouponRepositoryInterface, claimRepo ClaimRepositoryInterface, identity IdentityGenerator, cfg ClaimConfig) *ClaimService {
	if cfg.StampAttempts < 1 {
		cfg.StampAttempts = 1
	}
	return &ClaimService{
		couponRepo: couponRepo,
		claimRepo:  claimRepo,
		identity:   identity,
		cfg:        cfg,
		now:        time.Now,
	}
}

// clock returns the current time in the precision PostgreSQL stores.
func (s *ClaimService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CheckEligibility reports whether the caller is inside a cooldown window.
// A caller with neither identity nor address is always eligible. The result is
// advisory; ClaimCoupon repeats the check before allocating.
func (s *ClaimService) CheckEligibility(ctx context.Context, caller model.Caller) (*model.Eligibility, error) {
	if caller.IdentityToken == "" && caller.IPAddress == "" {
		return &model.Eligibility{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	now := s.clock()
	oldest, err := s.claimRepo.OldestSince(ctx, caller.IPAddress, caller.IdentityToken, windowStart(now, s.cfg.Cooldown))
	if err != nil {
		return nil, storageErr("find recent claims", err)
	}
	if oldest == nil {
		return &model.Eligibility{}, nil
	}

	next, minutes := cooldownRemaining(*oldest, s.cfg.Cooldown, now)
	if minutes == 0 {
		return &model.Eligibility{}, nil
	}
	return &model.Eligibility{
		CooldownActive:       true,
		NextEligibleTime:     next,
		TimeRemainingMinutes: minutes,
	}, nil
}

// ClaimCoupon allocates the least recently assigned active coupon to the caller.
//
// Returns:
//   - *RateLimitedError (errors.Is ErrRateLimited) if the identity or address claimed within the window
//   - ErrNoCouponsAvailable if no coupon is active
//   - ErrAllocationContention if every stamp attempt lost to a concurrent claim
//   - an error wrapping ErrStorageUnavailable on store failure
//
// A failure to record the claim row is logged and does not fail the allocation.
func (s *ClaimService) ClaimCoupon(ctx context.Context, caller model.Caller) (result *model.ClaimResult, err error) {
	defer func() { metrics.ClaimsTotal.WithLabelValues(claimOutcome(err)).Inc() }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	token := caller.IdentityToken
	if token == "" {
		token = s.identity.NewToken()
	}

	now := s.clock()

	// 1. Authoritative cooldown check on address OR identity
	oldest, err := s.claimRepo.OldestSince(ctx, caller.IPAddress, token, windowStart(now, s.cfg.Cooldown))
	if err != nil {
		return nil, storageErr("find recent claims", err)
	}
	if oldest != nil {
		next, minutes := cooldownRemaining(*oldest, s.cfg.Cooldown, now)
		if minutes < 1 {
			minutes = 1
		}
		return nil, &RateLimitedError{NextEligibleTime: next, MinutesRemaining: minutes}
	}

	// 2. Select and stamp with compare-and-swap, retrying when another claim wins the row
	coupon, err := s.allocate(ctx, now)
	if err != nil {
		return nil, err
	}

	// 3. Record history; the stamp above is what enforces fairness
	claim := &model.Claim{
		CouponID:  coupon.ID,
		IPAddress: caller.IPAddress,
		BrowserID: token,
		ClaimedAt: now,
	}
	if err := s.claimRepo.Insert(ctx, claim); err != nil {
		metrics.ClaimRecordFailuresTotal.Inc()
		log.Error().
			Err(err).
			Int64("coupon_id", coupon.ID).
			Str("ip_address", caller.IPAddress).
			Str("browser_id", token).
			Msg("failed to record claim")
	}

	return &model.ClaimResult{
		Coupon:        model.CouponView{Code: coupon.Code, Description: coupon.Description},
		IdentityToken: token,
	}, nil
}

// allocate picks the active coupon with the oldest stamp (never-assigned first)
// and stamps it with now, provided nobody else stamped it in between.
func (s *ClaimService) allocate(ctx context.Context, now time.Time) (*model.Coupon, error) {
	for attempt := 1; ; attempt++ {
		coupon, err := s.couponRepo.NextAvailable(ctx)
		if err != nil {
			return nil, storageErr("select coupon", err)
		}
		if coupon == nil {
			return nil, ErrNoCouponsAvailable
		}

		stamped, err := s.couponRepo.StampAssigned(ctx, coupon.ID, coupon.LastAssignedAt, now)
		if err != nil {
			return nil, storageErr("stamp coupon", err)
		}
		if stamped {
			return coupon, nil
		}

		metrics.StampConflictsTotal.Inc()
		log.Debug().Int64("coupon_id", coupon.ID).Int("attempt", attempt).Msg("coupon stamp lost to concurrent claim")
		if attempt >= s.cfg.StampAttempts {
			return nil, ErrAllocationContention
		}
	}
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeClaimed
	case errors.Is(err, ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, ErrNoCouponsAvailable):
		return metrics.OutcomeNoCoupons
	case errors.Is(err, ErrAllocationContention):
		return metrics.OutcomeContention
	default:
		return metrics.OutcomeError
	}
}
