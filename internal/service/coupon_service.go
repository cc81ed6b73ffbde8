package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/coupon-distribution/internal/metrics"
	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	List(ctx context.Context) ([]model.Coupon, error)
	NextAvailable(ctx context.Context) (*model.Coupon, error)
	StampAssigned(ctx context.Context, id int64, previous *time.Time, at time.Time) (bool, error)
	Toggle(ctx context.Context, id int64) (*model.Coupon, error)
	GetCouponForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error)
	Delete(ctx context.Context, tx database.TxQuerier, id int64) error
	Deactivate(ctx context.Context, tx database.TxQuerier, id int64) error
	Counts(ctx context.Context) (total, active int, err error)
}

// ClaimRepositoryInterface defines the interface for claim data access.
type ClaimRepositoryInterface interface {
	Insert(ctx context.Context, claim *model.Claim) error
	OldestSince(ctx context.Context, ipAddress, browserID string, since time.Time) (*time.Time, error)
	CountByCoupon(ctx context.Context, tx database.TxQuerier, couponID int64) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CouponService provides the administrator operations on coupons.
type CouponService struct {
	pool         TxBeginner
	couponRepo   CouponRepositoryInterface
	claimRepo    ClaimRepositoryInterface
	queryTimeout time.Duration
	now          func() time.Time
}

// NewCouponService creates a new CouponService with the given pool and repositories.
func NewCouponService(pool *pgxpool.Pool, couponRepo CouponRepositoryInterface, claimRepo ClaimRepositoryInterface, queryTimeout time.Duration) *CouponService {
	return NewCouponServiceWithTxBeginner(pool, couponRepo, claimRepo, queryTimeout)
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, couponRepo CouponRepositoryInterface, claimRepo ClaimRepositoryInterface, queryTimeout time.Duration) *CouponService {
	return &CouponService{
		pool:         pool,
		couponRepo:   couponRepo,
		claimRepo:    claimRepo,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// NormalizeCode upper-cases a coupon code and strips every whitespace character.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// printable reports whether s is valid UTF-8 free of control characters.
// Line breaks and tabs pass when multiline is set.
func printable(s string, multiline bool) bool {
	if !utf8.ValidString(s) {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		if multiline && (r == '\n' || r == '\r' || r == '\t') {
			return false
		}
		return unicode.IsControl(r)
	}) < 0
}

// Create validates and stores a new active coupon.
// Returns ErrValidation for missing or malformed fields and ErrCouponExists for a duplicate code.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, &ValidationError{Reason: "request is required"}
	}

	if !utf8.ValidString(req.Code) {
		return nil, &ValidationError{Reason: "code contains invalid characters"}
	}
	code := NormalizeCode(req.Code)
	description := strings.TrimSpace(req.Description)
	if code == "" {
		return nil, &ValidationError{Reason: "code is required"}
	}
	if description == "" {
		return nil, &ValidationError{Reason: "description is required"}
	}
	if utf8.RuneCountInString(code) > model.CodeMaxLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("code exceeds maximum length of %d", model.CodeMaxLength)}
	}
	if !printable(code, false) {
		return nil, &ValidationError{Reason: "code contains invalid characters"}
	}
	if !printable(description, true) {
		return nil, &ValidationError{Reason: "description contains invalid characters"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	coupon := &model.Coupon{
		Code:        code,
		Description: description,
		IsActive:    true,
	}
	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		if errors.Is(err, ErrCouponExists) {
			return nil, ErrCouponExists
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		return nil, storageErr("insert coupon", err)
	}

	metrics.AdminOperationsTotal.WithLabelValues("create").Inc()
	return coupon, nil
}

// List returns every coupon, newest first.
func (s *CouponService) List(ctx context.Context) ([]model.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, storageErr("list coupons", err)
	}
	return coupons, nil
}

// Toggle flips the active flag of a coupon and returns its new state.
func (s *CouponService) Toggle(ctx context.Context, id int64) (*model.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	coupon, err := s.couponRepo.Toggle(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, storageErr("toggle coupon", err)
	}

	metrics.AdminOperationsTotal.WithLabelValues("toggle").Inc()
	return coupon, nil
}

// Delete hard-deletes a coupon nobody has claimed and deactivates it otherwise.
// The result names the action that actually happened.
func (s *CouponService) Delete(ctx context.Context, id int64) (*model.DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.removeCoupon(ctx, id)
	if errors.Is(err, ErrReferentialConflict) {
		// A claim referenced the coupon after it was counted; the second pass sees it.
		log.Warn().Int64("coupon_id", id).Msg("delete hit a claim reference, retrying as deactivation")
		result, err = s.removeCoupon(ctx, id)
	}
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) || errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		return nil, storageErr("delete coupon", err)
	}

	metrics.AdminOperationsTotal.WithLabelValues(string(result.Action)).Inc()
	return result, nil
}

// removeCoupon locks the coupon row, counts its claims and deletes or deactivates
// it inside one transaction.
func (s *CouponService) removeCoupon(ctx context.Context, id int64) (*model.DeleteResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if _, err := s.couponRepo.GetCouponForUpdate(ctx, tx, id); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, storageErr("lock coupon", err)
	}

	claims, err := s.claimRepo.CountByCoupon(ctx, tx, id)
	if err != nil {
		return nil, storageErr("count claims", err)
	}

	result := &model.DeleteResult{ID: id, ClaimCount: claims}
	if claims == 0 {
		if err := s.couponRepo.Delete(ctx, tx, id); err != nil {
			if errors.Is(err, ErrReferentialConflict) {
				return nil, ErrReferentialConflict
			}
			return nil, storageErr("delete coupon", err)
		}
		result.Action = model.DeleteActionDeleted
	} else {
		if err := s.couponRepo.Deactivate(ctx, tx, id); err != nil {
			return nil, storageErr("deactivate coupon", err)
		}
		result.Action = model.DeleteActionDeactivated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit tx", err)
	}
	return result, nil
}

// Stats returns inventory counts and the number of claims since midnight UTC.
func (s *CouponService) Stats(ctx context.Context) (*model.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var stats model.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, active, err := s.couponRepo.Counts(gctx)
		if err != nil {
			return storageErr("count coupons", err)
		}
		stats.TotalCoupons, stats.ActiveCoupons = total, active
		return nil
	})
	g.Go(func() error {
		today := s.now().UTC().Truncate(24 * time.Hour)
		claims, err := s.claimRepo.CountSince(gctx, today)
		if err != nil {
			return storageErr("count claims", err)
		}
		stats.ClaimsToday = claims
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
