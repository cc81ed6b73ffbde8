package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/internal/service"
	"github.com/fairyhunter13/coupon-distribution/pkg/database"
)

// ClaimRepository provides data access for claims using pgx.
type ClaimRepository struct {
	pool database.TxQuerier
}

// NewClaimRepository creates a new ClaimRepository with the given pool.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// NewClaimRepositoryWithPool creates a new ClaimRepository with a custom pool interface.
// This is primarily used for testing.
func NewClaimRepositoryWithPool(pool database.TxQuerier) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Insert records a claim and fills in its ID.
// Returns service.ErrCouponNotFound if the coupon row no longer exists.
func (r *ClaimRepository) Insert(ctx context.Context, claim *model.Claim) error {
	query := `INSERT INTO claims (coupon_id, ip_address, browser_id, claimed_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		claim.CouponID, claim.IPAddress, claim.BrowserID, claim.ClaimedAt).Scan(&claim.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("insert claim for coupon %d: %w", claim.CouponID, service.ErrCouponNotFound)
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// OldestSince returns the earliest claimed_at strictly after since among claims
// matching the address OR the browser id. Empty arguments never match.
// Returns nil when no claim matches.
func (r *ClaimRepository) OldestSince(ctx context.Context, ipAddress, browserID string, since time.Time) (*time.Time, error) {
	query := `SELECT MIN(claimed_at) FROM claims
		WHERE claimed_at > $3
		  AND (($1::text <> '' AND ip_address = $1) OR ($2::text <> '' AND browser_id = $2))`

	var oldest *time.Time
	if err := r.pool.QueryRow(ctx, query, ipAddress, browserID, since).Scan(&oldest); err != nil {
		return nil, fmt.Errorf("find oldest claim since %s: %w", since.Format(time.RFC3339), err)
	}
	return oldest, nil
}

// CountByCoupon returns how many claims reference a coupon.
func (r *ClaimRepository) CountByCoupon(ctx context.Context, tx database.TxQuerier, couponID int64) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM claims WHERE coupon_id = $1`, couponID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims for coupon %d: %w", couponID, err)
	}
	return count, nil
}

// CountSince returns how many claims were made at or after since.
func (r *ClaimRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM claims WHERE claimed_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}
