package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/internal/service"
	"github.com/fairyhunter13/coupon-distribution/pkg/database"
)

const couponColumns = `id, code, description, is_active, last_assigned_at, created_at`

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool database.TxQuerier
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool database.TxQuerier) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var coupon model.Coupon
	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Description,
		&coupon.IsActive,
		&coupon.LastAssignedAt,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Insert inserts a new coupon and fills in its ID and CreatedAt.
// Returns service.ErrCouponExists if the code is already taken.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (code, description, is_active) VALUES ($1, $2, $3) RETURNING id, created_at`,
		coupon.Code, coupon.Description, coupon.IsActive).Scan(&coupon.ID, &coupon.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return service.ErrCouponExists
			case "23514":
				return &service.ValidationError{Reason: "code is invalid"}
			case "22021":
				return &service.ValidationError{Reason: "code or description contains invalid characters"}
			case "22001":
				return &service.ValidationError{Reason: "code or description is too long"}
			}
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// List returns all coupons, newest first.
// On success, returns an empty slice (not nil) when there are no coupons.
func (r *CouponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// NextAvailable returns the active coupon that was assigned least recently.
// Never-assigned coupons come first; ties fall back to insertion order.
// Returns nil, nil when no coupon is active.
func (r *CouponRepository) NextAvailable(ctx context.Context) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE is_active
		ORDER BY last_assigned_at ASC NULLS FIRST, id ASC
		LIMIT 1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select next coupon: %w", err)
	}
	return coupon, nil
}

// StampAssigned sets last_assigned_at on a still-active coupon, but only if the
// stamp still equals previous (nil meaning never assigned). It reports false when
// a concurrent claim changed the row first. The stamp never moves backwards.
func (r *CouponRepository) StampAssigned(ctx context.Context, id int64, previous *time.Time, at time.Time) (bool, error) {
	query := `UPDATE coupons
		SET last_assigned_at = GREATEST($2, last_assigned_at + INTERVAL '1 microsecond')
		WHERE id = $1 AND is_active AND last_assigned_at IS NOT DISTINCT FROM $3`

	tag, err := r.pool.Exec(ctx, query, id, at, previous)
	if err != nil {
		return false, fmt.Errorf("stamp coupon %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Toggle flips is_active and returns the updated coupon.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) Toggle(ctx context.Context, id int64) (*model.Coupon, error) {
	query := `UPDATE coupons SET is_active = NOT is_active WHERE id = $1 RETURNING ` + couponColumns

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("toggle coupon %d: %w", id, err)
	}
	return coupon, nil
}

// GetCouponForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// The lock also blocks claim inserts referencing the coupon until the transaction ends.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetCouponForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %d: %w", id, err)
	}
	return coupon, nil
}

// Delete removes a coupon row.
// Returns service.ErrReferentialConflict if a claim still references it.
func (r *CouponRepository) Delete(ctx context.Context, tx database.TxQuerier, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return service.ErrReferentialConflict
		}
		return fmt.Errorf("delete coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// Deactivate marks a coupon inactive in place of deleting it.
func (r *CouponRepository) Deactivate(ctx context.Context, tx database.TxQuerier, id int64) error {
	tag, err := tx.Exec(ctx, `UPDATE coupons SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// Counts returns the total and active number of coupons.
func (r *CouponRepository) Counts(ctx context.Context) (total, active int, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM coupons`
	if err := r.pool.QueryRow(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count coupons: %w", err)
	}
	return total, active, nil
}
