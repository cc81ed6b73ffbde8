package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/pkg/database"
)

// mockCouponRepository is a mock implementation of CouponRepositoryInterface.
type mockCouponRepository struct {
	insertFn             func(ctx context.Context, coupon *model.Coupon) error
	listFn               func(ctx context.Context) ([]model.Coupon, error)
	nextAvailableFn      func(ctx context.Context) (*model.Coupon, error)
	stampAssignedFn      func(ctx context.Context, id int64, previous *time.Time, at time.Time) (bool, error)
	toggleFn             func(ctx context.Context, id int64) (*model.Coupon, error)
	getCouponForUpdateFn func(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error)
	deleteFn             func(ctx context.Context, tx database.TxQuerier, id int64) error
	deactivateFn         func(ctx context.Context, tx database.TxQuerier, id int64) error
	countsFn             func(ctx context.Context) (int, int, error)
}

func (m *mockCouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponRepository) NextAvailable(ctx context.Context) (*model.Coupon, error) {
	if m.nextAvailableFn != nil {
		return m.nextAvailableFn(ctx)
	}
	return nil, nil
}

func (m *mockCouponRepository) StampAssigned(ctx context.Context, id int64, previous *time.Time, at time.Time) (bool, error) {
	if m.stampAssignedFn != nil {
		return m.stampAssignedFn(ctx, id, previous, at)
	}
	return true, nil
}

func (m *mockCouponRepository) Toggle(ctx context.Context, id int64) (*model.Coupon, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCouponRepository) GetCouponForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	if m.getCouponForUpdateFn != nil {
		return m.getCouponForUpdateFn(ctx, tx, id)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponRepository) Delete(ctx context.Context, tx database.TxQuerier, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, id)
	}
	return nil
}

func (m *mockCouponRepository) Deactivate(ctx context.Context, tx database.TxQuerier, id int64) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, tx, id)
	}
	return nil
}

func (m *mockCouponRepository) Counts(ctx context.Context) (int, int, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx)
	}
	return 0, 0, nil
}

// mockClaimRepository is a mock implementation of ClaimRepositoryInterface.
type mockClaimRepository struct {
	insertFn        func(ctx context.Context, claim *model.Claim) error
	oldestSinceFn   func(ctx context.Context, ipAddress, browserID string, since time.Time) (*time.Time, error)
	countByCouponFn func(ctx context.Context, tx database.TxQuerier, couponID int64) (int, error)
	countSinceFn    func(ctx context.Context, since time.Time) (int, error)
}

func (m *mockClaimRepository) Insert(ctx context.Context, claim *model.Claim) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, claim)
	}
	return nil
}

func (m *mockClaimRepository) OldestSince(ctx context.Context, ipAddress, browserID string, since time.Time) (*time.Time, error) {
	if m.oldestSinceFn != nil {
		return m.oldestSinceFn(ctx, ipAddress, browserID, since)
	}
	return nil, nil
}

func (m *mockClaimRepository) CountByCoupon(ctx context.Context, tx database.TxQuerier, couponID int64) (int, error) {
	if m.countByCouponFn != nil {
		return m.countByCouponFn(ctx, tx, couponID)
	}
	return 0, nil
}

func (m *mockClaimRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	if m.countSinceFn != nil {
		return m.countSinceFn(ctx, since)
	}
	return 0, nil
}

// memCouponStore keeps coupons in memory with the ordering and stamp rules of the SQL store.
type memCouponStore struct {
	mockCouponRepository
	mu      sync.Mutex
	coupons []model.Coupon
}

func newMemCouponStore(coupons ...model.Coupon) *memCouponStore {
	return &memCouponStore{coupons: coupons}
}

func (m *memCouponStore) NextAvailable(_ context.Context) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []model.Coupon
	for _, c := range m.coupons {
		if c.IsActive {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i].LastAssignedAt, active[j].LastAssignedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return active[i].ID < active[j].ID
	})
	next := active[0]
	return &next, nil
}

func (m *memCouponStore) StampAssigned(_ context.Context, id int64, previous *time.Time, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.coupons {
		c := &m.coupons[i]
		if c.ID != id || !c.IsActive {
			continue
		}
		current := c.LastAssignedAt
		if (current == nil) != (previous == nil) || (current != nil && !current.Equal(*previous)) {
			return false, nil
		}
		stamp := at
		if current != nil && !stamp.After(*current) {
			stamp = current.Add(time.Microsecond)
		}
		c.LastAssignedAt = &stamp
		return true, nil
	}
	return false, nil
}

// memClaimStore keeps claims in memory.
type memClaimStore struct {
	mockClaimRepository
	mu     sync.Mutex
	claims []model.Claim
}

func (m *memClaimStore) Insert(_ context.Context, claim *model.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim.ID = int64(len(m.claims) + 1)
	m.claims = append(m.claims, *claim)
	return nil
}

func (m *memClaimStore) OldestSince(_ context.Context, ipAddress, browserID string, since time.Time) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *time.Time
	for _, c := range m.claims {
		if !c.ClaimedAt.After(since) {
			continue
		}
		matches := (ipAddress != "" && c.IPAddress == ipAddress) || (browserID != "" && c.BrowserID == browserID)
		if !matches {
			continue
		}
		if oldest == nil || c.ClaimedAt.Before(*oldest) {
			at := c.ClaimedAt
			oldest = &at
		}
	}
	return oldest, nil
}

// fixedIdentity hands out a predetermined token.
type fixedIdentity string

func (f fixedIdentity) NewToken() string { return string(f) }

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	committed  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
	begun   int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begun++
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}
