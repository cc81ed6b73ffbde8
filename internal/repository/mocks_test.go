package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
)

// mockRow implements pgx.Row.
type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// errRow returns a row whose Scan fails with err.
func errRow(err error) pgx.Row {
	return &mockRow{scanFn: func(dest ...any) error { return err }}
}

// couponScanner copies c into the destinations of a coupon scan.
func couponScanner(c model.Coupon) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*int64) = c.ID
		*dest[1].(*string) = c.Code
		*dest[2].(*string) = c.Description
		*dest[3].(*bool) = c.IsActive
		*dest[4].(**time.Time) = c.LastAssignedAt
		*dest[5].(*time.Time) = c.CreatedAt
		return nil
	}
}

// mockRows implements pgx.Rows over a list of scan functions.
type mockRows struct {
	scans []func(dest ...any) error
	idx   int
	err   error
}

func (m *mockRows) Close() {}

func (m *mockRows) Err() error { return m.err }

func (m *mockRows) Next() bool {
	if m.idx < len(m.scans) {
		m.idx++
		return true
	}
	return false
}

func (m *mockRows) Scan(dest ...any) error {
	return m.scans[m.idx-1](dest...)
}

func (m *mockRows) CommandTag() pgconn.CommandTag             { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                       { return nil }
func (m *mockRows) Values() ([]any, error)                    { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                           { return nil }

// mockQuerier implements database.TxQuerier and records the last statement.
type mockQuerier struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	lastSQL  string
	lastArgs []any
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	m.lastSQL, m.lastArgs = sql, arguments
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.lastSQL, m.lastArgs = sql, args
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.lastSQL, m.lastArgs = sql, args
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return &mockRows{}, nil
}
