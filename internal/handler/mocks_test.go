package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
)

// mockClaimService is a mock implementation of ClaimServiceInterface.
type mockClaimService struct {
	checkEligibilityFn func(ctx context.Context, caller model.Caller) (*model.Eligibility, error)
	claimCouponFn      func(ctx context.Context, caller model.Caller) (*model.ClaimResult, error)
}

func (m *mockClaimService) CheckEligibility(ctx context.Context, caller model.Caller) (*model.Eligibility, error) {
	if m.checkEligibilityFn != nil {
		return m.checkEligibilityFn(ctx, caller)
	}
	return &model.Eligibility{}, nil
}

func (m *mockClaimService) ClaimCoupon(ctx context.Context, caller model.Caller) (*model.ClaimResult, error) {
	if m.claimCouponFn != nil {
		return m.claimCouponFn(ctx, caller)
	}
	return &model.ClaimResult{
		Coupon:        model.CouponView{Code: "SAVE10", Description: "10% off"},
		IdentityToken: "tok",
	}, nil
}

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	createFn func(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	listFn   func(ctx context.Context) ([]model.Coupon, error)
	toggleFn func(ctx context.Context, id int64) (*model.Coupon, error)
	deleteFn func(ctx context.Context, id int64) (*model.DeleteResult, error)
	statsFn  func(ctx context.Context) (*model.Stats, error)
}

func (m *mockCouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Coupon{ID: 1, Code: req.Code, Description: req.Description, IsActive: true}, nil
}

func (m *mockCouponService) List(ctx context.Context) ([]model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) Toggle(ctx context.Context, id int64) (*model.Coupon, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, id)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponService) Delete(ctx context.Context, id int64) (*model.DeleteResult, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return &model.DeleteResult{ID: id, Action: model.DeleteActionDeleted}, nil
}

func (m *mockCouponService) Stats(ctx context.Context) (*model.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.Stats{}, nil
}

// mockPinger is a mock implementation of Pinger.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingErr
}

// jsonRequest builds a POST request with a JSON body; an empty body sends no content type.
func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// decodeBody reads a JSON object response.
func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}
