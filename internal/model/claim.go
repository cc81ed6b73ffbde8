package model

import "time"

// Claim is an immutable record of one successful allocation.
type Claim struct {
	ID        int64     `json:"id"`
	CouponID  int64     `json:"couponId"`
	IPAddress string    `json:"ipAddress"`
	BrowserID string    `json:"browserId"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// Caller identifies who is asking for a coupon.
// Either field may be empty.
type Caller struct {
	IdentityToken string
	IPAddress     string
}

// IdentityRequest is the body of both public endpoints.
// The body may be empty; a claim issues a fresh token when IdentityToken is absent.
type IdentityRequest struct {
	IdentityToken string `json:"identityToken" validate:"omitempty,max=64,identitytoken"`
}

// CouponView is the public part of a coupon handed to a caller.
type CouponView struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ClaimResult is returned by a successful allocation.
type ClaimResult struct {
	Coupon        CouponView
	IdentityToken string
}

// Eligibility describes whether a caller is inside a cooldown window.
type Eligibility struct {
	CooldownActive       bool
	NextEligibleTime     time.Time
	TimeRemainingMinutes int
}
