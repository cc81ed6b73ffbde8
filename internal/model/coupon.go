package model

import "time"

// Coupon represents a distributable coupon code.
type Coupon struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	Description    string     `json:"description"`
	IsActive       bool       `json:"isActive"`
	LastAssignedAt *time.Time `json:"lastAssignedAt"` // nil until the coupon is first handed out
	CreatedAt      time.Time  `json:"createdAt"`
}

// CodeMaxLength bounds a coupon code after normalization, in characters.
const CodeMaxLength = 64

// CreateCouponRequest is the DTO for creating a coupon.
// Code is bounded loosely here; CodeMaxLength applies once whitespace is stripped.
type CreateCouponRequest struct {
	Code        string `json:"code" validate:"required,notblank,max=256"`
	Description string `json:"description" validate:"required,notblank,max=500"`
}

// CouponIDRequest is the DTO for toggle and delete operations.
type CouponIDRequest struct {
	ID *int64 `json:"id" validate:"required,gte=1"`
}

// DeleteAction names what a delete request actually did.
type DeleteAction string

const (
	DeleteActionDeleted     DeleteAction = "deleted"
	DeleteActionDeactivated DeleteAction = "deactivated"
)

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	ID         int64        `json:"id"`
	Action     DeleteAction `json:"action"`
	ClaimCount int          `json:"claimCount"`
}

// Stats summarizes the coupon inventory for the admin dashboard.
type Stats struct {
	TotalCoupons  int `json:"totalCoupons"`
	ActiveCoupons int `json:"activeCoupons"`
	ClaimsToday   int `json:"claimsToday"`
}
