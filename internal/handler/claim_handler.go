package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/internal/service"
)

// ClaimServiceInterface defines the interface for claim business logic.
type ClaimServiceInterface interface {
	CheckEligibility(ctx context.Context, caller model.Caller) (*model.Eligibility, error)
	ClaimCoupon(ctx context.Context, caller model.Caller) (*model.ClaimResult, error)
}

// ClaimHandler handles the public claim and status endpoints.
type ClaimHandler struct {
	service    ClaimServiceInterface
	validator  *validator.Validate
	trustProxy bool
}

// NewClaimHandler creates a new ClaimHandler with the given service and validator.
// trustProxy enables reading the caller address from X-Forwarded-For / X-Real-IP.
func NewClaimHandler(svc ClaimServiceInterface, v *validator.Validate, trustProxy bool) *ClaimHandler {
	return &ClaimHandler{service: svc, validator: v, trustProxy: trustProxy}
}

// formatClaimValidationError converts validator errors to client messages for claims.
func formatClaimValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Field() == "IdentityToken" {
				if fe.Tag() == "max" {
					return "invalid request: identityToken exceeds maximum length of 64"
				}
				return "invalid request: identityToken is invalid"
			}
			return "invalid request: " + fe.Field() + " is invalid"
		}
	}
	return "invalid request"
}

// parseIdentity reads the optional {"identityToken": "..."} body. An empty body is allowed.
func (h *ClaimHandler) parseIdentity(c *fiber.Ctx) (string, string) {
	var req model.IdentityRequest
	if len(c.Body()) == 0 {
		return "", ""
	}
	if err := c.BodyParser(&req); err != nil {
		return "", "invalid request body"
	}
	if err := h.validator.Struct(req); err != nil {
		return "", formatClaimValidationError(err)
	}
	return req.IdentityToken, ""
}

func minutesLabel(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}

// ClaimCoupon handles POST /api/claim-coupon requests.
func (h *ClaimHandler) ClaimCoupon(c *fiber.Ctx) error {
	token, problem := h.parseIdentity(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": problem})
	}

	caller := model.Caller{IdentityToken: token, IPAddress: clientAddress(c, h.trustProxy)}

	result, err := h.service.ClaimCoupon(c.Context(), caller)
	if err != nil {
		var rl *service.RateLimitedError
		if errors.As(err, &rl) {
			log.Info().
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Str("ip_address", caller.IPAddress).
				Int("time_remaining_minutes", rl.MinutesRemaining).
				Msg("claim blocked by cooldown")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":              false,
				"error":                "rate limit exceeded",
				"message":              "You can claim another coupon in " + minutesLabel(rl.MinutesRemaining),
				"cooldownActive":       true,
				"nextEligibleTime":     rl.NextEligibleTime.UTC().Format(time.RFC3339),
				"timeRemainingMinutes": rl.MinutesRemaining,
			})
		}
		if errors.Is(err, service.ErrNoCouponsAvailable) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "no coupons available",
				"message": "There are no active coupons available at the moment. Please check back later.",
			})
		}
		if errors.Is(err, service.ErrAllocationContention) {
			log.Warn().
				Err(err).
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Msg("coupon allocation contention")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "service busy",
				"message": "Too many claims at once. Please try again.",
			})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip_address", caller.IPAddress).
			Msg("failed to claim coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "internal server error",
			"message": "An unexpected error occurred. Please try again later.",
		})
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("ip_address", caller.IPAddress).
		Str("coupon_code", result.Coupon.Code).
		Msg("coupon claimed successfully")

	return c.JSON(fiber.Map{
		"success":       true,
		"coupon":        result.Coupon,
		"identityToken": result.IdentityToken,
		"message":       "Coupon claimed successfully!",
	})
}

// CheckStatus handles POST /api/check-status requests.
// Only the identity token is consulted; an absent token is never in cooldown.
func (h *ClaimHandler) CheckStatus(c *fiber.Ctx) error {
	token, problem := h.parseIdentity(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": problem})
	}

	status, err := h.service.CheckEligibility(c.Context(), model.Caller{IdentityToken: token})
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Msg("failed to check claim status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to check claim status",
		})
	}

	if !status.CooldownActive {
		return c.JSON(fiber.Map{"success": true, "cooldownActive": false})
	}
	return c.JSON(fiber.Map{
		"success":              true,
		"cooldownActive":       true,
		"nextEligibleTime":     status.NextEligibleTime.UTC().Format(time.RFC3339),
		"timeRemainingMinutes": status.TimeRemainingMinutes,
	})
}
