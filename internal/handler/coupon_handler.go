package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-distribution/internal/model"
	"github.com/fairyhunter13/coupon-distribution/internal/service"
)

// CouponServiceInterface defines the interface for admin coupon operations.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	Toggle(ctx context.Context, id int64) (*model.Coupon, error)
	Delete(ctx context.Context, id int64) (*model.DeleteResult, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

// CouponHandler handles the admin coupon endpoints.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// formatValidationError converts validator errors to client messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Code":
				switch tag {
				case "required", "notblank":
					return "invalid request: code is required"
				case "max":
					return "invalid request: code is too long"
				}
				return "invalid request: code is invalid"
			case "Description":
				switch tag {
				case "required", "notblank":
					return "invalid request: description is required"
				case "max":
					return "invalid request: description exceeds maximum length of 500"
				}
				return "invalid request: description is invalid"
			case "ID":
				if tag == "required" {
					return "invalid request: id is required"
				}
				return "invalid request: id must be a positive integer"
			default:
				if tag == "required" {
					return "invalid request: " + strings.ToLower(field) + " is required"
				}
				return "invalid request: " + strings.ToLower(field) + " is invalid"
			}
		}
	}
	return "invalid request"
}

// internalError logs an unexpected failure and answers with a generic message.
func internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// ListCoupons handles GET /api/admin/coupons.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context())
	if err != nil {
		return internalError(c, err, "failed to list coupons")
	}
	return c.JSON(fiber.Map{"coupons": coupons})
}

// CreateCoupon handles POST /api/admin/coupons.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: " + ve.Reason})
		}
		if errors.Is(err, service.ErrCouponExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already exists"})
		}
		return internalError(c, err, "failed to create coupon")
	}

	log.Info().Int64("coupon_id", coupon.ID).Str("coupon_code", coupon.Code).Msg("coupon created")
	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// parseID reads and validates a {"id": n} body. problem is non-empty when the body is rejected.
func (h *CouponHandler) parseID(c *fiber.Ctx) (id int64, problem string) {
	var req model.CouponIDRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, "invalid request body"
	}
	if err := h.validator.Struct(req); err != nil {
		return 0, formatValidationError(err)
	}
	return *req.ID, ""
}

// ToggleCoupon handles POST /api/admin/coupons/toggle.
func (h *CouponHandler) ToggleCoupon(c *fiber.Ctx) error {
	id, problem := h.parseID(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": problem})
	}

	coupon, err := h.service.Toggle(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		return internalError(c, err, "failed to toggle coupon")
	}

	log.Info().Int64("coupon_id", coupon.ID).Bool("is_active", coupon.IsActive).Msg("coupon status toggled")
	return c.JSON(coupon)
}

// DeleteCoupon handles POST /api/admin/coupons/delete.
// A coupon with claim history is deactivated instead and the response says so.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, problem := h.parseID(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": problem})
	}

	result, err := h.service.Delete(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		return internalError(c, err, "failed to delete coupon")
	}

	message := "Coupon deleted successfully"
	if result.Action == model.DeleteActionDeactivated {
		message = "Coupon has been claimed and was deactivated instead of deleted"
	}

	log.Info().
		Int64("coupon_id", result.ID).
		Str("action", string(result.Action)).
		Int("claim_count", result.ClaimCount).
		Msg("coupon removed")

	return c.JSON(fiber.Map{
		"id":         result.ID,
		"action":     result.Action,
		"claimCount": result.ClaimCount,
		"message":    message,
	})
}

// GetStats handles GET /api/admin/stats.
func (h *CouponHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return internalError(c, err, "failed to load stats")
	}
	return c.JSON(stats)
}
