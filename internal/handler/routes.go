package handler

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fairyhunter13/coupon-distribution/pkg/auth"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
// A nil Coupon handler leaves the admin API unmounted.
type Handlers struct {
	Health *HealthHandler
	Claim  *ClaimHandler
	Coupon *CouponHandler
}

// RouteOptions configures the middleware around the routes.
type RouteOptions struct {
	ClaimRateLimit    int // requests per minute per caller address
	TrustProxy        bool
	AdminUsername     string
	AdminPasswordHash string
	Metrics           http.Handler // nil disables /metrics
}

// RegisterRoutes mounts every endpoint on app.
func RegisterRoutes(app *fiber.App, h Handlers, opts RouteOptions) {
	app.Get("/health", h.Health.Check)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	throttle := limiter.New(limiter.Config{
		Max:        opts.ClaimRateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return clientAddress(c, opts.TrustProxy)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "too many requests",
			})
		},
	})
	app.Post("/api/claim-coupon", throttle, h.Claim.ClaimCoupon)
	app.Post("/api/check-status", throttle, h.Claim.CheckStatus)

	if h.Coupon == nil {
		return
	}

	admin := app.Group("/api/admin", basicauth.New(basicauth.Config{
		Realm:      "Coupon Admin",
		Authorizer: auth.BasicAuthorizer(opts.AdminUsername, opts.AdminPasswordHash),
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Coupon Admin"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		},
	}))
	admin.Get("/coupons", h.Coupon.ListCoupons)
	admin.Post("/coupons", h.Coupon.CreateCoupon)
	admin.Post("/coupons/toggle", h.Coupon.ToggleCoupon)
	admin.Post("/coupons/delete", h.Coupon.DeleteCoupon)
	admin.Get("/stats", h.Coupon.GetStats)
}
