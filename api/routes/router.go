package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-core/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-core/api/controllers/cart"
	couponcontrollers "github.com/angelmondragon/storefront-core/api/controllers/coupons"
	ordercontrollers "github.com/angelmondragon/storefront-core/api/controllers/orders"
	"github.com/angelmondragon/storefront-core/api/middleware"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/coupons"
	"github.com/angelmondragon/storefront-core/internal/orders"
	"github.com/angelmondragon/storefront-core/pkg/auth"
	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/redis"
)

const apiPrefix = "/api/v1"

// redisStore is the slice of the Redis client the HTTP layer uses.
type redisStore interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
	RateLimitKey(parts ...string) string
	Ping(ctx context.Context) error
}

type requestObserver interface {
	Observe(method, route string, status int, duration time.Duration)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	httpMetrics requestObserver,
	metricsHandler http.Handler,
	couponService coupons.Service,
	orderService orders.Service,
	cartService cart.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Metrics(httpMetrics),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Identity(cfg.JWT, logg),
	)

	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon_validate",
		cfg.RateLimit.CouponValidateWindow,
		cfg.RateLimit.CouponValidateLimit,
	)

	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	mount := func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", controllers.HealthLive(cfg))
			r.Get("/ready", controllers.HealthReady(cfg, logg,
				controllers.ReadinessCheck{Name: "postgres", Pinger: dbP},
				controllers.ReadinessCheck{Name: "redis", Pinger: redisPinger},
			))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.With(middleware.RateLimit(couponPolicy, redisClient, logg)).Post("/validate", couponcontrollers.Validate(couponService, logg))
			r.Get("/active", couponcontrollers.Active(couponService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireIdentity(logg)).Get("/", ordercontrollers.List(orderService, logg))
			r.With(middleware.Idempotency(redisClient, logg)).Post("/create", ordercontrollers.Create(orderService, logg))
			r.Post("/verify-payment", ordercontrollers.ConfirmPayment(orderService, logg))
			r.Post("/verify", ordercontrollers.ConfirmPayment(orderService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(orderService, logg))
			r.With(middleware.RequireRole(auth.RoleAdmin, logg)).Patch("/{orderId}/status", ordercontrollers.UpdateStatus(orderService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireIdentity(logg))
			r.Post("/sync", cartcontrollers.Sync(cartService, logg))
			r.Get("/sync", cartcontrollers.Load(cartService, logg))
			r.Post("/merge", cartcontrollers.Merge(cartService, logg))
		})
	}

	r.Group(mount)
	r.Route(apiPrefix, mount)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}
