package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/furnihub/marketplace-backend/api/controllers"
	cartcontrollers "github.com/furnihub/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/furnihub/marketplace-backend/api/controllers/orders"
	"github.com/furnihub/marketplace-backend/api/middleware"
	"github.com/furnihub/marketplace-backend/internal/cart"
	checkoutsvc "github.com/furnihub/marketplace-backend/internal/checkout"
	"github.com/furnihub/marketplace-backend/internal/coupons"
	"github.com/furnihub/marketplace-backend/internal/orders"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/config"
	"github.com/furnihub/marketplace-backend/pkg/db"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/redis"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Products products.Service
	Cart     cart.Service
	Coupons  coupons.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{"database": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.CheckoutTTL, logg))

		r.Get("/products/{productId}/price", controllers.ProductPrice(svc.Products, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
			r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
			r.Put("/coupon", cartcontrollers.CartApplyCoupon(svc.Cart, logg))
			r.Delete("/coupon", cartcontrollers.CartRemoveCoupon(svc.Cart, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/preview", controllers.CouponPreview(svc.Coupons, logg))
			r.Post("/{code}/claim", controllers.CouponClaim(svc.Coupons, logg))
		})

		r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))

		r.Get("/orders", ordercontrollers.List(svc.Orders, logg))
		r.Get("/orders/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
		r.Route("/sub-orders/{subOrderId}", func(r chi.Router) {
			r.Post("/status", ordercontrollers.SubOrderStatus(svc.Orders, logg))
			r.Post("/recompute", ordercontrollers.SubOrderRecompute(svc.Orders, logg))
		})
	})

	return r
}
