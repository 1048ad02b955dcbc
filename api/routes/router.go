package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/afyakart/storefront-backend/api/controllers"
	"github.com/afyakart/storefront-backend/api/middleware"
	"github.com/afyakart/storefront-backend/internal/cart"
	"github.com/afyakart/storefront-backend/internal/customers"
	"github.com/afyakart/storefront-backend/internal/inventory"
	"github.com/afyakart/storefront-backend/internal/mpesa"
	"github.com/afyakart/storefront-backend/internal/notifications"
	"github.com/afyakart/storefront-backend/internal/orders"
	pkgauth "github.com/afyakart/storefront-backend/pkg/auth"
	"github.com/afyakart/storefront-backend/pkg/config"
	"github.com/afyakart/storefront-backend/pkg/db"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/metrics"
	"github.com/afyakart/storefront-backend/pkg/redis"
)

// Services bundles everything the router mounts. Metrics may be nil, in which
// case the counters are no-ops.
type Services struct {
	Cart          cart.Service
	Customers     customers.Service
	Inventory     inventory.Service
	Orders        orders.Service
	Mpesa         mpesa.Service
	Notifications notifications.Service
	Metrics       *metrics.StorefrontMetrics
}

// RedisConn is the slice of the Redis client the router needs.
type RedisConn interface {
	redis.Pinger
	redis.IdempotencyStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisConn RedisConn,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisConn))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Daraja delivers callbacks unauthenticated; the payload match against a
	// stored checkout request id is the authenticity check.
	r.Post("/api/v1/payments/mpesa/callback", controllers.MpesaCallback(svcs.Mpesa, svcs.Metrics, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisConn, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.CustomerProfile(svcs.Customers, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddProduct(svcs.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/services", controllers.CartAddService(svcs.Cart, logg))
			r.Delete("/services/{itemId}", controllers.CartRemoveService(svcs.Cart, logg))
			r.Post("/coupon", controllers.CartApplyCoupon(svcs.Cart, logg))
			r.Delete("/coupon", controllers.CartRemoveCoupon(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svcs.Orders, svcs.Metrics, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Get("/{orderId}/tracking", controllers.OrderTracking(svcs.Orders, logg))
			r.Post("/{orderId}/notes", controllers.AddOrderNote(svcs.Orders, logg))
			r.Get("/{orderId}/payments/mpesa", controllers.MpesaTransactionsByOrder(svcs.Mpesa, svcs.Orders, logg))
		})

		r.Route("/payments/mpesa", func(r chi.Router) {
			r.Post("/stkpush", controllers.MpesaSTKPush(svcs.Mpesa, svcs.Orders, svcs.Metrics, logg))
			r.Get("/status", controllers.MpesaQueryStatus(svcs.Mpesa, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgauth.RoleStaff, logg))
		r.Use(middleware.Idempotency(redisConn, logg))
		r.Get("/ping", controllers.StaffPing())
		r.Post("/orders/{orderId}/status", controllers.StaffUpdateOrderStatus(svcs.Orders, svcs.Metrics, logg))
		r.Post("/inventory/{productId}/adjust", controllers.StaffAdjustStock(svcs.Inventory, logg))
		r.Get("/inventory/{productId}/transactions", controllers.StaffListStockMovements(svcs.Inventory, logg))
	})

	return r
}
