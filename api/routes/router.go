package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gulhayo05/Surprise-Bag/api/controllers"
	bagcontrollers "github.com/Gulhayo05/Surprise-Bag/api/controllers/bags"
	businesscontrollers "github.com/Gulhayo05/Surprise-Bag/api/controllers/businesses"
	ordercontrollers "github.com/Gulhayo05/Surprise-Bag/api/controllers/orders"
	"github.com/Gulhayo05/Surprise-Bag/api/middleware"
	"github.com/Gulhayo05/Surprise-Bag/internal/bags"
	"github.com/Gulhayo05/Surprise-Bag/internal/businesses"
	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/internal/orders"
	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	pkgredis "github.com/Gulhayo05/Surprise-Bag/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	businessService businesses.Service,
	bagService bags.Service,
	ordersSvc orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var limiter interface {
		FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error)
	}
	var idemStore pkgredis.IdempotencyStore
	checks := map[string]controllers.Pinger{"db": dbP}
	if redisStore != nil {
		limiter = redisStore
		idemStore = redisStore
		checks["redis"] = redisStore
	}

	publicPolicy := middleware.NewRateLimitPolicy("public", cfg.RateLimit.Window, cfg.RateLimit.PublicPerWindow)
	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.APIPerWindow)
	reservePolicy := middleware.NewRateLimitPolicy("reserve", cfg.RateLimit.Window, cfg.RateLimit.ReservePerWindow)

	idempotent := middleware.Idempotency(idemStore, middleware.IdempotencyTTLStandard, logg)
	orderIdempotent := middleware.Idempotency(idemStore, middleware.IdempotencyTTLOrders, logg)
	customer := middleware.RequireRole(logg, enums.UserRoleCustomer)
	owner := middleware.RequireRole(logg, enums.UserRoleBusinessOwner)
	admin := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.RateLimit(publicPolicy, limiter, logg))

		r.Get("/businesses", businesscontrollers.List(businessService, logg))
		r.Get("/businesses/{businessId}", businesscontrollers.Detail(businessService, logg))
		r.Get("/bags", bagcontrollers.List(bagService, logg))
		r.Get("/bags/{bagId}", bagcontrollers.Detail(bagService, logg))
		r.Get("/businesses/{businessId}/reviews", ordercontrollers.BusinessReviews(ordersSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(apiPolicy, limiter, logg))

		r.Route("/businesses", func(r chi.Router) {
			r.With(owner, idempotent).Post("/", businesscontrollers.Create(businessService, logg))
			r.With(owner).Get("/me", businesscontrollers.Mine(businessService, logg))
			r.With(owner).Patch("/{businessId}", businesscontrollers.Update(businessService, logg))
			r.With(owner).Delete("/{businessId}", businesscontrollers.Delete(businessService, logg))
			r.With(admin).Post("/{businessId}/approve", businesscontrollers.Approve(businessService, logg))
		})

		r.Route("/bags", func(r chi.Router) {
			r.Use(owner)
			r.With(idempotent).Post("/", bagcontrollers.Create(bagService, logg))
			r.Patch("/{bagId}", bagcontrollers.Update(bagService, logg))
			r.Delete("/{bagId}", bagcontrollers.Delete(bagService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(customer, middleware.RateLimit(reservePolicy, limiter, logg), orderIdempotent).Post("/", ordercontrollers.Place(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.With(owner).Post("/{orderId}/confirm", ordercontrollers.Confirm(ordersSvc, logg))
			r.With(owner).Post("/{orderId}/complete", ordercontrollers.Complete(ordersSvc, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer, enums.UserRoleBusinessOwner), orderIdempotent).
				Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.With(customer).Post("/{orderId}/review", ordercontrollers.Review(ordersSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(notificationsService, logg))
			r.With(idempotent).Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Get("/{notificationId}", controllers.GetNotification(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(notificationsService, logg))
			r.With(idempotent).Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
