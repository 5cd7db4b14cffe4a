package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avdeevlav/sborka-backend/api/controllers"
	"github.com/avdeevlav/sborka-backend/api/middleware"
	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/internal/checkout"
	"github.com/avdeevlav/sborka-backend/internal/merge"
	"github.com/avdeevlav/sborka-backend/internal/orders"
	"github.com/avdeevlav/sborka-backend/internal/users"
	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

// Pinger is the readiness contract shared by the DB and cache clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into controllers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       Pinger
	Redis    Pinger
	Users    users.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Merge    merge.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks(deps)))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.GuestSession(logg))
		r.Post("/register", controllers.AuthRegister(deps.Users, deps.Merge, logg))
		r.Post("/login", controllers.AuthLogin(deps.Users, deps.Merge, logg))
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/active", controllers.ActiveCollection(deps.Catalog, logg))
		r.Get("/collections/{collectionId}", controllers.CollectionCatalog(deps.Catalog, logg))
	})

	// Cart, checkout and orders serve both guests and users: the guest
	// session rides every request and a bearer token upgrades the owner.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.GuestSession(logg),
			middleware.OptionalAuth(cfg.JWT, logg),
		)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, deps.Catalog, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderId}/partial-cancel", controllers.OrderPartialCancel(deps.Orders, logg))
			r.Post("/{orderId}/items", controllers.OrderAddItem(deps.Orders, logg))
			r.Patch("/{orderId}/items/{itemId}", controllers.OrderUpdateItem(deps.Orders, logg))
			r.Delete("/{orderId}/items/{itemId}", controllers.OrderRemoveItem(deps.Orders, logg))
			r.Post("/{orderId}/repeat", controllers.OrderRepeat(deps.Orders, deps.Catalog, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/me", controllers.UserProfile(deps.Users, logg))
		r.Route("/me/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoritesList(deps.Users, logg))
			r.Post("/{productId}", controllers.FavoriteAdd(deps.Users, logg))
			r.Delete("/{productId}", controllers.FavoriteRemove(deps.Users, logg))
		})
		r.With(middleware.GuestSession(logg)).Post("/me/cart-merge", controllers.CartMerge(deps.Merge, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireAdmin(logg),
		)
		r.Patch("/orders/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))
		r.Post("/users/merge", controllers.AdminMergeAccounts(deps.Merge, logg))
	})

	return r
}

func readyChecks(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	return checks
}
