package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omoshop/shop-backend/api/controllers"
	"github.com/omoshop/shop-backend/api/middleware"
	internaladdress "github.com/omoshop/shop-backend/internal/address"
	internalcart "github.com/omoshop/shop-backend/internal/cart"
	internalcategories "github.com/omoshop/shop-backend/internal/categories"
	checkoutsvc "github.com/omoshop/shop-backend/internal/checkout"
	internalorders "github.com/omoshop/shop-backend/internal/orders"
	internalproducts "github.com/omoshop/shop-backend/internal/products"
	internalusers "github.com/omoshop/shop-backend/internal/users"
	"github.com/omoshop/shop-backend/pkg/config"
	"github.com/omoshop/shop-backend/pkg/db"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idemStore redis.IdempotencyStore,
	checkoutService checkoutsvc.Service,
	ordersService internalorders.Service,
	cartService internalcart.Service,
	productService internalproducts.Service,
	categoryService internalcategories.Service,
	addressService internaladdress.Service,
	usersService internalusers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg, cfg.Checkout.IdempotencyTTL))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/place-order", controllers.PlaceOrder(checkoutService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.Get("/{userId}/orders", controllers.UserOrders(ordersService, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.InitializeCart(cartService, logg))
			r.Route("/{cartId}", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartService, logg))
				r.Delete("/", controllers.ClearCart(cartService, logg))
				r.Get("/total", controllers.GetCartTotal(cartService, logg))
				r.Post("/items", controllers.AddCartItem(cartService, logg))
				r.Route("/items/{productId}", func(r chi.Router) {
					r.Put("/", controllers.UpdateCartItem(cartService, logg))
					r.Put("/refresh-price", controllers.RefreshCartItemPrice(cartService, logg))
					r.Delete("/", controllers.RemoveCartItem(cartService, logg))
				})
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Put("/{productId}", controllers.UpdateProduct(productService, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(productService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(categoryService, logg))
			r.Post("/", controllers.CreateCategory(categoryService, logg))
			r.Get("/{categoryId}", controllers.GetCategory(categoryService, logg))
			r.Put("/{categoryId}", controllers.UpdateCategory(categoryService, logg))
			r.Delete("/{categoryId}", controllers.DeleteCategory(categoryService, logg))
		})

		r.Get("/users/by-email", controllers.GetUserByEmail(usersService, logg))
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/", controllers.GetUser(usersService, logg))
			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(addressService, logg))
				r.Post("/", controllers.CreateAddress(addressService, logg))
				r.Get("/{addressId}", controllers.GetAddress(addressService, logg))
				r.Put("/{addressId}", controllers.UpdateAddress(addressService, logg))
				r.Delete("/{addressId}", controllers.DeleteAddress(addressService, logg))
			})
		})
	})

	return r
}
