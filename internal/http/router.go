package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CookieSecure       bool
	CORSAllowOrigins   []string
}

// NewRouter wires the public API. The badge stream sits outside the request
// timeout since it lives as long as the client stays connected.
func NewRouter(cfg RouterConfig, carts *CartHandler, products *ProductHandler, store storage.Storage, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(CORSMiddleware(cfg.CORSAllowOrigins))
	r.Use(LogMiddleware(log))

	r.Get("/health", healthHandler(store))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.CookieSecure))
		r.Use(CredentialMiddleware)

		r.Get("/cart/badge/stream", carts.StreamBadge)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))
			if cfg.MaxRequestBodySize > 0 {
				r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
			}

			r.Get("/products", products.List)
			r.Get("/products/{id}", products.Get)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Get("/badge", carts.GetBadge)
				r.Post("/items", carts.AddItem)
				r.Post("/quick-add/{product_id}", carts.QuickAdd)
				r.Patch("/items/{key}", carts.UpdateQuantity)
				r.Patch("/lines/{index}", carts.UpdateQuantityAt)
				r.Post("/order", carts.PlaceOrder)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront-cart")
}

func healthHandler(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
