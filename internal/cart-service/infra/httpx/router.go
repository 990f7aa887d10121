package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", handler.OpenCart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetCart)
			r.Delete("/", handler.CloseCart)
			r.Get("/events", handler.StreamCart)
			r.Get("/history", handler.GetHistory)
			r.Post("/reload", handler.ReloadCart)
			r.Post("/items", handler.AddItem)
			r.Patch("/items/{itemID}", handler.UpdateQuantity)
			r.Delete("/items/{itemID}", handler.RemoveItem)
		})
	})

	return otelhttp.NewHandler(r, "cart-service")
}
