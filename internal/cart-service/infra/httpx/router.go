package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/httpx/middlewares"
)

func NewRouter(handler *Handler, validator ports.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares.AttachRequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", handler.Health)

	r.Route("/cart", func(r chi.Router) {
		r.Use(middlewares.Authenticate(validator))

		r.Get("/test", handler.Test)
		r.Post("/", handler.AddItem)
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.DeleteCart)
	})
	return r
}
