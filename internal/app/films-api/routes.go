// Package filmsapi собирает HTTP‑приложение: зависимости, маршруты и сервер.
package filmsapi

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/films-api/api"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/films"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/users"
	"github.com/magabrotheeeer/films-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/films-api/internal/http/response"
)

// DocsPath — адрес описания API для Swagger UI.
const DocsPath = "/docs/openapi"

// Handlers — всё, что нужно для регистрации маршрутов.
type Handlers struct {
	Films   *films.Controller
	Users   *users.Controller
	Auth    *middlewarectx.Auth
	Upload  *middlewarectx.Upload
	Errors  *response.Errors
	Metrics *middlewarectx.Metrics
	// Gatherer отдаёт метрики на /metrics
	Gatherer prometheus.Gatherer

	UploadField   string
	UploadMaxSize int64
	// TrustedProxies — прокси, чьему X-Forwarded-Proto верят ссылки пагинации
	TrustedProxies []netip.Prefix
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middlewarectx.ForwardedProto(h.TrustedProxies),
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		h.Metrics.Handler,
	)

	wrap := h.Errors.Wrap

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", wrap(h.Users.Register))
			r.Post("/login", wrap(h.Users.Login))
		})

		r.Route("/films", func(r chi.Router) {
			r.Get("/", wrap(h.Films.GetAll))
			r.Get("/{id}", wrap(h.Films.GetByID))

			// Создание: токен, затем файл изображения
			r.With(
				h.Auth.Logged,
				h.Upload.SingleFileStore(h.UploadField, h.UploadMaxSize),
				h.Upload.SaveDataImage,
			).Post("/", wrap(h.Films.Post))

			// Изменение и удаление доступны только владельцу
			r.Group(func(r chi.Router) {
				r.Use(h.Auth.Logged, h.Auth.AuthorizedForFilms)
				r.Patch("/{id}", wrap(h.Films.Patch))
				r.Delete("/{id}", wrap(h.Films.DeleteByID))
			})

			r.With(h.Auth.Logged).Patch("/{id}/comments", wrap(h.Films.AddComment))
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	r.Get(DocsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(api.OpenAPI)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(DocsPath)))
}
