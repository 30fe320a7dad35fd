// Package middlewarectx содержит HTTP middleware: проверку токена, проверку
// владельца фильма, приём файлов и счётчик запросов.
//
// Middleware не пишут ответы об ошибках сами, а передают ошибку в ErrorHandler.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// ErrorHandler пишет ответ об ошибке.
type ErrorHandler interface {
	Handle(w http.ResponseWriter, r *http.Request, err error)
}

// TokenVerifier проверяет токен и возвращает его данные.
type TokenVerifier interface {
	VerifyToken(token string) (*models.TokenPayload, error)
}

// FilmFinder находит фильм по id.
type FilmFinder interface {
	QueryByID(ctx context.Context, id string) (models.Film, error)
}

// Auth — проверки доступа к маршрутам.
type Auth struct {
	log    *slog.Logger
	tokens TokenVerifier
	films  FilmFinder
	errs   ErrorHandler
}

// NewAuth создаёт набор проверок доступа.
func NewAuth(log *slog.Logger, tokens TokenVerifier, films FilmFinder, errs ErrorHandler) *Auth {
	return &Auth{
		log:    log,
		tokens: tokens,
		films:  films,
		errs:   errs,
	}
}

// Logged требует заголовок "Authorization: Bearer <token>" и кладёт данные
// проверенного токена в контекст запроса.
func (a *Auth) Logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.Logged"

		log := a.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.errs.Handle(w, r, httperr.Unauthorized("Not Authorization header"))
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.errs.Handle(w, r, httperr.Unauthorized("Not Bearer in Authorization header"))
			return
		}

		payload, err := a.tokens.VerifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			if _, ok := httperr.From(err); !ok {
				err = httperr.Wrap(http.StatusUnauthorized, "Not Authorized", err.Error(), err)
			}
			a.errs.Handle(w, r, err)
			return
		}

		log.Debug("token verified", slog.String("user_id", payload.ID))
		next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
	})
}

// AuthorizedForFilms пропускает запрос, только если фильм {id} принадлежит
// пользователю из токена. Ставится после Logged.
func (a *Auth) AuthorizedForFilms(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.AuthorizedForFilms"

		log := a.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		payload, ok := PayloadFrom(r.Context())
		if !ok {
			a.errs.Handle(w, r, httperr.TokenMissing("Token not found in Authorized interceptor"))
			return
		}

		film, err := a.films.QueryByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			a.errs.Handle(w, r, err)
			return
		}
		if film.Owner.ID != payload.ID {
			log.Info("user is not the owner of the film",
				slog.String("user_id", payload.ID),
				slog.String("film_id", film.ID),
			)
			a.errs.Handle(w, r, httperr.New(http.StatusUnauthorized, "Not authorized", "Not authorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
