// Package response — завершающий обработчик ошибок HTTP‑слоя.
//
// Обработчики и middleware не пишут ответы об ошибках сами: они возвращают
// ошибку (или передают её в Errors.Handle), а Errors решает, какой статус
// и какое тело увидит клиент.
package response

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
)

// HeaderStatusMessage — заголовок с фразой статуса ошибки.
const HeaderStatusMessage = "X-Status-Message"

// HandlerFunc — обработчик, который возвращает ошибку вместо записи ответа о ней.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// StatusBody — тело ответа для ошибок таксономии.
type StatusBody struct {
	Status any `json:"status"`
}

// ErrorBody — тело ответа для непредвиденных ошибок.
type ErrorBody struct {
	Error string `json:"error" example:"internal error"`
}

// Errors переводит ошибки в HTTP‑ответы.
type Errors struct {
	log *slog.Logger
}

// NewErrors создаёт обработчик ошибок.
func NewErrors(log *slog.Logger) *Errors {
	return &Errors{log: log}
}

// Handle логирует ошибку и пишет ответ о ней. Вызывается один раз на запрос.
func (e *Errors) Handle(w http.ResponseWriter, r *http.Request, err error) {
	const op = "response.Errors.Handle"

	log := e.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	log.Error("request failed", sl.Err(err))

	herr, ok := httperr.From(err)
	if !ok {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorBody{Error: err.Error()})
		return
	}

	w.Header().Set(HeaderStatusMessage, herr.StatusMessage)
	render.Status(r, herr.Status)

	switch herr.Kind {
	case httperr.KindValidation:
		render.JSON(w, r, StatusBody{Status: "400 Bad Request"})
	case httperr.KindStorage:
		render.JSON(w, r, StatusBody{Status: "406 Not accepted"})
	default:
		render.JSON(w, r, StatusBody{Status: herr.Status})
	}
}

// Wrap превращает HandlerFunc в http.HandlerFunc, отправляя ошибку в Handle.
func (e *Errors) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			e.Handle(w, r, err)
		}
	}
}
