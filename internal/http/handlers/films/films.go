// Package films содержит HTTP‑обработчики ресурса фильмов.
//
// Controller дополняет обобщённый controller.Controller созданием фильма,
// постраничным списком со ссылками, удалением с обновлением списка фильмов
// владельца и добавлением комментариев.
package films

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/films-api/internal/events"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/controller"
	"github.com/magabrotheeeer/films-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/pagination"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/lib/validate"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// ErrNoPayload — обработчику, которому нужен пользователь, не передали данные токена.
var ErrNoPayload = errors.New("No token payload was found")

// FilmRepository — хранилище фильмов с атомарным добавлением комментария.
type FilmRepository interface {
	controller.Repository[models.Film]
	AppendComment(ctx context.Context, id string, c models.Comment) (models.Film, error)
}

// UserRepository — операции над пользователями, нужные фильмам.
type UserRepository interface {
	QueryByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, id string, data models.User) (models.User, error)
}

// Locker выдаёт блокировку с единственным владельцем по ключу.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// EventPublisher публикует события фильмов.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event)
}

// List — страница фильмов со ссылками на соседние страницы.
type List struct {
	Items    []models.Film `json:"items"`
	Count    int           `json:"count"`
	Previous *string       `json:"previous"`
	Next     *string       `json:"next"`
}

// Controller обрабатывает запросы к фильмам.
type Controller struct {
	*controller.Controller[models.Film]

	log    *slog.Logger
	films  FilmRepository
	users  UserRepository
	locker Locker
	events EventPublisher
}

// New создаёт Controller.
func New(
	log *slog.Logger,
	films FilmRepository,
	users UserRepository,
	locker Locker,
	publisher EventPublisher,
) *Controller {
	return &Controller{
		Controller: controller.New(log, films),
		log:        log,
		films:      films,
		users:      users,
		locker:     locker,
		events:     publisher,
	}
}

// GetAll отдаёт страницу фильмов по 6 штук с необязательным фильтром genre.
func (c *Controller) GetAll(w http.ResponseWriter, r *http.Request) error {
	const op = "films.GetAll"

	page := pagination.Page(r.URL.Query().Get("page"))
	var filter models.Filter
	if genre := r.URL.Query().Get("genre"); genre != "" {
		filter = models.Filter{"genre": genre}
	}

	var (
		items []models.Film
		count int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = c.films.Query(ctx, page, pagination.DefaultPageSize, filter)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.films.Count(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if items == nil {
		items = []models.Film{}
	}

	previous, next := pagination.Links(r, page, pagination.TotalPages(count, pagination.DefaultPageSize))

	c.logger(r, op).Debug("films listed", slog.Int("page", page), slog.Int("count", count))
	render.JSON(w, r, List{
		Items:    items,
		Count:    count,
		Previous: previous,
		Next:     next,
	})
	return nil
}

// Post создаёт фильм от имени пользователя из токена и добавляет его
// в список фильмов владельца. Отвечает 201.
func (c *Controller) Post(w http.ResponseWriter, r *http.Request) error {
	const op = "films.Post"
	log := c.logger(r, op)

	payload, ok := middlewarectx.PayloadFrom(r.Context())
	if !ok {
		return ErrNoPayload
	}

	req, err := decodeFilm(r)
	if err != nil {
		return err
	}
	if err = validate.Struct(req); err != nil {
		return err
	}

	data := models.Film{
		Title: req.Title,
		Genre: req.Genre,
		Owner: models.Owner{ID: payload.ID},
	}
	if img, ok := middlewarectx.ImageFrom(r.Context()); ok {
		data.Image = img
	}

	film, err := c.films.Create(r.Context(), data)
	if err != nil {
		return err
	}

	// фильм уже создан; если обновить владельца не удалось, он остаётся
	err = c.updateOwnerFilms(r.Context(), payload.ID, func(films []string) []string {
		return append(films, film.ID)
	})
	if err != nil {
		log.Error("film created but owner was not updated", slog.String("film_id", film.ID), sl.Err(err))
		return err
	}

	c.events.Publish(r.Context(), events.NewFilmEvent(events.FilmCreated, film, payload.ID))

	log.Info("film created", slog.String("film_id", film.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, film)
	return nil
}

// DeleteByID удаляет фильм {id} и убирает его из списка фильмов владельца. Отвечает 204.
func (c *Controller) DeleteByID(w http.ResponseWriter, r *http.Request) error {
	const op = "films.DeleteByID"
	log := c.logger(r, op)

	payload, ok := middlewarectx.PayloadFrom(r.Context())
	if !ok {
		return ErrNoPayload
	}

	id := chi.URLParam(r, "id")
	if err := c.films.Delete(r.Context(), id); err != nil {
		return err
	}

	err := c.updateOwnerFilms(r.Context(), payload.ID, func(films []string) []string {
		kept := make([]string, 0, len(films))
		for _, f := range films {
			if f != id {
				kept = append(kept, f)
			}
		}
		return kept
	})
	if err != nil {
		log.Error("film deleted but owner was not updated", slog.String("film_id", id), sl.Err(err))
		return err
	}

	deleted := models.Film{ID: id, Owner: models.Owner{ID: payload.ID}}
	c.events.Publish(r.Context(), events.NewFilmEvent(events.FilmDeleted, deleted, payload.ID))

	log.Info("film deleted", slog.String("film_id", id))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Patch меняет название, жанр или изображение фильма {id} и отвечает 202.
// Владелец и комментарии через Patch не меняются.
func (c *Controller) Patch(w http.ResponseWriter, r *http.Request) error {
	const op = "films.Patch"

	var req models.FilmPatch
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		c.logger(r, op).Debug("failed to decode request body", sl.Err(err))
		return httperr.BadRequest("Invalid request body")
	}

	updated, err := c.films.Update(r.Context(), chi.URLParam(r, "id"), models.Film{
		Title: req.Title,
		Genre: req.Genre,
		Image: req.Image,
	})
	if err != nil {
		return err
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, updated)
	return nil
}

// AddComment добавляет комментарий пользователя из токена к фильму {id}. Отвечает 200.
func (c *Controller) AddComment(w http.ResponseWriter, r *http.Request) error {
	const op = "films.AddComment"
	log := c.logger(r, op)

	payload, ok := middlewarectx.PayloadFrom(r.Context())
	if !ok {
		return ErrNoPayload
	}

	var req models.CommentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Debug("failed to decode request body", sl.Err(err))
		return httperr.BadRequest("Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	user, err := c.users.QueryByID(r.Context(), payload.ID)
	if err != nil {
		return err
	}

	id := chi.URLParam(r, "id")
	updated, err := c.films.AppendComment(r.Context(), id, models.Comment{
		Comment: req.Comment,
		Owner:   user.Snapshot(),
	})
	if err != nil {
		return err
	}

	e := events.NewFilmEvent(events.FilmCommented, updated, payload.ID)
	e.Comment = req.Comment
	c.events.Publish(r.Context(), e)

	render.JSON(w, r, updated)
	return nil
}

// updateOwnerFilms меняет список фильмов пользователя под его блокировкой.
func (c *Controller) updateOwnerFilms(ctx context.Context, ownerID string, change func([]string) []string) error {
	const op = "films.updateOwnerFilms"

	unlock, err := c.locker.Lock(ctx, "user:"+ownerID)
	if err != nil {
		return err
	}
	defer c.release(ctx, c.log.With(slog.String("op", op)), unlock)

	user, err := c.users.QueryByID(ctx, ownerID)
	if err != nil {
		return err
	}
	films := change(user.Films)
	if films == nil {
		films = []string{}
	}
	_, err = c.users.Update(ctx, ownerID, models.User{Films: films})
	return err
}

func (c *Controller) release(ctx context.Context, log *slog.Logger, unlock func(context.Context) error) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		log.Warn("failed to release lock", sl.Err(err))
	}
}

func (c *Controller) logger(r *http.Request, op string) *slog.Logger {
	return c.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// decodeFilm читает поля фильма из multipart‑формы или из JSON.
func decodeFilm(r *http.Request) (models.FilmRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded" {
		return models.FilmRequest{
			Title: r.FormValue("title"),
			Genre: r.FormValue("genre"),
		}, nil
	}

	var req models.FilmRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return models.FilmRequest{}, httperr.BadRequest("Invalid request body")
	}
	return req, nil
}
