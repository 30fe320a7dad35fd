// Package controller содержит обобщённые CRUD‑обработчики поверх Repository.
//
// Обработчики возвращают ошибку вместо записи ответа о ней: при ошибке ответ
// не пишется, и её обрабатывает response.Errors.
package controller

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
)

// List — ответ списка записей.
type List[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// Controller реализует обобщённые операции над записями типа T.
type Controller[T any] struct {
	log  *slog.Logger
	repo Repository[T]
}

// New создаёт Controller.
func New[T any](log *slog.Logger, repo Repository[T]) *Controller[T] {
	return &Controller[T]{log: log, repo: repo}
}

// GetAll отдаёт все записи и их число. Выборка и подсчёт идут параллельно.
func (c *Controller[T]) GetAll(w http.ResponseWriter, r *http.Request) error {
	const op = "controller.GetAll"

	var (
		items []T
		count int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = c.repo.Query(ctx, 0, 0, nil)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.repo.Count(ctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}

	c.logger(r, op).Debug("items listed", slog.Int("count", count))
	render.JSON(w, r, List[T]{Items: items, Count: count})
	return nil
}

// GetByID отдаёт запись по {id}.
func (c *Controller[T]) GetByID(w http.ResponseWriter, r *http.Request) error {
	item, err := c.repo.QueryByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	render.JSON(w, r, item)
	return nil
}

// Patch частично обновляет запись по {id} и отвечает 202.
func (c *Controller[T]) Patch(w http.ResponseWriter, r *http.Request) error {
	const op = "controller.Patch"

	var data T
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		c.logger(r, op).Debug("failed to decode request body", slog.String("error", err.Error()))
		return httperr.BadRequest("Invalid request body")
	}

	updated, err := c.repo.Update(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		return err
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, updated)
	return nil
}

// DeleteByID удаляет запись по {id} и отвечает 204 без тела.
func (c *Controller[T]) DeleteByID(w http.ResponseWriter, r *http.Request) error {
	if err := c.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (c *Controller[T]) logger(r *http.Request, op string) *slog.Logger {
	return c.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
