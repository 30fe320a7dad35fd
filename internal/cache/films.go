package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/films-api/internal/http/handlers/controller"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/models"
)

const filmKeyPrefix = "film:"

// FilmStore — хранилище фильмов с атомарным добавлением комментария.
type FilmStore interface {
	controller.Repository[models.Film]
	AppendComment(ctx context.Context, id string, c models.Comment) (models.Film, error)
}

// FilmRepository кэширует чтение фильма по id и сбрасывает кэш при изменении.
// Ошибки redis только логируются: источник правды — хранилище.
type FilmRepository struct {
	FilmStore
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewFilmRepository оборачивает хранилище фильмов кэшем.
func NewFilmRepository(log *slog.Logger, repo FilmStore, cache *Cache, ttl time.Duration) *FilmRepository {
	return &FilmRepository{
		FilmStore: repo,
		cache:     cache,
		ttl:       ttl,
		log:       log,
	}
}

// QueryByID сначала ищет фильм в кэше.
func (r *FilmRepository) QueryByID(ctx context.Context, id string) (models.Film, error) {
	const op = "cache.FilmRepository.QueryByID"
	log := r.log.With(slog.String("op", op), slog.String("film_id", id))

	var film models.Film
	found, err := r.cache.Get(ctx, filmKeyPrefix+id, &film)
	if err != nil {
		log.Warn("failed to read film from cache", sl.Err(err))
	}
	if found {
		return film, nil
	}

	film, err = r.FilmStore.QueryByID(ctx, id)
	if err != nil {
		return models.Film{}, err
	}
	if err = r.cache.Set(ctx, filmKeyPrefix+id, film, r.ttl); err != nil {
		log.Warn("failed to cache film", sl.Err(err))
	}
	return film, nil
}

func (r *FilmRepository) Update(ctx context.Context, id string, data models.Film) (models.Film, error) {
	film, err := r.FilmStore.Update(ctx, id, data)
	r.invalidate(ctx, id)
	if err != nil {
		return models.Film{}, err
	}
	return film, nil
}

func (r *FilmRepository) AppendComment(ctx context.Context, id string, c models.Comment) (models.Film, error) {
	film, err := r.FilmStore.AppendComment(ctx, id, c)
	r.invalidate(ctx, id)
	if err != nil {
		return models.Film{}, err
	}
	return film, nil
}

func (r *FilmRepository) Delete(ctx context.Context, id string) error {
	err := r.FilmStore.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *FilmRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Invalidate(ctx, filmKeyPrefix+id); err != nil {
		r.log.Warn("failed to invalidate film cache", slog.String("film_id", id), sl.Err(err))
	}
}
