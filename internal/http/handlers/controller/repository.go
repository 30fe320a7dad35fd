package controller

import (
	"context"

	"github.com/magabrotheeeer/films-api/internal/models"
)

// Repository — контракт хранилища записей одного типа.
type Repository[T any] interface {
	// Query возвращает страницу записей. pageSize <= 0 отключает постраничную выборку.
	Query(ctx context.Context, page, pageSize int, filter models.Filter) ([]T, error)
	// Count возвращает число записей, подходящих под фильтр.
	Count(ctx context.Context, filter models.Filter) (int, error)
	// QueryByID возвращает запись или 404 "Wrong id for the query".
	QueryByID(ctx context.Context, id string) (T, error)
	// Search отбирает записи по равенству одного поля из разрешённого списка.
	Search(ctx context.Context, criterion models.Criterion) ([]T, error)
	Create(ctx context.Context, data T) (T, error)
	// Update меняет только непустые поля data и возвращает запись после изменения.
	Update(ctx context.Context, id string, data T) (T, error)
	Delete(ctx context.Context, id string) error
}
