package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/validate"
	"github.com/magabrotheeeer/films-api/internal/models"
	"github.com/magabrotheeeer/films-api/internal/storage"
)

// userColumns — поля, по которым разрешены фильтр и поиск пользователей.
var userColumns = map[string]string{
	"userName": "user_name",
	"id":       "id",
}

const userSelect = `SELECT id, user_name, password, films FROM users`

type userRow struct {
	ID       string         `db:"id"`
	UserName string         `db:"user_name"`
	Password string         `db:"password"`
	Films    pq.StringArray `db:"films"`
}

func (r userRow) toModel() models.User {
	films := []string(r.Films)
	if films == nil {
		films = []string{}
	}
	return models.User{
		ID:       r.ID,
		UserName: r.UserName,
		Password: r.Password,
		Films:    films,
	}
}

// Users — хранилище пользователей.
type Users struct {
	db *sqlx.DB
}

// NewUsers создаёт хранилище пользователей.
func NewUsers(s *storage.Storage) *Users {
	return &Users{db: s.DB}
}

// Query возвращает страницу пользователей в порядке регистрации.
func (r *Users) Query(ctx context.Context, page, pageSize int, filter models.Filter) ([]models.User, error) {
	const op = "repository.Users.Query"

	if hasInvalidUUID(filter, "id") {
		return []models.User{}, nil
	}
	cond, args, err := where(filter, userColumns, nil)
	if err != nil {
		return nil, err
	}
	limit, args := window(page, pageSize, args)

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, userSelect+cond+" ORDER BY created_at, id"+limit, args...); err != nil {
		return nil, storage.Translate(op, err)
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

// Count возвращает число пользователей под фильтром.
func (r *Users) Count(ctx context.Context, filter models.Filter) (int, error) {
	const op = "repository.Users.Count"

	if hasInvalidUUID(filter, "id") {
		return 0, nil
	}
	cond, args, err := where(filter, userColumns, nil)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"+cond, args...); err != nil {
		return 0, storage.Translate(op, err)
	}
	return count, nil
}

// QueryByID возвращает пользователя или 404 "Wrong id for the query".
func (r *Users) QueryByID(ctx context.Context, id string) (models.User, error) {
	const op = "repository.Users.QueryByID"

	if !validID(id) {
		return models.User{}, httperr.NotFound("Wrong id for the query")
	}

	var row userRow
	err := r.db.GetContext(ctx, &row, userSelect+" WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, httperr.NotFound("Wrong id for the query")
	}
	if err != nil {
		return models.User{}, storage.Translate(op, err)
	}
	return row.toModel(), nil
}

// Search отбирает пользователей по userName или id.
func (r *Users) Search(ctx context.Context, c models.Criterion) ([]models.User, error) {
	if _, ok := userColumns[c.Key]; !ok {
		return nil, errWrongSearchKey
	}
	return r.Query(ctx, 0, 0, models.Filter{c.Key: c.Value})
}

// Create сохраняет пользователя. Повтор имени пользователя даёт ошибку хранилища (406).
func (r *Users) Create(ctx context.Context, data models.User) (models.User, error) {
	const op = "repository.Users.Create"

	if err := validate.Struct(data); err != nil {
		return models.User{}, err
	}
	films := data.Films
	if films == nil {
		films = []string{}
	}

	var row userRow
	err := r.db.GetContext(ctx, &row,
		`INSERT INTO users (user_name, password, films)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_name, password, films`,
		data.UserName, data.Password, pq.StringArray(films),
	)
	if err != nil {
		return models.User{}, storage.Translate(op, err)
	}
	return row.toModel(), nil
}

// Update меняет непустые поля пользователя. Films == nil оставляет список как есть,
// пустой срез очищает его.
func (r *Users) Update(ctx context.Context, id string, data models.User) (models.User, error) {
	const op = "repository.Users.Update"

	if !validID(id) {
		return models.User{}, httperr.NotFound("Wrong id for the update")
	}
	var films any
	if data.Films != nil {
		films = pq.StringArray(data.Films)
	}

	var row userRow
	err := r.db.GetContext(ctx, &row,
		`UPDATE users SET
			user_name = COALESCE(NULLIF($2, ''), user_name),
			password  = COALESCE(NULLIF($3, ''), password),
			films     = COALESCE($4::uuid[], films)
		 WHERE id = $1
		 RETURNING id, user_name, password, films`,
		id, data.UserName, data.Password, films,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, httperr.NotFound("Wrong id for the update")
	}
	if err != nil {
		return models.User{}, storage.Translate(op, err)
	}
	return row.toModel(), nil
}

// Delete удаляет пользователя вместе с его фильмами.
func (r *Users) Delete(ctx context.Context, id string) error {
	const op = "repository.Users.Delete"

	if !validID(id) {
		return httperr.NotFound("Wrong id for the delete")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storage.Translate(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return httperr.NotFound("Wrong id for the delete")
	}
	return nil
}
