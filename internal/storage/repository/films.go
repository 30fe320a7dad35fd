package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/validate"
	"github.com/magabrotheeeer/films-api/internal/models"
	"github.com/magabrotheeeer/films-api/internal/storage"
)

// filmColumns — поля, по которым разрешены фильтр и поиск фильмов.
var filmColumns = map[string]string{
	"title": "f.title",
	"genre": "f.genre",
	"owner": "f.owner",
}

const filmSelect = `SELECT f.id, f.title, f.genre, f.image, f.comments,
		u.id AS owner_id, u.user_name AS owner_name
	FROM films f
	JOIN users u ON u.id = f.owner`

type filmRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Genre     string `db:"genre"`
	Image     []byte `db:"image"`
	Comments  []byte `db:"comments"`
	OwnerID   string `db:"owner_id"`
	OwnerName string `db:"owner_name"`
}

func (r filmRow) toModel() (models.Film, error) {
	film := models.Film{
		ID:       r.ID,
		Title:    r.Title,
		Genre:    r.Genre,
		Owner:    models.Owner{ID: r.OwnerID, UserName: r.OwnerName},
		Comments: []models.Comment{},
	}
	if len(r.Image) > 0 {
		var img models.Image
		if err := json.Unmarshal(r.Image, &img); err != nil {
			return models.Film{}, err
		}
		film.Image = &img
	}
	if len(r.Comments) > 0 {
		if err := json.Unmarshal(r.Comments, &film.Comments); err != nil {
			return models.Film{}, err
		}
	}
	return film, nil
}

// Films — хранилище фильмов. Владелец подставляется снимком пользователя
// без списка фильмов и пароля.
type Films struct {
	db *sqlx.DB
}

// NewFilms создаёт хранилище фильмов.
func NewFilms(s *storage.Storage) *Films {
	return &Films{db: s.DB}
}

// Query возвращает страницу фильмов в порядке создания.
func (r *Films) Query(ctx context.Context, page, pageSize int, filter models.Filter) ([]models.Film, error) {
	const op = "repository.Films.Query"

	if hasInvalidUUID(filter, "owner") {
		return []models.Film{}, nil
	}
	cond, args, err := where(filter, filmColumns, nil)
	if err != nil {
		return nil, err
	}
	limit, args := window(page, pageSize, args)

	var rows []filmRow
	query := filmSelect + cond + " ORDER BY f.created_at, f.id" + limit
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storage.Translate(op, err)
	}
	return toFilms(op, rows)
}

// Count возвращает число фильмов под фильтром.
func (r *Films) Count(ctx context.Context, filter models.Filter) (int, error) {
	const op = "repository.Films.Count"

	if hasInvalidUUID(filter, "owner") {
		return 0, nil
	}
	cond, args, err := where(filter, filmColumns, nil)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM films f"+cond, args...); err != nil {
		return 0, storage.Translate(op, err)
	}
	return count, nil
}

// QueryByID возвращает фильм или 404 "Wrong id for the query".
func (r *Films) QueryByID(ctx context.Context, id string) (models.Film, error) {
	const op = "repository.Films.QueryByID"

	if !validID(id) {
		return models.Film{}, httperr.NotFound("Wrong id for the query")
	}

	var row filmRow
	err := r.db.GetContext(ctx, &row, filmSelect+" WHERE f.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Film{}, httperr.NotFound("Wrong id for the query")
	}
	if err != nil {
		return models.Film{}, storage.Translate(op, err)
	}

	film, err := row.toModel()
	if err != nil {
		return models.Film{}, fmt.Errorf("%s: %w", op, err)
	}
	return film, nil
}

// Search отбирает фильмы по равенству одного поля: title, genre или owner.
func (r *Films) Search(ctx context.Context, c models.Criterion) ([]models.Film, error) {
	if _, ok := filmColumns[c.Key]; !ok {
		return nil, errWrongSearchKey
	}
	return r.Query(ctx, 0, 0, models.Filter{c.Key: c.Value})
}

// Create сохраняет фильм и возвращает его с подставленным владельцем.
func (r *Films) Create(ctx context.Context, data models.Film) (models.Film, error) {
	const op = "repository.Films.Create"

	if err := validate.Struct(data); err != nil {
		return models.Film{}, err
	}
	image, err := jsonArg(data.Image != nil, data.Image)
	if err != nil {
		return models.Film{}, fmt.Errorf("%s: %w", op, err)
	}
	comments := data.Comments
	if comments == nil {
		comments = []models.Comment{}
	}
	commentsJSON, err := json.Marshal(comments)
	if err != nil {
		return models.Film{}, fmt.Errorf("%s: %w", op, err)
	}

	var id string
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO films (title, genre, image, owner, comments)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		data.Title, data.Genre, image, data.Owner.ID, string(commentsJSON),
	).Scan(&id)
	if err != nil {
		return models.Film{}, storage.Translate(op, err)
	}
	return r.QueryByID(ctx, id)
}

// Update меняет непустые поля фильма. Владелец и комментарии не меняются:
// комментарии только добавляются через AppendComment.
func (r *Films) Update(ctx context.Context, id string, data models.Film) (models.Film, error) {
	const op = "repository.Films.Update"

	if !validID(id) {
		return models.Film{}, httperr.NotFound("Wrong id for the update")
	}
	image, err := jsonArg(data.Image != nil, data.Image)
	if err != nil {
		return models.Film{}, fmt.Errorf("%s: %w", op, err)
	}

	var updatedID string
	err = r.db.QueryRowContext(ctx,
		`UPDATE films SET
			title = COALESCE(NULLIF($2, ''), title),
			genre = COALESCE(NULLIF($3, ''), genre),
			image = COALESCE($4::jsonb, image)
		 WHERE id = $1
		 RETURNING id`,
		id, data.Title, data.Genre, image,
	).Scan(&updatedID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Film{}, httperr.NotFound("Wrong id for the update")
	}
	if err != nil {
		return models.Film{}, storage.Translate(op, err)
	}
	return r.QueryByID(ctx, updatedID)
}

// AppendComment дописывает комментарий в конец списка одной командой UPDATE,
// поэтому параллельные добавления не теряют друг друга.
func (r *Films) AppendComment(ctx context.Context, id string, c models.Comment) (models.Film, error) {
	const op = "repository.Films.AppendComment"

	if !validID(id) {
		return models.Film{}, httperr.NotFound("Wrong id for the update")
	}
	comment, err := json.Marshal(c)
	if err != nil {
		return models.Film{}, fmt.Errorf("%s: %w", op, err)
	}

	var updatedID string
	err = r.db.QueryRowContext(ctx,
		`UPDATE films SET comments = comments || jsonb_build_array($2::jsonb)
		 WHERE id = $1
		 RETURNING id`,
		id, string(comment),
	).Scan(&updatedID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Film{}, httperr.NotFound("Wrong id for the update")
	}
	if err != nil {
		return models.Film{}, storage.Translate(op, err)
	}
	return r.QueryByID(ctx, updatedID)
}

// Delete удаляет фильм или возвращает 404 "Wrong id for the delete".
func (r *Films) Delete(ctx context.Context, id string) error {
	const op = "repository.Films.Delete"

	if !validID(id) {
		return httperr.NotFound("Wrong id for the delete")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM films WHERE id = $1`, id)
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

func toFilms(op string, rows []filmRow) ([]models.Film, error) {
	films := make([]models.Film, 0, len(rows))
	for _, row := range rows {
		film, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		films = append(films, film)
	}
	return films, nil
}

// jsonArg возвращает JSON‑строку значения или nil, если значения нет.
func jsonArg(present bool, v any) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
