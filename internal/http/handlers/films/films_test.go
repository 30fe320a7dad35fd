package films_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/films-api/internal/events"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/films"
	"github.com/magabrotheeeer/films-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/models"
)

type MockFilmRepository struct {
	mock.Mock
}

func (m *MockFilmRepository) Query(ctx context.Context, page, pageSize int, filter models.Filter) ([]models.Film, error) {
	args := m.Called(ctx, page, pageSize, filter)
	items, _ := args.Get(0).([]models.Film)
	return items, args.Error(1)
}

func (m *MockFilmRepository) Count(ctx context.Context, filter models.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockFilmRepository) QueryByID(ctx context.Context, id string) (models.Film, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Film), args.Error(1)
}

func (m *MockFilmRepository) Search(ctx context.Context, c models.Criterion) ([]models.Film, error) {
	args := m.Called(ctx, c)
	items, _ := args.Get(0).([]models.Film)
	return items, args.Error(1)
}

func (m *MockFilmRepository) Create(ctx context.Context, data models.Film) (models.Film, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(models.Film), args.Error(1)
}

func (m *MockFilmRepository) Update(ctx context.Context, id string, data models.Film) (models.Film, error) {
	args := m.Called(ctx, id, data)
	return args.Get(0).(models.Film), args.Error(1)
}

func (m *MockFilmRepository) AppendComment(ctx context.Context, id string, c models.Comment) (models.Film, error) {
	args := m.Called(ctx, id, c)
	return args.Get(0).(models.Film), args.Error(1)
}

func (m *MockFilmRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) QueryByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, data models.User) (models.User, error) {
	args := m.Called(ctx, id, data)
	return args.Get(0).(models.User), args.Error(1)
}

// fakeLocker запоминает ключи и проверяет, что каждая блокировка снята.
type fakeLocker struct {
	mu       sync.Mutex
	keys     []string
	held     map[string]bool
	lockErr  error
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.keys = append(l.keys, key)
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released++
		return nil
	}, nil
}

type fakePublisher struct {
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) {
	p.events = append(p.events, e)
}

type fixture struct {
	films     *MockFilmRepository
	users     *MockUserRepository
	locker    *fakeLocker
	publisher *fakePublisher
	ctrl      *films.Controller
}

func newFixture() *fixture {
	f := &fixture{
		films:     new(MockFilmRepository),
		users:     new(MockUserRepository),
		locker:    newFakeLocker(),
		publisher: &fakePublisher{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.ctrl = films.New(log, f.films, f.users, f.locker, f.publisher)
	return f
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withPayload(r *http.Request, id string) *http.Request {
	p := &models.TokenPayload{ID: id, UserName: "alice"}
	return r.WithContext(middlewarectx.WithPayload(r.Context(), p))
}

func TestController_GetAll(t *testing.T) {
	t.Run("страница с фильтром и обеими ссылками", func(t *testing.T) {
		f := newFixture()
		items := []models.Film{{ID: "f7", Title: "Film 7", Genre: "comedy"}}
		filter := models.Filter{"genre": "comedy"}
		f.films.On("Query", mock.Anything, 2, 6, filter).Return(items, nil)
		f.films.On("Count", mock.Anything, filter).Return(14, nil)

		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/films?genre=comedy&page=2", nil)
		rr := httptest.NewRecorder()

		err := f.ctrl.GetAll(rr, req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"items": [{"id":"f7","title":"Film 7","genre":"comedy","owner":{"id":""},"comments":null}],
			"count": 14,
			"previous": "http://example.com/api/v1/films?genre=comedy&page=1",
			"next": "http://example.com/api/v1/films?genre=comedy&page=3"
		}`, rr.Body.String())
	})

	t.Run("неверный номер страницы даёт первую страницу без ссылок", func(t *testing.T) {
		f := newFixture()
		f.films.On("Query", mock.Anything, 1, 6, models.Filter(nil)).Return(nil, nil)
		f.films.On("Count", mock.Anything, models.Filter(nil)).Return(0, nil)

		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/films?page=abc", nil)
		rr := httptest.NewRecorder()

		err := f.ctrl.GetAll(rr, req)

		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[],"count":0,"previous":null,"next":null}`, rr.Body.String())
	})

	t.Run("ошибка подсчёта", func(t *testing.T) {
		f := newFixture()
		dbErr := errors.New("connection refused")
		f.films.On("Query", mock.Anything, 1, 6, models.Filter(nil)).Return([]models.Film{}, nil)
		f.films.On("Count", mock.Anything, models.Filter(nil)).Return(0, dbErr)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/films", nil)
		rr := httptest.NewRecorder()

		err := f.ctrl.GetAll(rr, req)

		assert.ErrorIs(t, err, dbErr)
		assert.Empty(t, rr.Body.String())
	})
}

func TestController_Post(t *testing.T) {
	created := models.Film{ID: "f2", Title: "Alien", Genre: "horror", Owner: models.Owner{ID: "u1", UserName: "alice"}}

	t.Run("создаёт фильм и добавляет его владельцу", func(t *testing.T) {
		f := newFixture()
		f.films.On("Create", mock.Anything, models.Film{
			Title: "Alien",
			Genre: "horror",
			Owner: models.Owner{ID: "u1"},
		}).Return(created, nil)
		f.users.On("QueryByID", mock.Anything, "u1").Return(models.User{ID: "u1", Films: []string{"f1"}}, nil)
		f.users.On("Update", mock.Anything, "u1", models.User{Films: []string{"f1", "f2"}}).
			Return(models.User{ID: "u1", Films: []string{"f1", "f2"}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", strings.NewReader(`{"title":"Alien","genre":"horror"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		err := f.ctrl.Post(rr, withPayload(req, "u1"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"f2"`)
		assert.Equal(t, []string{"user:u1"}, f.locker.keys)
		assert.Equal(t, 1, f.locker.released)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.FilmCreated, f.publisher.events[0].Type)
		f.films.AssertExpectations(t)
		f.users.AssertExpectations(t)
	})

	t.Run("поля из multipart-формы и изображение из контекста", func(t *testing.T) {
		f := newFixture()
		img := &models.Image{URLOriginal: "poster.png", URL: "http://s3/films/poster.png", Mimetype: "image/png", Size: 3}
		f.films.On("Create", mock.Anything, models.Film{
			Title: "Alien",
			Genre: "horror",
			Image: img,
			Owner: models.Owner{ID: "u1"},
		}).Return(created, nil)
		f.users.On("QueryByID", mock.Anything, "u1").Return(models.User{ID: "u1"}, nil)
		f.users.On("Update", mock.Anything, "u1", models.User{Films: []string{"f2"}}).Return(models.User{}, nil)

		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		require.NoError(t, mw.WriteField("title", "Alien"))
		require.NoError(t, mw.WriteField("genre", "horror"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req = withPayload(req, "u1")
		req = req.WithContext(middlewarectx.WithImage(req.Context(), img))
		rr := httptest.NewRecorder()

		err := f.ctrl.Post(rr, req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rr.Code)
		f.films.AssertExpectations(t)
	})

	t.Run("без данных токена", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", strings.NewReader(`{}`))

		err := f.ctrl.Post(httptest.NewRecorder(), req)

		assert.ErrorIs(t, err, films.ErrNoPayload)
		f.films.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("пустые поля не проходят проверку", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", strings.NewReader(`{"title":"Alien"}`))
		req.Header.Set("Content-Type", "application/json")

		err := f.ctrl.Post(httptest.NewRecorder(), withPayload(req, "u1"))

		e, ok := httperr.From(err)
		require.True(t, ok)
		assert.Equal(t, httperr.KindValidation, e.Kind)
	})

	t.Run("ошибка обновления владельца не откатывает создание", func(t *testing.T) {
		f := newFixture()
		notFound := httperr.NotFound("Wrong id for the query")
		f.films.On("Create", mock.Anything, mock.Anything).Return(created, nil)
		f.users.On("QueryByID", mock.Anything, "u1").Return(models.User{}, notFound)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", strings.NewReader(`{"title":"Alien","genre":"horror"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		err := f.ctrl.Post(rr, withPayload(req, "u1"))

		assert.ErrorIs(t, err, notFound)
		assert.Empty(t, rr.Body.String())
		assert.Empty(t, f.locker.held)
		assert.Empty(t, f.publisher.events)
		f.films.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("ошибка блокировки владельца", func(t *testing.T) {
		f := newFixture()
		f.locker.lockErr = errors.New("lock timeout")
		f.films.On("Create", mock.Anything, mock.Anything).Return(created, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/films", strings.NewReader(`{"title":"Alien","genre":"horror"}`))
		req.Header.Set("Content-Type", "application/json")

		err := f.ctrl.Post(httptest.NewRecorder(), withPayload(req, "u1"))

		assert.EqualError(t, err, "lock timeout")
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestController_DeleteByID(t *testing.T) {
	t.Run("удаляет фильм и убирает его из списка владельца", func(t *testing.T) {
		f := newFixture()
		f.films.On("Delete", mock.Anything, "f2").Return(nil)
		f.users.On("QueryByID", mock.Anything, "u1").Return(models.User{ID: "u1", Films: []string{"f1", "f2", "f3"}}, nil)
		f.users.On("Update", mock.Anything, "u1", models.User{Films: []string{"f1", "f3"}}).Return(models.User{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/films/f2", nil)
		rr := httptest.NewRecorder()

		err := f.ctrl.DeleteByID(rr, withPayload(withID(req, "f2"), "u1"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.Equal(t, []string{"user:u1"}, f.locker.keys)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.FilmDeleted, f.publisher.events[0].Type)
		f.users.AssertExpectations(t)
	})

	t.Run("последний фильм оставляет пустой, но не nil список", func(t *testing.T) {
		f := newFixture()
		f.films.On("Delete", mock.Anything, "f1").Return(nil)
		f.users.On("QueryByID", mock.Anything, "u1").Return(models.User{ID: "u1", Films: []string{"f1"}}, nil)
		f.users.On("Update", mock.Anything, "u1", models.User{Films: []string{}}).Return(models.User{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/films/f1", nil)

		err := f.ctrl.DeleteByID(httptest.NewRecorder(), withPayload(withID(req, "f1"), "u1"))

		require.NoError(t, err)
		f.users.AssertExpectations(t)
	})

	t.Run("без данных токена", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/films/f1", nil)

		err := f.ctrl.DeleteByID(httptest.NewRecorder(), withID(req, "f1"))

		require.Error(t, err)
		assert.Equal(t, "No token payload was found", err.Error())
		_, ok := httperr.From(err)
		assert.False(t, ok)
	})

	t.Run("фильм не найден", func(t *testing.T) {
		f := newFixture()
		notFound := httperr.NotFound("Wrong id for the delete")
		f.films.On("Delete", mock.Anything, "f9").Return(notFound)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/films/f9", nil)

		err := f.ctrl.DeleteByID(httptest.NewRecorder(), withPayload(withID(req, "f9"), "u1"))

		assert.ErrorIs(t, err, notFound)
		assert.Empty(t, f.locker.keys)
	})
}

func TestController_Patch(t *testing.T) {
	t.Run("меняет только название, жанр и изображение", func(t *testing.T) {
		f := newFixture()
		updated := models.Film{ID: "f1", Title: "Aliens", Genre: "horror", Comments: []models.Comment{{Comment: "first"}}}
		f.films.On("Update", mock.Anything, "f1", models.Film{Title: "Aliens"}).Return(updated, nil)

		body := `{"title":"Aliens","comments":[],"owner":{"id":"u9"}}`
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f1", strings.NewReader(body))
		rr := httptest.NewRecorder()

		err := f.ctrl.Patch(rr, withID(req, "f1"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.Contains(t, rr.Body.String(), `"comment":"first"`)
		f.films.AssertExpectations(t)
	})

	t.Run("некорректное тело", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f1", strings.NewReader(`{`))

		err := f.ctrl.Patch(httptest.NewRecorder(), withID(req, "f1"))

		assert.ErrorIs(t, err, httperr.BadRequest("Invalid request body"))
		f.films.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestController_AddComment(t *testing.T) {
	t.Run("добавляет комментарий со снимком автора", func(t *testing.T) {
		f := newFixture()
		existing := models.Comment{Comment: "first", Owner: models.Owner{ID: "u1", UserName: "alice"}}
		added := models.Comment{Comment: "great", Owner: models.Owner{ID: "u2", UserName: "bob"}}
		updated := models.Film{ID: "f1", Title: "Alien", Genre: "horror", Owner: models.Owner{ID: "u1"}, Comments: []models.Comment{existing, added}}

		f.users.On("QueryByID", mock.Anything, "u2").Return(models.User{ID: "u2", UserName: "bob", Password: "hash", Films: []string{"f5"}}, nil)
		f.films.On("AppendComment", mock.Anything, "f1", added).Return(updated, nil)

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f1/comments", strings.NewReader(`{"comment":"great"}`))
		rr := httptest.NewRecorder()

		err := f.ctrl.AddComment(rr, withPayload(withID(req, "f1"), "u2"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"comment":"great"`)
		assert.NotContains(t, rr.Body.String(), "hash")
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.FilmCommented, f.publisher.events[0].Type)
		assert.Equal(t, "great", f.publisher.events[0].Comment)
		f.films.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		f.films.AssertExpectations(t)
	})

	t.Run("некорректное тело", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f1/comments", strings.NewReader(`{`))

		err := f.ctrl.AddComment(httptest.NewRecorder(), withPayload(withID(req, "f1"), "u2"))

		assert.ErrorIs(t, err, httperr.BadRequest("Invalid request body"))
	})

	t.Run("пустой комментарий", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f1/comments", strings.NewReader(`{"comment":""}`))

		err := f.ctrl.AddComment(httptest.NewRecorder(), withPayload(withID(req, "f1"), "u2"))

		e, ok := httperr.From(err)
		require.True(t, ok)
		assert.Equal(t, httperr.KindValidation, e.Kind)
		f.films.AssertNotCalled(t, "AppendComment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("фильм не найден", func(t *testing.T) {
		f := newFixture()
		notFound := httperr.NotFound("Wrong id for the update")
		f.users.On("QueryByID", mock.Anything, "u2").Return(models.User{ID: "u2", UserName: "bob"}, nil)
		f.films.On("AppendComment", mock.Anything, "f9", mock.Anything).Return(models.Film{}, notFound)
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/films/f9/comments", strings.NewReader(`{"comment":"great"}`))
		rr := httptest.NewRecorder()

		err := f.ctrl.AddComment(rr, withPayload(withID(req, "f9"), "u2"))

		assert.ErrorIs(t, err, notFound)
		assert.Empty(t, rr.Body.String())
		assert.Empty(t, f.publisher.events)
	})
}
