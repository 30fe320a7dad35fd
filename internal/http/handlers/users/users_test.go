package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/films-api/internal/http/handlers/users"
	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/jwt"
	"github.com/magabrotheeeer/films-api/internal/lib/password"
	"github.com/magabrotheeeer/films-api/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Search(ctx context.Context, c models.Criterion) ([]models.User, error) {
	args := m.Called(ctx, c)
	found, _ := args.Get(0).([]models.User)
	return found, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, data models.User) (models.User, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(models.User), args.Error(1)
}

func newController(repo users.Repository) (*users.Controller, *password.Bcrypt, *jwt.MakerImpl) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := password.NewBcrypt(4)
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return users.New(log, repo, hasher, maker), hasher, maker
}

func TestController_Register(t *testing.T) {
	t.Run("создаёт пользователя с хэшем пароля", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, hasher, _ := newController(repo)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.UserName == "alice" && u.Password != "secret1" && hasher.Compare(u.Password, "secret1")
		})).Return(models.User{ID: "u1", UserName: "alice", Password: "hash"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"userName":"alice","password":"secret1"}`))
		rr := httptest.NewRecorder()

		err := ctrl.Register(rr, req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"id":"u1","userName":"alice","films":[]}`, rr.Body.String())
		repo.AssertExpectations(t)
	})

	t.Run("короткий пароль", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, _, _ := newController(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"userName":"alice","password":"123"}`))

		err := ctrl.Register(httptest.NewRecorder(), req)

		e, ok := httperr.From(err)
		require.True(t, ok)
		assert.Equal(t, httperr.KindValidation, e.Kind)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("имя уже занято", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, _, _ := newController(repo)
		dup := httperr.Storage(errors.New("duplicate key value violates unique constraint"))
		repo.On("Create", mock.Anything, mock.Anything).Return(models.User{}, dup)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"userName":"alice","password":"secret1"}`))
		rr := httptest.NewRecorder()

		err := ctrl.Register(rr, req)

		assert.ErrorIs(t, err, dup)
		assert.Empty(t, rr.Body.String())
	})
}

func TestController_Login(t *testing.T) {
	byName := models.Criterion{Key: "userName", Value: "alice"}

	t.Run("успешный вход", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, hasher, maker := newController(repo)
		hash, err := hasher.Hash("secret1")
		require.NoError(t, err)
		repo.On("Search", mock.Anything, byName).
			Return([]models.User{{ID: "u1", UserName: "alice", Password: hash, Films: []string{"f1"}}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"userName":"alice","password":"secret1"}`))
		rr := httptest.NewRecorder()

		err = ctrl.Login(rr, req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "password")

		var resp users.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, models.UserResponse{ID: "u1", UserName: "alice", Films: []string{"f1"}}, resp.User)

		payload, err := maker.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", payload.ID)
		assert.Equal(t, "alice", payload.UserName)
	})

	t.Run("нет пользователя и неверный пароль неразличимы", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, hasher, _ := newController(repo)
		hash, err := hasher.Hash("secret1")
		require.NoError(t, err)
		repo.On("Search", mock.Anything, byName).Return([]models.User{{ID: "u1", UserName: "alice", Password: hash}}, nil)
		repo.On("Search", mock.Anything, models.Criterion{Key: "userName", Value: "bob"}).Return(nil, nil)

		wrongPassword := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"userName":"alice","password":"wrong11"}`))
		unknownUser := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"userName":"bob","password":"secret1"}`))

		errPassword := ctrl.Login(httptest.NewRecorder(), wrongPassword)
		errUser := ctrl.Login(httptest.NewRecorder(), unknownUser)

		want := httperr.BadRequest("Invalid user or password")
		assert.ErrorIs(t, errPassword, want)
		assert.ErrorIs(t, errUser, want)
		assert.Equal(t, errPassword, errUser)
	})

	t.Run("ошибка поиска пробрасывается", func(t *testing.T) {
		repo := new(MockRepository)
		ctrl, _, _ := newController(repo)
		dbErr := errors.New("connection refused")
		repo.On("Search", mock.Anything, byName).Return(nil, dbErr)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"userName":"alice","password":"secret1"}`))

		err := ctrl.Login(httptest.NewRecorder(), req)

		assert.ErrorIs(t, err, dbErr)
	})
}
