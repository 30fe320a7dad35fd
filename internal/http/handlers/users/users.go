// Package users содержит HTTP‑обработчики регистрации и входа пользователей.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/lib/validate"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// Repository — операции над пользователями, нужные регистрации и входу.
type Repository interface {
	Search(ctx context.Context, c models.Criterion) ([]models.User, error)
	Create(ctx context.Context, data models.User) (models.User, error)
}

// Hasher хэширует и сверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// TokenMaker подписывает токены доступа.
type TokenMaker interface {
	GenerateToken(payload models.TokenPayload) (string, error)
}

// LoginResponse — ответ на успешный вход.
type LoginResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// Controller обрабатывает запросы регистрации и входа.
type Controller struct {
	log    *slog.Logger
	repo   Repository
	hasher Hasher
	tokens TokenMaker
}

// New создаёт Controller.
func New(log *slog.Logger, repo Repository, hasher Hasher, tokens TokenMaker) *Controller {
	return &Controller{
		log:    log,
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

var errInvalidCredentials = httperr.BadRequest("Invalid user or password")

// Register godoc
// @Summary Регистрация пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.Credentials true "Имя и пароль"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} response.StatusBody
// @Failure 406 {object} response.StatusBody "Имя уже занято"
// @Router /users/register [post]
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) error {
	const op = "users.Register"
	log := c.logger(r, op)

	var req models.Credentials
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Debug("failed to decode request body", sl.Err(err))
		return httperr.BadRequest("Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	hash, err := c.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	user, err := c.repo.Create(r.Context(), models.User{
		UserName: req.UserName,
		Password: hash,
	})
	if err != nil {
		return err
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user.Response())
	return nil
}

// Login godoc
// @Summary Вход пользователя
// @Description Проверяет имя и пароль и возвращает токен доступа.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.Credentials true "Имя и пароль"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} response.StatusBody "Неверное имя или пароль"
// @Router /users/login [post]
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) error {
	const op = "users.Login"
	log := c.logger(r, op)

	var req models.Credentials
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Debug("failed to decode request body", sl.Err(err))
		return httperr.BadRequest("Invalid request body")
	}

	found, err := c.repo.Search(r.Context(), models.Criterion{Key: "userName", Value: req.UserName})
	if err != nil {
		return err
	}
	// нет пользователя и неверный пароль неразличимы для клиента
	if len(found) == 0 {
		log.Debug("user not found")
		return errInvalidCredentials
	}
	user := found[0]
	if !c.hasher.Compare(user.Password, req.Password) {
		log.Debug("password mismatch", slog.String("user_id", user.ID))
		return errInvalidCredentials
	}

	token, err := c.tokens.GenerateToken(models.TokenPayload{ID: user.ID, UserName: user.UserName})
	if err != nil {
		return err
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	render.JSON(w, r, LoginResponse{Token: token, User: user.Response()})
	return nil
}

func (c *Controller) logger(r *http.Request, op string) *slog.Logger {
	return c.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
