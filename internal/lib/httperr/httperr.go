// Package httperr описывает таксономию ошибок, которые видит клиент API.
//
// Error — неизменяемое значение со статусом HTTP, короткой фразой статуса и
// сообщением. Поле Kind задаёт происхождение ошибки явно, поэтому обработчику
// ошибок не нужно разбирать типы ошибок хранилища или сторонних библиотек:
// адаптеры переводят свои ошибки в Error ещё на своей границе.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — дискриминант происхождения ошибки.
type Kind int

const (
	// KindHTTP — обычная ошибка таксономии со своим статусом.
	KindHTTP Kind = iota
	// KindValidation — данные не прошли проверку схемы (400).
	KindValidation
	// KindStorage — ошибка, которую вернул сервер базы данных (406).
	KindStorage
)

// StatusTokenNotFound — нестандартный статус для запросов без данных токена.
const StatusTokenNotFound = 498

// Error — ошибка, пригодная для ответа клиенту.
type Error struct {
	Kind          Kind
	Status        int
	StatusMessage string
	Message       string
	err           error // исходная причина, в ответ не попадает
}

// New создаёт ошибку таксономии без каких-либо проверок.
func New(status int, statusMessage, message string) *Error {
	return &Error{
		Kind:          KindHTTP,
		Status:        status,
		StatusMessage: statusMessage,
		Message:       message,
	}
}

// Wrap создаёт ошибку таксономии и сохраняет исходную причину.
func Wrap(status int, statusMessage, message string, cause error) *Error {
	e := New(status, statusMessage, message)
	e.err = cause
	return e
}

// NotFound — 404, запись не найдена.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, "Not Found", message)
}

// BadRequest — 400, некорректный ввод или неверные учётные данные.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, "Bad Request", message)
}

// Unauthorized — 401, нет или неверный заголовок авторизации.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "Not Authorized", message)
}

// TokenMissing — 498, в контексте запроса нет данных токена.
func TokenMissing(message string) *Error {
	return New(StatusTokenNotFound, "Token not found", message)
}

// Validation оборачивает ошибку проверки данных.
func Validation(cause error) *Error {
	return &Error{
		Kind:          KindValidation,
		Status:        http.StatusBadRequest,
		StatusMessage: "Bad Request",
		Message:       messageOf(cause),
		err:           cause,
	}
}

// Storage оборачивает ошибку, которую вернул сервер базы данных.
func Storage(cause error) *Error {
	return &Error{
		Kind:          KindStorage,
		Status:        http.StatusNotAcceptable,
		StatusMessage: "Not accepted",
		Message:       messageOf(cause),
		err:           cause,
	}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is сравнивает ошибки таксономии по значению, без учёта причины.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Status == t.Status &&
		e.StatusMessage == t.StatusMessage && e.Message == t.Message
}

// From достаёт ошибку таксономии из цепочки ошибок.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
