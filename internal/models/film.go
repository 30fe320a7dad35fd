// Package models содержит доменные структуры сервиса: фильмы, комментарии,
// пользователей и данные токена.
package models

// Film представляет фильм, которым владеет пользователь.
// Владелец задаётся при создании и больше не меняется.
type Film struct {
	ID       string    `json:"id"`
	Title    string    `json:"title" validate:"required"`
	Genre    string    `json:"genre" validate:"required"`
	Image    *Image    `json:"image,omitempty"`
	Owner    Owner     `json:"owner"`
	Comments []Comment `json:"comments"`
}

// Owner — снимок пользователя, встроенный в фильм или комментарий.
// Список фильмов и хэш пароля сюда не попадают.
type Owner struct {
	ID       string `json:"id" validate:"required"`
	UserName string `json:"userName,omitempty"`
}

// Comment — комментарий к фильму. Автор сохраняется снимком на момент
// добавления и позже не обновляется.
type Comment struct {
	Comment string `json:"comment"`
	Owner   Owner  `json:"owner"`
}

// Image описывает загруженный файл изображения.
type Image struct {
	URLOriginal string `json:"urlOriginal"`
	URL         string `json:"url"`
	Mimetype    string `json:"mimetype"`
	Size        int64  `json:"size"`
}

// FilmRequest используется для приёма данных фильма из запроса.
type FilmRequest struct {
	Title string `json:"title" validate:"required"`
	Genre string `json:"genre" validate:"required"`
}

// FilmPatch — поля фильма, которые владелец может изменить.
type FilmPatch struct {
	Title string `json:"title"`
	Genre string `json:"genre"`
	Image *Image `json:"image,omitempty"`
}

// CommentRequest используется для приёма комментария из запроса.
type CommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}
