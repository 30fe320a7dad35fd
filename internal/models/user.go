package models

// User представляет зарегистрированного пользователя.
// Films хранит идентификаторы фильмов пользователя в порядке добавления.
type User struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName" validate:"required"`
	Password string   `json:"password" validate:"required"` // хэш пароля после регистрации
	Films    []string `json:"films"`
}

// UserResponse — представление пользователя для ответа клиенту, без хэша пароля.
type UserResponse struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Films    []string `json:"films"`
}

// Response возвращает безопасное для ответа представление пользователя.
func (u User) Response() UserResponse {
	films := u.Films
	if films == nil {
		films = []string{}
	}
	return UserResponse{
		ID:       u.ID,
		UserName: u.UserName,
		Films:    films,
	}
}

// Snapshot возвращает снимок пользователя для встраивания в фильм или комментарий.
func (u User) Snapshot() Owner {
	return Owner{ID: u.ID, UserName: u.UserName}
}

// Credentials — данные для регистрации и входа.
type Credentials struct {
	UserName string `json:"userName" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}
