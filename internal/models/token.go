package models

// TokenPayload — данные, которые достаются из проверенного токена
// и живут только в контексте запроса.
type TokenPayload struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
}
