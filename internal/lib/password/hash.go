// Package password хэширует пароли пользователей и сверяет их с хэшем.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher описывает сервис хэширования паролей.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Bcrypt хэширует пароли алгоритмом bcrypt с заданной стоимостью.
type Bcrypt struct {
	cost int
}

// NewBcrypt создаёт хэшер. Нулевая стоимость заменяется на bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (b *Bcrypt) Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сообщает, соответствует ли пароль хэшу.
func (b *Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
