// Package jwt реализует выпуск и проверку токенов доступа.
//
// Секрет и время жизни передаются в конструктор, поэтому сервис токенов
// не читает окружение сам и легко подменяется в тестах.
package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// Maker описывает сервис токенов.
type Maker interface {
	// GenerateToken подписывает токен над данными пользователя.
	GenerateToken(payload models.TokenPayload) (string, error)
	// VerifyToken проверяет подпись и срок жизни токена и возвращает его данные.
	VerifyToken(tokenStr string) (*models.TokenPayload, error)
}

// Claims — содержимое токена.
type Claims struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// MakerImpl подписывает токены алгоритмом HS256.
type MakerImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт сервис токенов с секретом и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
	}
}

// GenerateToken создаёт токен с id и userName пользователя.
func (m *MakerImpl) GenerateToken(payload models.TokenPayload) (string, error) {
	const op = "jwt.GenerateToken"

	now := time.Now()
	claims := Claims{
		ID:       payload.ID,
		UserName: payload.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// VerifyToken возвращает данные токена или 401 "Invalid Token".
func (m *MakerImpl) VerifyToken(tokenStr string) (*models.TokenPayload, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, invalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, invalidToken(errors.New("invalid claims"))
	}
	return &models.TokenPayload{ID: claims.ID, UserName: claims.UserName}, nil
}

func invalidToken(cause error) error {
	return httperr.Wrap(http.StatusUnauthorized, "Not Authorized", "Invalid Token", cause)
}
