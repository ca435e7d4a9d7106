// Package jwt проверяет токены внешнего провайдера идентификации.
//
// Токен несёт идентификатор пользователя и роль. Генерация нужна
// для тестов и служебных утилит, сервис сам токены не выдаёт.
package jwt

import (
	"time"
)

// Maker описывает генерацию и разбор JWT токенов.
type Maker interface {
	GenerateToken(userUID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на общем секрете HS256.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl по секретному ключу и времени жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
