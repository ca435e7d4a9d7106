package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrMissingSubject возвращается для токена без идентификатора пользователя.
var ErrMissingSubject = errors.New("token has no user_uid")

// ErrInvalidSubject возвращается, если user_uid не является UUID.
var ErrInvalidSubject = errors.New("token user_uid is not a uuid")

// CustomClaims данные пользователя внутри токена.
type CustomClaims struct {
	UserUID string `json:"user_uid"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken подписывает токен для userUID с ролью role.
func (j *MakerImpl) GenerateToken(userUID, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserUID: userUID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
// Принимается только HS256.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.UserUID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	if _, err := uuid.Parse(claims.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSubject)
	}
	return claims, nil
}
