package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890"

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(testSecret, tokenTTL)

	tests := []struct {
		name    string
		userUID string
		role    string
	}{
		{name: "admin", userUID: "0b9a3f39-6c43-4b5a-a8a4-6d3e1f7f2a11", role: "admin"},
		{name: "student", userUID: "5c1e8d2a-1f2b-4c3d-9e4f-5a6b7c8d9e0f", role: "user"},
		{name: "no role", userUID: "5c1e8d2a-1f2b-4c3d-9e4f-5a6b7c8d9e0f", role: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userUID, tt.role)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.userUID, claims.UserUID)
			assert.Equal(t, tt.role, claims.Role)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_Invalid(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims CustomClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() CustomClaims {
		return CustomClaims{
			UserUID: "0b9a3f39-6c43-4b5a-a8a4-6d3e1f7f2a11",
			Role:    "user",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage",
			token: func(_ *testing.T) string { return "not.a.token" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("other"), valid())
			},
		},
		{
			name: "other hmac algorithm",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid())
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := valid()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				c := valid()
				c.ExpiresAt = nil
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
		},
		{
			name: "no user",
			token: func(t *testing.T) string {
				c := valid()
				c.UserUID = ""
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
		},
		{
			name: "user is not a uuid",
			token: func(t *testing.T) string {
				c := valid()
				c.UserUID = "student-42"
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token(t))
			require.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_ParseToken_SubjectErrors(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)

	token, err := maker.GenerateToken("not-a-uuid", "user")
	require.NoError(t, err)
	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidSubject)

	token, err = maker.GenerateToken("", "user")
	require.NoError(t, err)
	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, ErrMissingSubject)
}
