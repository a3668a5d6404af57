package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuth(t *testing.T, opts AuthOptions) *authService {
	t.Helper()
	svc, err := NewAuthService(opts, zap.NewNop())
	require.NoError(t, err)
	return svc.(*authService)
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("hashed-secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		opts     AuthOptions
		password string
		wantOK   bool
	}{
		{"configured password", AuthOptions{Password: "s3cret"}, "s3cret", true},
		{"wrong password", AuthOptions{Password: "s3cret"}, "s3cret ", false},
		{"empty input", AuthOptions{Password: "s3cret"}, "", false},
		{"nothing configured", AuthOptions{}, "", false},
		{"nothing configured non-empty input", AuthOptions{}, "anything", false},
		{"fallback disabled by default", AuthOptions{Password: "s3cret"}, "123asd!@#", false},
		{"fallback enabled", AuthOptions{Password: "s3cret", FallbackPassword: "123asd!@#"}, "123asd!@#", true},
		{"configured still works with fallback", AuthOptions{Password: "s3cret", FallbackPassword: "123asd!@#"}, "s3cret", true},
		{"hash match", AuthOptions{PasswordHash: hash}, "hashed-secret", true},
		{"hash mismatch", AuthOptions{PasswordHash: hash}, "hashed-secreT", false},
		{"hash wins over plaintext", AuthOptions{PasswordHash: hash, Password: "plain"}, "plain", false},
		{"broken hash", AuthOptions{PasswordHash: "$argon2id$garbage"}, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAuth(t, tt.opts)
			token, expires, err := svc.Login(tt.password)
			if !tt.wantOK {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.True(t, expires.After(time.Now()))

			claims, err := svc.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, "admin", claims.Subject)
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newAuth(t, AuthOptions{Password: "pw", JWTSecret: "one", TokenTTL: time.Hour})
	token, _, err := svc.Login("pw")
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		other := newAuth(t, AuthOptions{Password: "pw", JWTSecret: "two"})
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "admin"})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=65536,t=1,p=4$")

	ok, err := VerifyPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "battery staple")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ per hash")
}
