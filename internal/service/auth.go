package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"phishing-admin/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

type AuthService interface {
	Login(password string) (string, time.Time, error) // Returns JWT token, expiration time, and error
	ValidateToken(token string) (*models.Claims, error)
}

// AuthOptions select how the admin password is checked.
type AuthOptions struct {
	Password         string
	PasswordHash     string // argon2id, see HashPassword
	FallbackPassword string // legacy shared password; empty disables it
	JWTSecret        string
	TokenTTL         time.Duration
}

type authService struct {
	opts   AuthOptions
	secret []byte
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthService(opts AuthOptions, logger *zap.Logger) (AuthService, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}

	secret := []byte(opts.JWTSecret)
	if len(secret) == 0 {
		var err error
		secret, err = generateRandomBytes(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		logger.Warn("auth.jwt_secret not set, using a per-process secret; tokens end with the process")
	}

	if opts.PasswordHash == "" && opts.Password == "" && opts.FallbackPassword == "" {
		logger.Warn("No admin password configured, every login will be rejected")
	}
	if opts.FallbackPassword != "" {
		logger.Warn("Fallback admin password is enabled; disable auth.fallback_password outside development")
	}

	return &authService{
		opts:   opts,
		secret: secret,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (s *authService) Login(password string) (string, time.Time, error) {
	switch {
	case s.matchesConfigured(password):
	case s.opts.FallbackPassword != "" && constantTimeEqual(password, s.opts.FallbackPassword):
		s.logger.Warn("Admin logged in with the fallback password")
	default:
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expirationTime := now.Add(s.opts.TokenTTL)
	claims := &models.Claims{
		Role: models.AdminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   models.AdminSubject,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Admin logged in successfully.")
	return tokenString, expirationTime, nil
}

func (s *authService) matchesConfigured(password string) bool {
	if password == "" {
		return false
	}
	if s.opts.PasswordHash != "" {
		ok, err := VerifyPassword(s.opts.PasswordHash, password)
		if err != nil {
			s.logger.Error("Invalid admin password hash", zap.Error(err))
			return false
		}
		return ok
	}
	return s.opts.Password != "" && constantTimeEqual(password, s.opts.Password)
}

func (s *authService) ValidateToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithSubject(models.AdminSubject))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// HashPassword uses Argon2id to hash the password.
// Format: $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH
func HashPassword(password string) (string, error) {
	salt, err := generateRandomBytes(16)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// VerifyPassword compares a plaintext password with a HashPassword result.
func VerifyPassword(encoded, password string) (bool, error) {
	sections := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	// Expected format: ["argon2id", "v=19", "m=65536,t=1,p=4", "salt", "hash"]
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid hash version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false, fmt.Errorf("invalid hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// generateRandomBytes generates a cryptographically secure random byte slice.
func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
