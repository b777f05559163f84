package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/jewelstock/internal/config"
)

const issuer = "jewelstock"

var (
	// ErrInvalidCredentials indicates the shared password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSession indicates a missing, expired or tampered session token.
	ErrInvalidSession = errors.New("invalid session")
)

// Claims is the session token payload. The gate is a single shared password,
// so the token only proves that the password was presented.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager checks the shared password and issues/validates session tokens.
type Manager struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewManager prepares the password hash. A plain APP_PASSWORD is hashed once
// at startup so it is never compared in clear text.
func NewManager(cfg config.AuthConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = generated
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("APP_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must not be empty")
	}

	return &Manager{
		hash:   hash,
		secret: []byte(cfg.SessionSecret),
		ttl:    cfg.SessionTTL,
		logger: logger,
		now:    time.Now,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for APP_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// TTL is how long an issued session stays valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login compares password against the shared hash and returns a signed token.
func (m *Manager) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(m.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "staff",
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}

	m.logger.Info("session issued", zap.String("jti", claims.ID))
	return token, nil
}

// Validate parses a session token and checks signature, issuer and expiry.
func (m *Manager) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
