package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"forum-backend/internal/model"
)

const SessionTTL = 2 * time.Hour

type sessionClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens. Tokens are not
// stored server side, so they stay valid until they expire.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &TokenService{secret: []byte(secret), ttl: SessionTTL, now: time.Now}, nil
}

func (s *TokenService) Issue(user model.User) (model.SessionToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return model.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user.Public(),
	}, nil
}

// Verify checks signature and expiry only. Callers must re-check the
// account itself, since claims can be stale.
func (s *TokenService) Verify(token string) (model.SessionClaims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" || claims.ID == "" {
		return model.SessionClaims{}, model.ErrInvalidToken
	}

	return model.SessionClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
