package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/foodgram-backend/errs"
)

// Revoker records logged-out token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NewInvalidTokenError()
	}
	return uint(id), nil
}

// TokenService issues and verifies HS256 auth tokens. Each token carries a
// random jti so a single token can be revoked on logout.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoker Revoker
	now     func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, revoker Revoker) (*TokenService, error) {
	if secret == "" {
		return nil, errs.NewEnvironmentVariableError("JWT_SECRET")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  "foodgram",
		revoker: revoker,
		now:     time.Now,
	}, nil
}

func (s *TokenService) Issue(userID uint) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry and revocation.
func (s *TokenService) Parse(ctx context.Context, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.NewExpiredTokenError()
		}
		return nil, errs.NewInvalidTokenError()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errs.NewInvalidTokenError()
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errs.NewInvalidTokenError()
		}
	}
	return claims, nil
}

func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoker == nil {
		return nil
	}
	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revoker.Revoke(ctx, claims.ID, expiresAt)
}
