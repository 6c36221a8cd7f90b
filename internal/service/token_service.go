package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/raycargo/backoffice/internal/domain"
)

const (
	tokenIssuer     = "backoffice"
	accessTokenType = "access"
)

// Claims are the custom claims carried by access tokens.
type Claims struct {
	Sub  string      `json:"sub"`
	Role domain.Role `json:"role"`
	Type string      `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 access tokens. Credentials are
// checked by the identity system; this service only trusts its own tokens.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// Issue signs an access token for subject with role.
func (s *TokenService) Issue(subject string, role domain.Role) (string, error) {
	if subject == "" {
		return "", &domain.ErrValidation{Field: "sub", Message: "is required"}
	}
	if !role.Valid() {
		return "", &domain.ErrValidation{Field: "role", Message: "must be admin, worker or client"}
	}
	now := s.now()
	claims := Claims{
		Sub:  subject,
		Role: role,
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses an access token and returns the actor it identifies.
func (s *TokenService) Validate(tokenString string) (*domain.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != accessTokenType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	if claims.Sub == "" || !claims.Role.Valid() {
		return nil, &domain.ErrUnauthorized{Message: "token carries no valid subject or role"}
	}
	return &domain.Actor{ID: claims.Sub, Role: claims.Role}, nil
}
