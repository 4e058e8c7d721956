package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/geethasandesh/articket/internal/domain"
)

// TokenManager verifies identity tokens issued by the external auth
// collaborator and can mint them for tests and tooling.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims is the identity claim carried in a token: who the caller is, their
// role, and their project scope. The core trusts it as-is.
type Claims struct {
	UID             string      `json:"uid"`
	Email           string      `json:"email"`
	Role            domain.Role `json:"role"`
	Project         string      `json:"project,omitempty"`
	ManagedProjects []string    `json:"managed_projects,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claim into the domain identity.
func (c *Claims) Caller() domain.Caller {
	return domain.Caller{
		UID:             c.UID,
		Email:           c.Email,
		Role:            c.Role,
		Project:         c.Project,
		ManagedProjects: c.ManagedProjects,
	}
}

// GenerateToken builds and signs a token for the caller.
func (tm *TokenManager) GenerateToken(caller domain.Caller) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		UID:             caller.UID,
		Email:           caller.Email,
		Role:            caller.Role,
		Project:         caller.Project,
		ManagedProjects: caller.ManagedProjects,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
