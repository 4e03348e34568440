package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by a gateway bearer token, per spec:
// sub (principal id), roles, exp.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Authenticator issues and verifies HS256 bearer tokens signed with a
// shared SECRET_KEY. Unlike the teacher's RS256 Task Tokens (asymmetric,
// bound to a CA), this gateway's callers are trusted services and
// end users sharing one symmetric secret, per spec §6.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAuthenticator creates an Authenticator. secret must be non-empty;
// boot must abort if it is not configured (see cmd/gateway).
func NewAuthenticator(secret []byte, issuer string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue creates a signed bearer token for subjectID with the given roles.
func (a *Authenticator) Issue(subjectID string, roles []string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, returning its claims.
func (a *Authenticator) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// PrincipalFromClaims builds the authoritative Principal from verified claims.
func PrincipalFromClaims(claims *Claims) Principal {
	return NewPrincipal(claims.Subject, claims.Roles)
}
