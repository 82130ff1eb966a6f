// Package auth issues and verifies the bearer tokens that carry the
// owner identity. Tokens are HS256 JWTs with the user ID in the subject
// claim.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskwing/errors"
)

// Authenticator signs and verifies access tokens with a shared secret.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates an authenticator. ttl bounds token lifetime.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// IssueToken creates a signed token whose subject is the user ID.
func (a *Authenticator) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.Wrapf(err, "signing token for %s", userID)
	}
	return signed, nil
}

// VerifyToken validates the token signature and expiry and returns the
// subject. Any defect in the token comes back as an error.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "parsing token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// UserIDFromEmail derives the demo user identity from an email address:
// everything before the first @.
func UserIDFromEmail(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
