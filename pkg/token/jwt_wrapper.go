package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsUser identifies the subject the way the booking platform's auth service
// encodes it ({"user": {"id": ...}}).
type ClaimsUser struct {
	ID string `json:"id"`
}

// Claims structure for custom claims in JWT
type Claims struct {
	User ClaimsUser `json:"user"`
	Role string     `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	// JWTSecret key for JWT signing and validation, replaced by SetSecret at startup
	JWTSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute

	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid token")
)

// SetSecret replaces the signing secret. Empty values are ignored.
func SetSecret(secret string) {
	if secret != "" {
		JWTSecret = []byte(secret)
	}
}

// GenerateJWT issues a token for userID. The chat service only verifies tokens;
// issuance lives here for tooling and tests.
func GenerateJWT(userID, role, issuer string) (string, error) {
	claims := Claims{
		User: ClaimsUser{ID: userID},
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(JWTSecret)
}

// ParseJWT parses a JWT and extracts the Claims
func ParseJWT(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.User.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Verifier resolves a bearer token to the user id it was issued for.
type Verifier struct{}

// Verify checks signature and expiry and returns the user id.
func (Verifier) Verify(tokenStr string) (string, error) {
	claims, err := ParseJWT(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.User.ID, nil
}
