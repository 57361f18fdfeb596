package auth

import (
	"fmt"
	"time"

	"chat-relay/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed identity claim carried by every credential:
// who the bearer is, plus the registered expiry.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed credentials. Validation is
// local: signature check plus expiry, no round trip to an issuer.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) TokenService {
	return TokenService{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed HS256 credential for the given identity.
func (s TokenService) Generate(identity domain.UserID) (string, error) {
	now := time.Now()
	claims := &Claims{
		Identity: string(identity),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-relay",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks signature and expiry and returns the claimed
// identity. Any failure is returned as-is; callers treat every
// validation error as an authorization rejection.
func (s TokenService) Validate(token string) (domain.UserID, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	return domain.UserID(claims.Identity), nil
}
