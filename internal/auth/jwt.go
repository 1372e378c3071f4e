package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256-signed tokens against a shared secret.
//
// Only HMAC signing methods are accepted; an attacker must not be able to
// downgrade verification by minting a token with alg=none or an asymmetric
// algorithm. Expiry (exp) is enforced when present.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) JWTVerifier {
	return JWTVerifier{secret: []byte(secret)}
}

func (v JWTVerifier) Verify(token string) error {
	if token == "" || len(v.secret) == 0 {
		return ErrInvalidCredentials
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
