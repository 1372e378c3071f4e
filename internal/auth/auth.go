// Package auth verifies client credentials for signaling connections.
package auth

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/config"
)

type Verifier interface {
	Verify(credential string) error
}

func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return NoneVerifier{}, nil
	case config.AuthModeAPIKey:
		return APIKeyVerifier{Expected: cfg.APIKey}, nil
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// NoneVerifier accepts everything, including empty credentials. Used when
// AUTH_MODE=none (the default for dev deployments).
type NoneVerifier struct{}

func (NoneVerifier) Verify(string) error { return nil }

var ErrMissingCredentials = errors.New("missing credentials")

// CredentialFromQuery extracts the credential for the configured auth mode
// from URL query parameters. ErrMissingCredentials means the client did not
// attempt query-string auth at all (it may still auth via a first message).
func CredentialFromQuery(mode config.AuthMode, q url.Values) (string, error) {
	switch mode {
	case config.AuthModeNone:
		return "", nil
	case config.AuthModeAPIKey:
		if apiKey := q.Get("apiKey"); apiKey != "" {
			return apiKey, nil
		}
		return "", ErrMissingCredentials
	case config.AuthModeJWT:
		if token := q.Get("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingCredentials
	default:
		return "", fmt.Errorf("unsupported auth mode %q", mode)
	}
}
