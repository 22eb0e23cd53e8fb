package auth

import (
	"errors"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	// ErrMissingToken indicates that the Authorization header was not provided.
	ErrMissingToken = errors.New("missing auth token")
	// ErrInvalidScheme indicates the header did not use the Bearer scheme.
	ErrInvalidScheme = errors.New("invalid authorization scheme")
)

// BearerToken parses the rapyuta.io style `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}

// SetBearerToken sets the Authorization header on an outgoing request.
func SetBearerToken(r *http.Request, token string) {
	r.Header.Set("Authorization", bearerPrefix+token)
}
