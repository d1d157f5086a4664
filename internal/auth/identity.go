package auth

import (
	"context"
	"errors"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	// ErrMissingToken is returned when no Authorization header is present.
	ErrMissingToken = errors.New("missing Authorization header")
	// ErrMalformedHeader is returned when the header is not a bearer credential.
	ErrMalformedHeader = errors.New("invalid Authorization header format, expected: Bearer <token>")
	// ErrInactiveToken is returned when the provider reports the token as inactive.
	ErrInactiveToken = errors.New("token is not active")
)

// Identity is the authenticated caller.
type Identity struct {
	// Subject is the provider's stable user ID ("sub").
	Subject string
	// Username is the preferred user name.
	Username string
	// Issuer is the token issuer ("iss").
	Issuer string
}

type identityKey struct{}

// ToContext returns a copy of ctx carrying the identity.
func ToContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)

	return id, ok
}

// ExtractBearer returns the token of a "Bearer <token>" header value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMalformedHeader
	}

	return token, nil
}
