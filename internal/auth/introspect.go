package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oshokin/gate-controller/internal/config"
)

// maxResponseSize bounds the introspection response body.
const maxResponseSize = 64 << 10

var errUnexpectedStatus = errors.New("unexpected introspection status")

// Verifier checks a bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// introspectionResponse holds the RFC 7662 fields the controller uses.
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Issuer   string `json:"iss"`
}

// Introspector validates tokens against the provider's introspection endpoint.
type Introspector struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

// IntrospectorOption configures an Introspector.
type IntrospectorOption func(*Introspector)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) IntrospectorOption {
	return func(i *Introspector) {
		if client != nil {
			i.client = client
		}
	}
}

// NewIntrospector builds an introspection client for the configured realm.
func NewIntrospector(cfg config.Auth, opts ...IntrospectorOption) *Introspector {
	i := &Introspector{
		endpoint:     IntrospectionURL(cfg.ServerURL, cfg.Realm),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: cfg.Timeout},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// IntrospectionURL returns the Keycloak introspection endpoint of a realm.
// A server without a scheme is assumed to speak plain HTTP.
func IntrospectionURL(server, realm string) string {
	base := strings.TrimSpace(server)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	base = strings.TrimRight(base, "/")

	return base + "/realms/" + url.PathEscape(realm) + "/protocol/openid-connect/token/introspect"
}

// Endpoint returns the URL tokens are posted to.
func (i *Introspector) Endpoint() string {
	return i.endpoint
}

// Verify posts the token for introspection and returns the caller identity.
func (i *Introspector) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", i.clientID)

	if i.clientSecret != "" {
		form.Set("client_secret", i.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Identity{}, fmt.Errorf("build introspection request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if i.clientSecret != "" {
		req.SetBasicAuth(i.clientID, i.clientSecret)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("introspect token: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var body introspectionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("decode introspection response: %w", err)
	}

	if !body.Active {
		return Identity{}, ErrInactiveToken
	}

	return Identity{
		Subject:  body.Subject,
		Username: body.Username,
		Issuer:   body.Issuer,
	}, nil
}
