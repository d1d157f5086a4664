// Package auth authenticates gate commands with OAuth 2.0 bearer tokens.
//
// Tokens are checked by RFC 7662 introspection against an OpenID Connect
// provider such as Keycloak. The Guard applies the check to gRPC methods and
// HTTP routes; status and health stay public.
package auth
