package jwt

import "errors"

// Sentinel errors for token validation.
var (
	// ErrNoToken indicates that the request carries no bearer token.
	ErrNoToken = errors.New("no bearer token")

	// ErrInvalidPrefix indicates an Authorization header without the
	// Bearer scheme.
	ErrInvalidPrefix = errors.New("invalid authorization prefix")

	// ErrTokenInvalid indicates that the token failed parsing, signature
	// verification or time validation.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenInvalidIssuer indicates that the token issuer is not accepted.
	ErrTokenInvalidIssuer = errors.New("token issuer is invalid")

	// ErrTokenInvalidAudience indicates that no token audience is accepted.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrNoKeySet indicates a configuration without keys.
	ErrNoKeySet = errors.New("no key set configured")
)
