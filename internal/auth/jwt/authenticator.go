package jwt

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

const (
	bearerPrefix = "Bearer "

	// DefaultClockSkew is the tolerated clock difference for exp and nbf.
	DefaultClockSkew = 30 * time.Second
)

// Claims is the part of a validated token that is reported.
type Claims struct {
	Subject  string
	Issuer   string
	Audience string
}

// Authenticator validates bearer tokens.
type Authenticator struct {
	keys      jwk.Set
	issuers   []string
	audiences []string
	skew      time.Duration
	logger    observability.Logger
	metrics   *Metrics
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithClockSkew sets the tolerated clock skew.
func WithClockSkew(skew time.Duration) Option {
	return func(a *Authenticator) {
		a.skew = skew
	}
}

// WithKeySet uses keys instead of the configured key source.
func WithKeySet(keys jwk.Set) Option {
	return func(a *Authenticator) {
		a.keys = keys
	}
}

// New creates an authenticator from configuration.
func New(cfg *config.JWTConfig, opts ...Option) (*Authenticator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("jwt config is required")
	}

	a := &Authenticator{
		issuers:   cfg.Issuers,
		audiences: cfg.Audiences,
		skew:      DefaultClockSkew,
		logger:    observability.NopLogger(),
		metrics:   GetSharedMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.keys == nil {
		keys, err := loadKeySet(cfg)
		if err != nil {
			return nil, err
		}
		a.keys = keys
	}

	return a, nil
}

func loadKeySet(cfg *config.JWTConfig) (jwk.Set, error) {
	raw := []byte(cfg.JWKS)
	if cfg.JWKSFile != "" {
		data, err := os.ReadFile(cfg.JWKSFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read jwks file: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		return nil, ErrNoKeySet
	}

	keys, err := jwk.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwks: %w", err)
	}
	return keys, nil
}

// ExtractBearer returns the token of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrInvalidPrefix
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Authenticate validates the token of an Authorization header value.
func (a *Authenticator) Authenticate(header string) (*Claims, error) {
	raw, err := ExtractBearer(header)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			a.metrics.validations.WithLabelValues(resultInvalid).Inc()
		}
		return nil, err
	}

	claims, err := a.Validate(raw)
	if err != nil {
		a.metrics.validations.WithLabelValues(resultInvalid).Inc()
		a.logger.Debug("bearer token rejected", observability.Error(err))
		return nil, err
	}

	a.metrics.validations.WithLabelValues(resultValid).Inc()
	return claims, nil
}

// Validate verifies a compact serialized token.
func (a *Authenticator) Validate(raw string) (*Claims, error) {
	tok, err := jwxjwt.Parse([]byte(raw),
		jwxjwt.WithKeySet(a.keys),
		jwxjwt.WithValidate(true),
		jwxjwt.WithAcceptableSkew(a.skew),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if len(a.issuers) > 0 && !slices.Contains(a.issuers, tok.Issuer()) {
		return nil, fmt.Errorf("%w: %q", ErrTokenInvalidIssuer, tok.Issuer())
	}

	audience, err := a.acceptedAudience(tok.Audience())
	if err != nil {
		return nil, err
	}

	return &Claims{
		Subject:  tok.Subject(),
		Issuer:   tok.Issuer(),
		Audience: audience,
	}, nil
}

// acceptedAudience returns the first token audience that is accepted. With
// no configured audiences the first token audience is returned.
func (a *Authenticator) acceptedAudience(audiences []string) (string, error) {
	if len(a.audiences) == 0 {
		if len(audiences) == 0 {
			return "", nil
		}
		return audiences[0], nil
	}
	for _, aud := range audiences {
		if slices.Contains(a.audiences, aud) {
			return aud, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrTokenInvalidAudience, audiences)
}
