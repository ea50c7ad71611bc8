package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apimanager/internal/config"
)

const testKeyID = "test-key-id"

type testKeys struct {
	private jwk.Key
	public  jwk.Set
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(rsaKey)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.FromRaw(&rsaKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return testKeys{private: priv, public: set}
}

func (k testKeys) sign(t *testing.T, build func(*jwxjwt.Builder) *jwxjwt.Builder) string {
	t.Helper()

	tok, err := build(jwxjwt.NewBuilder()).Build()
	require.NoError(t, err)

	signed, err := jwxjwt.Sign(tok, jwxjwt.WithKey(jwa.RS256, k.private))
	require.NoError(t, err)
	return string(signed)
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		header        string
		expectedToken string
		expectedError error
	}{
		{name: "Valid bearer", header: "Bearer abc.def.ghi", expectedToken: "abc.def.ghi"},
		{name: "Case insensitive scheme", header: "bearer abc", expectedToken: "abc"},
		{name: "Empty header", header: "", expectedError: ErrNoToken},
		{name: "Empty token", header: "Bearer   ", expectedError: ErrNoToken},
		{name: "Other scheme", header: "Basic dXNlcjpwYXNz", expectedError: ErrInvalidPrefix},
		{name: "Too short", header: "Bear", expectedError: ErrInvalidPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			token, err := ExtractBearer(tt.header)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedToken, token)
		})
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	other := newTestKeys(t)

	auth, err := New(&config.JWTConfig{
		Issuers:   []string{"https://issuer.example.com"},
		Audiences: []string{"bookstore", "library"},
	}, WithKeySet(keys.public))
	require.NoError(t, err)

	valid := keys.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
		return b.Issuer("https://issuer.example.com").
			Subject("user-1").
			Audience([]string{"other", "library"}).
			Expiration(time.Now().Add(time.Hour))
	})

	claims, err := auth.Authenticate("Bearer " + valid)
	require.NoError(t, err)
	assert.Equal(t, "https://issuer.example.com", claims.Issuer)
	assert.Equal(t, "library", claims.Audience)
	assert.Equal(t, "user-1", claims.Subject)

	tests := []struct {
		name          string
		token         string
		expectedError error
	}{
		{
			name: "Expired token",
			token: keys.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
				return b.Issuer("https://issuer.example.com").
					Audience([]string{"bookstore"}).
					Expiration(time.Now().Add(-time.Hour))
			}),
			expectedError: ErrTokenInvalid,
		},
		{
			name: "Wrong signing key",
			token: other.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
				return b.Issuer("https://issuer.example.com").Audience([]string{"bookstore"})
			}),
			expectedError: ErrTokenInvalid,
		},
		{
			name: "Unknown issuer",
			token: keys.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
				return b.Issuer("https://evil.example.com").Audience([]string{"bookstore"})
			}),
			expectedError: ErrTokenInvalidIssuer,
		},
		{
			name: "Unknown audience",
			token: keys.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
				return b.Issuer("https://issuer.example.com").Audience([]string{"other"})
			}),
			expectedError: ErrTokenInvalidAudience,
		},
		{
			name:          "Garbage",
			token:         "not-a-token",
			expectedError: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := auth.Authenticate("Bearer " + tt.token)
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestAuthenticator_NoRestrictions(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	auth, err := New(&config.JWTConfig{}, WithKeySet(keys.public))
	require.NoError(t, err)

	token := keys.sign(t, func(b *jwxjwt.Builder) *jwxjwt.Builder {
		return b.Issuer("any").Audience([]string{"first", "second"})
	})

	claims, err := auth.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "any", claims.Issuer)
	assert.Equal(t, "first", claims.Audience)

	_, err = auth.Authenticate("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNew_KeySources(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	raw, err := json.Marshal(keys.public)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	t.Run("Inline JWKS", func(t *testing.T) {
		t.Parallel()
		auth, err := New(&config.JWTConfig{JWKS: string(raw)})
		require.NoError(t, err)
		assert.Equal(t, 1, auth.keys.Len())
	})

	t.Run("JWKS file", func(t *testing.T) {
		t.Parallel()
		auth, err := New(&config.JWTConfig{JWKSFile: path})
		require.NoError(t, err)
		assert.Equal(t, 1, auth.keys.Len())
	})

	t.Run("Missing file", func(t *testing.T) {
		t.Parallel()
		_, err := New(&config.JWTConfig{JWKSFile: filepath.Join(t.TempDir(), "missing.json")})
		assert.Error(t, err)
	})

	t.Run("No keys", func(t *testing.T) {
		t.Parallel()
		_, err := New(&config.JWTConfig{})
		assert.ErrorIs(t, err, ErrNoKeySet)
	})

	t.Run("Bad JWKS", func(t *testing.T) {
		t.Parallel()
		_, err := New(&config.JWTConfig{JWKS: "{"})
		assert.Error(t, err)
	})

	t.Run("Nil config", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil)
		assert.Error(t, err)
	})
}
