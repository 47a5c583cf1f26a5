// Package keyset owns the identity provider's public signing keys: discovery,
// caching, and the startup bootstrap. Callers never handle raw JWKS documents;
// they ask for a key by id and either get one or fail closed.
package keyset

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"

	"github.com/vendala/backoffice/pkg/errx"
)

// Source resolves a signing key by its key id.
type Source interface {
	Key(ctx context.Context, keyID string) (*rsa.PublicKey, error)
}

// SigningKey is a cached provider key.
type SigningKey struct {
	KeyID     string
	PublicKey *rsa.PublicKey
	FetchedAt time.Time
}

var ErrRegistry = errx.NewRegistry("KEYSET")

var (
	// CodeKeyNotFound: the provider does not publish a key with that id.
	CodeKeyNotFound = ErrRegistry.Register("KEY_NOT_FOUND", errx.TypeAuthorization, http.StatusUnauthorized, "Signing key not found")

	// CodeKeyFetchFailed: discovery failed (network, timeout, bad document).
	// Surfaces to callers as an Unauthorized outcome; logged distinctly.
	CodeKeyFetchFailed = ErrRegistry.Register("KEY_FETCH_FAILED", errx.TypeExternal, http.StatusBadGateway, "Signing key fetch failed")

	// CodeFetchRateLimited: the per-minute discovery budget is exhausted.
	CodeFetchRateLimited = ErrRegistry.Register("FETCH_RATE_LIMITED", errx.TypeExternal, http.StatusBadGateway, "Signing key fetch rate limited")
)

func ErrKeyNotFound(keyID string) *errx.Error {
	return ErrRegistry.New(CodeKeyNotFound).WithDetail("key_id", keyID)
}
