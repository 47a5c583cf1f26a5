package keyset

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vendala/backoffice/pkg/logx"
)

// JWKSSource fetches signing keys from the provider's key-discovery endpoint
// and caches them in memory. It is safe for concurrent use: readers share the
// cache under an RWMutex, and concurrent misses on the same key id collapse
// into a single network fetch.
type JWKSSource struct {
	url          string
	client       *http.Client
	ttl          time.Duration
	fetchTimeout time.Duration
	limiter      *rate.Limiter
	group        singleflight.Group

	mu   sync.RWMutex
	keys map[string]SigningKey

	now func() time.Time // test hook
}

// JWKSOptions configures a JWKSSource.
type JWKSOptions struct {
	// TTL bounds how long a cached key is trusted. Default 24h.
	TTL time.Duration

	// FetchTimeout bounds a single discovery request. Default 30s.
	FetchTimeout time.Duration

	// FetchPerMinute caps discovery requests to the provider. Default 10.
	FetchPerMinute int

	// HTTPClient overrides the default client. Mainly for tests.
	HTTPClient *http.Client
}

// NewJWKSSource creates a key source against the given JWKS URL.
func NewJWKSSource(url string, opts JWKSOptions) *JWKSSource {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.FetchPerMinute <= 0 {
		opts.FetchPerMinute = 10
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &JWKSSource{
		url:          url,
		client:       client,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		limiter:      rate.NewLimiter(rate.Limit(float64(opts.FetchPerMinute)/60.0), opts.FetchPerMinute),
		keys:         make(map[string]SigningKey),
		now:          time.Now,
	}
}

// Key returns the public key for keyID. A cache miss — or a stale entry —
// triggers exactly one discovery fetch shared by all concurrent callers; if
// the provider still does not publish the key, the lookup fails and the
// caller must treat the token as unverifiable.
func (s *JWKSSource) Key(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	if cached, ok := s.lookup(keyID); ok {
		return cached, nil
	}

	_, err, _ := s.group.Do(keyID, func() (interface{}, error) {
		// Re-check under singleflight: another caller may have refreshed.
		if _, ok := s.lookup(keyID); ok {
			return nil, nil
		}
		return nil, s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	if cached, ok := s.lookup(keyID); ok {
		return cached, nil
	}
	return nil, ErrKeyNotFound(keyID)
}

func (s *JWKSSource) lookup(keyID string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.keys[keyID]
	if !ok || s.now().Sub(entry.FetchedAt) > s.ttl {
		return nil, false
	}
	return entry.PublicKey, true
}

// refresh fetches the JWKS document and replaces the cache with its contents.
func (s *JWKSSource) refresh(ctx context.Context) error {
	if !s.limiter.Allow() {
		logx.WithField("jwks_url", s.url).Warn("keyset: discovery rate limit exhausted")
		return ErrRegistry.New(CodeFetchRateLimited)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeKeyFetchFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logx.WithError(err).Field("jwks_url", s.url).Error("keyset: discovery request failed")
		return ErrRegistry.NewWithCause(CodeKeyFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logx.WithField("status", resp.StatusCode).Error("keyset: discovery returned non-200")
		return ErrRegistry.New(CodeKeyFetchFailed).WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ErrRegistry.NewWithCause(CodeKeyFetchFailed, err)
	}

	parsed, err := parseJWKS(body, s.now())
	if err != nil {
		return ErrRegistry.NewWithCause(CodeKeyFetchFailed, err)
	}

	s.mu.Lock()
	s.keys = parsed
	s.mu.Unlock()

	logx.WithField("keys", len(parsed)).Debug("keyset: cache refreshed")
	return nil
}

// ---------------------------------------------------------------------------
// JWKS document parsing
// ---------------------------------------------------------------------------

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseJWKS(data []byte, fetchedAt time.Time) (map[string]SigningKey, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse jwks document: %w", err)
	}

	keys := make(map[string]SigningKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			logx.WithError(err).Field("kid", k.Kid).Warn("keyset: skipping unparseable key")
			continue
		}
		keys[k.Kid] = SigningKey{KeyID: k.Kid, PublicKey: pub, FetchedAt: fetchedAt}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks document contains no usable RSA signing keys")
	}
	return keys, nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid public exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
