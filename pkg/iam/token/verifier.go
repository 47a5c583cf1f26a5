// Package token verifies bearer tokens issued by the external identity
// provider and normalizes their claims for the rest of the pipeline.
package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam"
	"github.com/vendala/backoffice/pkg/iam/keyset"
	"github.com/vendala/backoffice/pkg/kernel"
	"github.com/vendala/backoffice/pkg/logx"
)

// Verifier validates a bearer token's signature, lifetime, issuer, and
// client binding. Every failure collapses to a single Unauthorized outcome;
// the discriminating detail is logged server-side only.
type Verifier struct {
	source   keyset.Source
	issuers  map[string]struct{}
	clientID string
	parser   *jwt.Parser
}

// NewVerifier builds a verifier. issuerAllowList holds every URL the provider
// is reachable as — public, internal, and historical aliases all validate.
func NewVerifier(source keyset.Source, issuerAllowList []string, clientID string) *Verifier {
	issuers := make(map[string]struct{}, len(issuerAllowList))
	for _, iss := range issuerAllowList {
		issuers[normalizeIssuer(iss)] = struct{}{}
	}
	return &Verifier{
		source:   source,
		issuers:  issuers,
		clientID: clientID,
		// Signature, exp and nbf are enforced here; issuer and audience are
		// checked afterwards against the allow-list and client binding.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates the Authorization header value and returns the normalized
// claims, or Unauthorized.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*Claims, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		logx.Debug("token: missing or malformed Authorization header")
		return nil, iam.ErrUnauthorized()
	}

	// Unverified decode: only the header's kid is taken from here, plus
	// diagnostics. Nothing in this step is trusted for authorization.
	unverified, _, err := v.parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		logx.WithError(err).Debug("token: undecodable token")
		return nil, iam.ErrUnauthorized()
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		logx.Debug("token: token header carries no key id")
		return nil, iam.ErrUnauthorized()
	}

	key, err := v.source.Key(ctx, kid)
	if err != nil {
		// Key fetch failures are logged under their own code so operators
		// can tell provider outages from hostile tokens.
		if errx.IsType(err, errx.TypeExternal) {
			logx.WithError(err).Error("token: signing key unavailable")
		} else {
			logx.WithField("kid", kid).Warn("token: unknown signing key")
		}
		return nil, iam.ErrUnauthorized()
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}); err != nil {
		logx.WithError(err).Debug("token: signature or lifetime validation failed")
		return nil, iam.ErrUnauthorized()
	}

	normalized := normalize(claims)

	if _, ok := v.issuers[normalizeIssuer(normalized.Issuer)]; !ok {
		logx.WithFields(logx.Fields{
			"issuer":   normalized.Issuer,
			"expected": len(v.issuers),
		}).Warn("token: issuer not in allow-list")
		return nil, iam.ErrUnauthorized()
	}

	if !v.clientMatches(normalized, claims) {
		logx.WithFields(logx.Fields{
			"audience":         normalized.Audience,
			"authorized_party": normalized.AuthorizedParty,
			"expected_client":  v.clientID,
		}).Warn("token: client mismatch")
		return nil, iam.ErrUnauthorized()
	}

	return normalized, nil
}

// clientMatches accepts the token if any one of audience, authorized party,
// or client_id equals the expected client identifier.
func (v *Verifier) clientMatches(c *Claims, claims jwt.MapClaims) bool {
	for _, aud := range c.Audience {
		if aud == v.clientID {
			return true
		}
	}
	if c.AuthorizedParty == v.clientID {
		return true
	}
	if clientID, _ := claims["client_id"].(string); clientID == v.clientID {
		return true
	}
	return false
}

func normalize(claims jwt.MapClaims) *Claims {
	out := &Claims{Raw: map[string]interface{}(claims)}

	if sub, _ := claims["sub"].(string); sub != "" {
		out.Subject = kernel.NewSubjectID(sub)
	}
	out.Email, _ = claims["email"].(string)
	out.PreferredUsername, _ = claims["preferred_username"].(string)
	out.Issuer, _ = claims["iss"].(string)
	out.AuthorizedParty, _ = claims["azp"].(string)

	switch aud := claims["aud"].(type) {
	case string:
		out.Audience = []string{aud}
	case []interface{}:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out.Audience = append(out.Audience, s)
			}
		}
	case []string:
		out.Audience = aud
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	} else {
		out.ExpiresAt = time.Time{}
	}

	return out
}

func bearerToken(authorization string) (string, bool) {
	if authorization == "" {
		return "", false
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func normalizeIssuer(iss string) string {
	return strings.TrimRight(strings.TrimSpace(iss), "/")
}
