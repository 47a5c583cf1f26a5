package token

import (
	"time"

	"github.com/vendala/backoffice/pkg/kernel"
)

// Claims is the normalized, verified claim set produced once per request.
// Immutable after verification; request-scoped, never shared across requests.
type Claims struct {
	Subject           kernel.SubjectID
	Email             string
	PreferredUsername string
	Issuer            string
	Audience          []string
	AuthorizedParty   string
	ExpiresAt         time.Time

	// Raw holds the full claim map for downstream consumers (role
	// extraction reads legacy claim shapes from here).
	Raw map[string]interface{}
}
