// Package badgegateway implements the Badge Gateway: bearer-token
// lifecycle management, issuer/class resolution by name, and assertion
// issuance against a Badgr-style credentialing API. Gateway is the
// contract the Orchestrator depends on; BadgrGateway is the only
// backend, grounded on the original BadgrUtils controller.
package badgegateway

import (
	"context"
	"time"
)

// Assertion is the credential Badgr returns on successful issuance.
type Assertion struct {
	OpenBadgeID string
	Image       string
	CreatedAt   time.Time
	Raw         map[string]any
}

// Gateway is the capability set described in spec §4.4.
type Gateway interface {
	// ResolveBadgeClass returns the entity id of className within the
	// issuer named issuerName, matched by exact name. It errors if zero
	// or more than one issuer/class matches.
	ResolveBadgeClass(ctx context.Context, issuerName, className string) (classID string, err error)

	// Issue composes a narrative from the fulfilled criteria and posts
	// an assertion tying commitID/commitURL/ciBuildURL to classID.
	Issue(ctx context.Context, classID, commitID, commitURL, ciBuildURL string, swCriteria, srvCriteria []string) (Assertion, error)
}
