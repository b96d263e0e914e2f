// Package identity derives the string that keys the usage ledger from an
// incoming request. Neither scheme is authenticated: forwarding headers and
// browser fingerprints are both client-controlled, so identities are only as
// trustworthy as the proxy in front of the server.
package identity

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	SchemeHeaders     = "headers"
	SchemeFingerprint = "fingerprint"

	// DefaultIdentity is used when no forwarding header is present
	DefaultIdentity = "127.0.0.1"

	HeaderScreen   = "X-Client-Screen"
	HeaderTimezone = "X-Client-Timezone"

	fingerprintLength = 32
)

// Resolver turns a request into a ledger identity
type Resolver interface {
	Resolve(r *http.Request) string
}

// New returns the resolver for a configured scheme
func New(scheme string) (Resolver, error) {
	switch strings.ToLower(scheme) {
	case "", SchemeHeaders:
		return HeaderResolver{}, nil
	case SchemeFingerprint:
		return FingerprintResolver{}, nil
	}
	return nil, fmt.Errorf("unknown identity scheme: %s", scheme)
}

// HeaderResolver keys clients by the first forwarding header present
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if remote := strings.TrimSpace(r.Header.Get("X-Remote-Addr")); remote != "" {
		return remote
	}
	return DefaultIdentity
}

// FingerprintResolver keys clients by a truncated browser fingerprint.
// Only the first 24 bytes of the user agent survive the truncation for any
// real browser, so screen size and timezone rarely change the identity and
// clients sharing a user agent prefix share one ledger record.
type FingerprintResolver struct{}

func (FingerprintResolver) Resolve(r *http.Request) string {
	return Fingerprint(r.UserAgent(), r.Header.Get(HeaderScreen), r.Header.Get(HeaderTimezone))
}

// Fingerprint encodes the browser traits and keeps the first 32 characters
func Fingerprint(userAgent, screen, timezone string) string {
	raw := userAgent + "_" + screen + "_" + timezone
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	if len(encoded) > fingerprintLength {
		encoded = encoded[:fingerprintLength]
	}
	return encoded
}
