// Package network provides the session-aware HTTP transport used by every provider-facing component.
package network

import (
	"fmt"

	"github.com/anigrab-cli/anigrab/util"
)

// Session carries the immutable request context shared by every provider-facing call.
// It replaces ambient globals: the cookie and referer travel explicitly with each fetch.
type Session struct {
	// Cookie is the full cookie header value attached to every request.
	Cookie string
	// Referer is the referer header value, empty when not applicable.
	Referer string
	// Host is the provider base URL.
	Host string
}

// NewSession initializes a session for the given provider host.
// The DDoS-guard fronting the provider accepts any well-formed __ddg2_ token,
// so a random value is generated once per run and reused for every request.
func NewSession(host string) Session {
	return Session{
		Cookie: fmt.Sprintf("__ddg2_=%s", util.RandomHex(10)),
		Host:   host,
	}
}

// WithReferer derives a session whose requests carry the specified referer header.
func (s Session) WithReferer(referer string) Session {
	s.Referer = referer
	return s
}
