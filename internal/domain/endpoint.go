package domain

import (
	"strings"
)

// Endpoint is a candidate mirror identified by its host (no scheme).
// Example: yewtu.be
type Endpoint string

// ParseEndpoint normalizes a host or origin into an Endpoint.
// Scheme, trailing slashes and surrounding whitespace are stripped and the host is lowercased.
// Example: "https://Yewtu.be/" -> "yewtu.be"
func ParseEndpoint(raw string) Endpoint {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	return Endpoint(strings.ToLower(s))
}

// Host returns the bare host.
func (e Endpoint) Host() string { return string(e) }

// Origin returns the full https origin used for redirects and the cache artifact.
func (e Endpoint) Origin() string { return "https://" + string(e) }

// ExclusionList is the static set of endpoints that must never be probed.
type ExclusionList map[Endpoint]struct{}

// NewExclusionList builds an exclusion list from raw hosts or origins.
func NewExclusionList(hosts []string) ExclusionList {
	l := make(ExclusionList, len(hosts))
	for _, h := range hosts {
		if ep := ParseEndpoint(h); ep != "" {
			l[ep] = struct{}{}
		}
	}
	return l
}

// Contains reports whether ep is excluded. A nil list excludes nothing.
func (l ExclusionList) Contains(ep Endpoint) bool {
	_, ok := l[ep]
	return ok
}

// Hosts returns the excluded hosts in no particular order.
func (l ExclusionList) Hosts() []string {
	out := make([]string, 0, len(l))
	for ep := range l {
		out = append(out, ep.Host())
	}
	return out
}
