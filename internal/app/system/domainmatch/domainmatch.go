// Package domainmatch parses automatic-membership domain patterns into
// the domains a user's email domain is compared against.
//
// A pattern is a pipe-delimited list of domains, e.g. "a.org|b.com".
// Entries that are not well-formed domain names (empty, leading "@",
// stray punctuation) are dropped rather than reported: a malformed entry
// simply matches nobody.
package domainmatch

import (
	"regexp"
	"strings"
)

var domainRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

// maxDomainLen is the DNS limit on a full domain name.
const maxDomainLen = 253

// valid reports whether d (already lower-cased) is a well-formed domain.
func valid(d string) bool {
	return d != "" && len(d) <= maxDomainLen && domainRe.MatchString(d)
}

// Matcher holds the well-formed domains of a pattern.
type Matcher struct {
	domains []string
}

// Parse builds a Matcher from a pipe-delimited pattern. Duplicate entries
// collapse; input order of the first occurrence is kept.
func Parse(pattern string) Matcher {
	var m Matcher
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(pattern, "|") {
		d := strings.ToLower(strings.TrimSpace(raw))
		if !valid(d) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		m.domains = append(m.domains, d)
	}
	return m
}

// Domains returns the well-formed domains in pattern order.
func (m Matcher) Domains() []string {
	out := make([]string, len(m.domains))
	copy(out, m.domains)
	return out
}

// Empty reports whether no entry of the pattern was well-formed.
func (m Matcher) Empty() bool { return len(m.domains) == 0 }

// Invalid returns the non-blank entries of pattern that are not
// well-formed domains, trimmed, in pattern order. Used when saving a
// pattern; matching never needs it.
func Invalid(pattern string) []string {
	var out []string
	for _, raw := range strings.Split(pattern, "|") {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if !valid(strings.ToLower(e)) {
			out = append(out, e)
		}
	}
	return out
}
