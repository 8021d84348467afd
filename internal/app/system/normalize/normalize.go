// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email trims whitespace and lowercases an email address. Stored emails
// are always in this form, so lookups must normalize the same way.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailDomain returns the normalized domain portion of an email address
// (everything after the last "@"), or "" when there is none.
func EmailDomain(email string) string {
	e := Email(email)
	i := strings.LastIndex(e, "@")
	if i < 0 || i == len(e)-1 {
		return ""
	}
	return e[i+1:]
}

// Username trims whitespace and lowercases a username for
// case-insensitive matching. The display form is stored separately.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Tokens splits a comma-separated list of usernames or emails into
// trimmed, non-empty tokens. Order and casing are preserved.
func Tokens(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TokenList trims each entry of an already split list and drops empties.
func TokenList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
