// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy allows the user-generated-content subset of HTML (formatting,
// lists, links with safe schemes) and strips scripts, event handlers and
// embedded frames.
var policy = bluemonday.UGCPolicy()

// Sanitize returns s with unsafe markup removed. Plain text passes through.
func Sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return policy.Sanitize(s)
}
