// Package htmlsanitize strips unsafe markup from operator-supplied
// text before it is stored.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps user-generated-content markup (basic formatting,
// safe links) and removes everything executable.
func Sanitize(s string) string {
	return ugc.Sanitize(s)
}

// PlainText strips all markup. Used for fields stored and displayed as
// plain text, like removal decision notes.
func PlainText(s string) string {
	return strict.Sanitize(s)
}
