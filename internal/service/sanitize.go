package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every HTML element from user supplied text.
var strictPolicy = bluemonday.StrictPolicy()

// sanitize drops markup but keeps the text as typed: bluemonday escapes
// &, < and quotes, which are undone here since values leave as JSON.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitize(*s)
	return &v
}
