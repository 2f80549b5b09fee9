// Package slugs names scenario directories on disk.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// ComponentSlug converts a string to a slug safe for a single path component.
func ComponentSlug(s string) string {
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
	}
	return slugged
}

// IndexSlug names the directory of a scenario from the text of its index.
// Numeric indexes are kept verbatim; string indexes are slugified. An index
// that slugifies to nothing is rejected.
func IndexSlug(index string) (string, bool) {
	index = strings.Trim(strings.TrimSpace(index), `"`)
	if index == "" {
		return "", false
	}
	slugged := ComponentSlug(index)
	if slugged == "" || slugged == "." || slugged == ".." || strings.ContainsAny(slugged, `/\`) {
		return "", false
	}
	return slugged, true
}
