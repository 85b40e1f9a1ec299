// internal/app/system/normalize/normalize.go

// Package normalize cleans free-text input before storage or catalog
// lookup. Organizational labels arrive from spreadsheets in every
// spelling the field offices can invent; the Division/Region helpers
// reduce them to a comparison key (lowercase, diacritics stripped,
// unit keywords removed) so the hierarchy resolver can match them
// against the catalogs.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Unit keywords stripped from the front of labels. Order matters: the
// longer spellings must come first so "division" is not left behind by
// a "div" strip.
var divisionPrefixes = []string{"division", "div.", "div"}
var regionPrefixes = []string{"region", "rgn.", "rgn", "reg."}

// Noise stripped from the tail of labels.
var labelSuffixes = []string{"hq", "staff", "team"}

// Name trims a person or unit display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold returns the case- and diacritic-insensitive comparison form used
// for *_ci fields across the stores.
func Fold(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// Division reduces a division label to its catalog comparison key.
func Division(label string) string {
	return stripUnitWords(Fold(label), divisionPrefixes)
}

// Region reduces a region label to its catalog comparison key.
func Region(label string) string {
	return stripUnitWords(Fold(label), regionPrefixes)
}

// IsRegionStaff reports whether a division-label text actually names a
// region-level staff assignment (the label begins with the region
// keyword). Such records resolve against the region catalog only.
func IsRegionStaff(divisionLabel string) bool {
	folded := Fold(divisionLabel)
	for _, p := range regionPrefixes {
		if strings.HasPrefix(folded, p) {
			return true
		}
	}
	return false
}

// stripUnitWords removes a leading unit keyword and any trailing noise
// word, then trims leftover separators.
func stripUnitWords(folded string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(folded, p) {
			folded = folded[len(p):]
			break
		}
	}
	for _, s := range labelSuffixes {
		if strings.HasSuffix(folded, s) {
			folded = folded[:len(folded)-len(s)]
			break
		}
	}
	return strings.Trim(folded, " -–./")
}
