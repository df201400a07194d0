package buybox

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoValidIdentifiers is returned when input contains no usable ASIN
var ErrNoValidIdentifiers = errors.New("no valid ASINs provided")

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ValidASIN reports whether s is a well-formed ASIN (upper-case, 10 chars)
func ValidASIN(s string) bool {
	return asinPattern.MatchString(s)
}

// ParseIdentifiers normalizes raw ASIN input. Entries are trimmed and
// upper-cased; blanks are ignored; duplicates keep their first position.
// Malformed entries are returned separately. The error is non-nil only when
// no valid ASIN remains.
func ParseIdentifiers(raw []string) (valid, invalid []string, err error) {
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		asin := strings.ToUpper(strings.TrimSpace(entry))
		if asin == "" {
			continue
		}
		if !ValidASIN(asin) {
			invalid = append(invalid, entry)
			continue
		}
		if seen[asin] {
			continue
		}
		seen[asin] = true
		valid = append(valid, asin)
	}

	if len(valid) == 0 {
		return nil, invalid, ErrNoValidIdentifiers
	}
	return valid, invalid, nil
}

// SplitIdentifiers splits free-form text on commas and whitespace
func SplitIdentifiers(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
}
