// Package slug derives URL slugs and resolves collisions by suffixing.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxAttempts bounds the numeric suffix search.
	MaxAttempts = 100
	// randomAttempts bounds the random suffix search that follows it.
	randomAttempts = 5
	randomLength   = 6
)

var (
	validPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
)

var replacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "ø", "o", "œ", "oe", "&", " and ",
	"'", "", "’", "",
)

// Make turns a display name into a slug: "Joe's Café" becomes "joes-cafe".
func Make(name string) string {
	s := replacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is a well-formed slug
func Valid(s string) bool {
	return validPattern.MatchString(s)
}

// ExistsFunc reports whether a slug is already taken
type ExistsFunc func(slug string) (bool, error)

// Unique returns base if free, otherwise base-2, base-3 and so on. Once the
// numeric suffixes are used up it tries a few random ones.
func Unique(base string, exists ExistsFunc) (string, error) {
	if base == "" {
		base = "business"
	}

	taken, err := exists(base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for i := 2; i <= MaxAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	for i := 0; i < randomAttempts; i++ {
		suffix, err := RandomSuffix(randomLength)
		if err != nil {
			return "", err
		}
		candidate := base + "-" + suffix
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
