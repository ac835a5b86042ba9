package profile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// isEmpty treats nil, blank strings and empty lists alike.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.M, r) || r == ' ' || r == '-' || r == '\''
}

// cleanName composes, trims and collapses whitespace. It does not drop
// characters.
func cleanName(s string) string {
	return collapseSpaces(norm.NFC.String(s))
}

// normalizeName keeps only letters, marks, spaces, hyphens and apostrophes.
func normalizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if nameRune(r) {
			return r
		}
		return -1
	}, cleanName(s))
	return collapseSpaces(s)
}

func validName(s string) bool {
	for _, r := range s {
		if !nameRune(r) {
			return false
		}
	}
	return true
}

func enumKey(s string) string {
	return strings.ToLower(collapseSpaces(s))
}

// parseDate accepts only YYYY-MM-DD calendar dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// chips turns "a, b" or a list into trimmed non-empty strings.
func chips(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, x := range t {
			if x != nil {
				raw = append(raw, fmt.Sprint(x))
			}
		}
	case nil:
	default:
		raw = []string{fmt.Sprint(t)}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

// sameValue compares an old record value with a normalized new one.
func sameValue(old, next any) bool {
	if isEmpty(old) && isEmpty(next) {
		return true
	}
	if n, ok := next.([]string); ok {
		o := chips(old)
		if len(o) != len(n) {
			return false
		}
		for i := range o {
			if o[i] != n[i] {
				return false
			}
		}
		return true
	}
	if isEmpty(old) != isEmpty(next) {
		return false
	}
	return asString(old) == asString(next)
}
