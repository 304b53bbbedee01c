// Package normalize turns loosely typed, human-written browser fields into canonical
// lowercase tokens.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
)

var (
	whitespace     = regexp.MustCompile(`\s+`)
	digitSpace     = regexp.MustCompile(`(\d) (\S)`)
	numericVersion = regexp.MustCompile(`^[0-9.]+$`)
)

// Normalizer resolves spellings against a catalog
type Normalizer struct {
	tables *catalog.Tables
}

// New creates a normalizer over the given tables
func New(tables *catalog.Tables) *Normalizer {
	return &Normalizer{tables: tables}
}

// Token converts raw into its canonical lowercase form. Falsy values (nil, "", 0, false)
// are absent.
func Token(raw any) (string, bool) {
	if isFalsy(raw) {
		return "", false
	}
	s := strings.TrimSpace(stringify(raw))
	s = whitespace.ReplaceAllString(s, " ")
	if s == "" {
		return "", false
	}
	return strings.ToLower(s), true
}

// Version normalizes like Token and also strips leading dots, trailing dots and trailing
// ".0" groups.
func Version(raw any) (string, bool) {
	s, ok := Token(raw)
	if !ok {
		return "", false
	}
	for {
		trimmed := strings.Trim(s, ".")
		trimmed = strings.TrimSuffix(trimmed, ".0")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// DeviceName normalizes like Token and joins a digit to the token following it, so
// "iPhone 6 S" becomes "iphone 6s".
func DeviceName(raw any) (string, bool) {
	s, ok := Token(raw)
	if !ok {
		return "", false
	}
	// Each match consumes the following character, so "1 2 3" needs a second pass.
	for {
		next := digitSpace.ReplaceAllString(s, "$1$2")
		if next == s {
			return s, true
		}
		s = next
	}
}

// MatchAlias returns the first canonical name whose spellings contain value
func MatchAlias(value string, aliases []catalog.Alias) (string, bool) {
	value = strings.ToLower(value)
	for _, a := range aliases {
		for _, spelling := range a.Spellings {
			if strings.ToLower(spelling) == value {
				return a.Canonical, true
			}
		}
	}
	return "", false
}

// BrowserName resolves raw to a canonical browser name
func (n *Normalizer) BrowserName(raw any) (string, bool) {
	s, ok := Token(raw)
	if !ok {
		return "", false
	}
	return MatchAlias(s, n.tables.Browsers)
}

// OSName resolves raw to a canonical OS name
func (n *Normalizer) OSName(raw any) (string, bool) {
	s, ok := Token(raw)
	if !ok {
		return "", false
	}
	return MatchAlias(s, n.tables.OSes)
}

// OSVersion resolves raw to a numeric OS version. Anything other than digits and dots is
// looked up as a code name of os; unknown code names are absent.
func (n *Normalizer) OSVersion(raw any, os string) (string, bool) {
	s, ok := Version(raw)
	if !ok {
		return "", false
	}
	if numericVersion.MatchString(s) {
		return s, true
	}
	names, ok := n.tables.OSCodeNames[os]
	if !ok {
		return "", false
	}
	version, ok := names[s]
	if !ok {
		return "", false
	}
	return Version(version)
}

func isFalsy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case uint64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
