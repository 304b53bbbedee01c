// Package logparse turns raw console lines reported by remote browsers into BrowserLogs.
package logparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// pattern extracts file, line and message from one console line format
type pattern struct {
	re      *regexp.Regexp
	file    int
	line    int
	message int
}

var (
	// Chromium: "https://host/app.js 12:34 \"text\"" or "console-api 2:14 \"text\""
	chromiumLocated = pattern{regexp.MustCompile(`^(\S+) (\d+):\d+ (.*)$`), 1, 2, 3}
	// Chromium network errors: "https://host/favicon.ico - Failed to load resource: ..."
	chromiumResource = pattern{regexp.MustCompile(`^(\S+) - (.*)$`), 1, 0, 2}
	// Firefox and Safari: "text (https://host/app.js:12)"
	trailingLocation = pattern{regexp.MustCompile(`^(.*) \((\S+?):(\d+)(?::\d+)?\)$`), 2, 3, 1}
)

var addonPrefixes = []string{
	"chrome-extension://",
	"moz-extension://",
	"safari-extension://",
	"safari-web-extension://",
	"extensions::",
	"resource://",
}

// Parser is the default session.LogNormalizer
type Parser struct {
	byBrowser map[string][]pattern
	fallback  []pattern
}

// New creates a parser with the built-in formats
func New() *Parser {
	chromium := []pattern{chromiumLocated, chromiumResource}
	return &Parser{
		byBrowser: map[string][]pattern{
			catalog.BrowserChrome:  chromium,
			catalog.BrowserEdge:    chromium,
			catalog.BrowserOpera:   chromium,
			catalog.BrowserAndroid: chromium,
		},
		fallback: []pattern{trailingLocation, chromiumLocated},
	}
}

// Normalize implements session.LogNormalizer
func (p *Parser) Normalize(raw models.RawLog, def models.BrowserDefinition) models.BrowserLog {
	level, err := models.ParseLogLevel(raw.Level)
	if err != nil {
		level = models.LevelInfo
	}
	log := models.BrowserLog{
		Message:   strings.TrimSpace(raw.Message),
		Level:     level,
		Timestamp: raw.Timestamp,
	}

	patterns, ok := p.byBrowser[def.Name]
	if !ok {
		patterns = p.fallback
	}
	for _, pat := range patterns {
		m := pat.re.FindStringSubmatch(log.Message)
		if m == nil {
			continue
		}
		log.File = m[pat.file]
		if pat.line > 0 {
			log.Line, _ = strconv.Atoi(m[pat.line])
		}
		log.Message = unquote(m[pat.message])
		break
	}

	source := log.File
	if source == "" {
		source = raw.Source
	}
	log.Addon = isAddon(source)
	if log.File == "console-api" {
		log.File = ""
		log.Line = 0
	}
	return log
}

func isAddon(source string) bool {
	for _, prefix := range addonPrefixes {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
