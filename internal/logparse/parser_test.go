package logparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

func TestNormalize(t *testing.T) {
	chrome := models.BrowserDefinition{Name: "chrome"}
	firefox := models.BrowserDefinition{Name: "firefox"}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		def  models.BrowserDefinition
		raw  models.RawLog
		want models.BrowserLog
	}{
		{
			name: "chromium located",
			def:  chrome,
			raw:  models.RawLog{Level: "SEVERE", Message: `https://example.com/app.js 12:34 "Uncaught TypeError: x is undefined"`, Timestamp: ts},
			want: models.BrowserLog{
				Message:   "Uncaught TypeError: x is undefined",
				Level:     models.LevelSevere,
				Timestamp: ts,
				File:      "https://example.com/app.js",
				Line:      12,
			},
		},
		{
			name: "chromium console api",
			def:  chrome,
			raw:  models.RawLog{Level: "INFO", Message: `console-api 2:14 "hello \"world\""`},
			want: models.BrowserLog{Message: `hello "world"`, Level: models.LevelInfo},
		},
		{
			name: "chromium resource",
			def:  chrome,
			raw:  models.RawLog{Level: "SEVERE", Message: "https://example.com/favicon.ico - Failed to load resource: 404"},
			want: models.BrowserLog{
				Message: "Failed to load resource: 404",
				Level:   models.LevelSevere,
				File:    "https://example.com/favicon.ico",
			},
		},
		{
			name: "chromium extension",
			def:  chrome,
			raw:  models.RawLog{Level: "WARNING", Message: `chrome-extension://abcdef/content.js 1:1 "injected"`},
			want: models.BrowserLog{
				Message: "injected",
				Level:   models.LevelWarning,
				Addon:   true,
				File:    "chrome-extension://abcdef/content.js",
				Line:    1,
			},
		},
		{
			name: "trailing location",
			def:  firefox,
			raw:  models.RawLog{Level: "WARNING", Message: "ReferenceError: foo is not defined (https://example.com:8080/app.js:7:3)"},
			want: models.BrowserLog{
				Message: "ReferenceError: foo is not defined",
				Level:   models.LevelWarning,
				File:    "https://example.com:8080/app.js",
				Line:    7,
			},
		},
		{
			name: "addon by source",
			def:  firefox,
			raw:  models.RawLog{Level: "INFO", Message: "plain text", Source: "moz-extension://1234/background.js"},
			want: models.BrowserLog{Message: "plain text", Level: models.LevelInfo, Addon: true},
		},
		{
			name: "unknown level",
			def:  firefox,
			raw:  models.RawLog{Level: "CHATTY", Message: "  padded  "},
			want: models.BrowserLog{Message: "padded", Level: models.LevelInfo},
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Normalize(tt.raw, tt.def))
		})
	}
}
