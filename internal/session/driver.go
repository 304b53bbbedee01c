package session

import (
	"context"
	"time"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// BrowserLogType is the log channel carrying page console output
const BrowserLogType = "browser"

// Driver speaks one provider's remote-control protocol for a single session.
//
// Logs returns the entries recorded since the previous call for that type. Drivers that
// can only report the full history may return it; Session drops entries it already holds.
type Driver interface {
	Init(ctx context.Context, def models.BrowserDefinition) (string, error)
	LogTypes(ctx context.Context) ([]string, error)
	Logs(ctx context.Context, logType string) ([]models.RawLog, error)
	Execute(ctx context.Context, code string) (any, error)
	Sleep(ctx context.Context, d time.Duration) error
	Open(ctx context.Context, url string) error
	Quit(ctx context.Context) error
}

// LogNormalizer turns a raw console entry into a BrowserLog
type LogNormalizer interface {
	Normalize(raw models.RawLog, def models.BrowserDefinition) models.BrowserLog
}

// LogNormalizerFunc adapts a function to LogNormalizer
type LogNormalizerFunc func(raw models.RawLog, def models.BrowserDefinition) models.BrowserLog

// Normalize calls f
func (f LogNormalizerFunc) Normalize(raw models.RawLog, def models.BrowserDefinition) models.BrowserLog {
	return f(raw, def)
}
