// Package provider defines what the orchestrator needs from a cloud browser provider and
// routes provider names to implementations.
package provider

import (
	"context"
	"time"

	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// QuotaSource reports how many sessions an account may hold at once
type QuotaSource interface {
	ConcurrencyLimit(ctx context.Context, creds models.Credentials) (int, error)
}

// Provider creates drivers for one cloud provider
type Provider interface {
	QuotaSource

	// Name is the provider's registry key
	Name() string

	// NewDriver returns a fresh, unconnected driver for a single session
	NewDriver(creds models.Credentials) session.Driver

	// ConnectTimeout bounds starting a session and opening the first page
	ConnectTimeout() time.Duration
}
