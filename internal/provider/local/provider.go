// Package local runs Chrome in docker containers on this machine and drives it over the
// DevTools protocol. It needs no account; the concurrency limit is the configured number
// of slots.
package local

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

const (
	Name = "local"

	DefaultSlots          = 2
	DefaultConnectTimeout = time.Minute
)

// Provider is the docker-backed provider.Provider
type Provider struct {
	containers     Containers
	slots          int
	connectTimeout time.Duration
}

// NewProvider serves sessions from containers, at most slots at a time
func NewProvider(containers Containers, slots int, connectTimeout time.Duration) *Provider {
	if slots < 1 {
		slots = DefaultSlots
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Provider{
		containers:     containers,
		slots:          slots,
		connectTimeout: connectTimeout,
	}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) ConnectTimeout() time.Duration {
	return p.connectTimeout
}

// ConcurrencyLimit returns the slot count; credentials are not checked
func (p *Provider) ConcurrencyLimit(ctx context.Context, creds models.Credentials) (int, error) {
	return p.slots, nil
}

func (p *Provider) NewDriver(creds models.Credentials) session.Driver {
	return NewDriver(p.containers)
}

// Close removes leftover containers and releases the docker client when the provider
// owns a Pool
func (p *Provider) Close() error {
	pool, ok := p.containers.(*Pool)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := pool.Prune(ctx); err != nil {
		pool.logger.Warn("Failed to prune browser containers", zap.Error(err))
	}
	return pool.Close()
}
