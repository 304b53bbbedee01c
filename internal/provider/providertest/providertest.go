// Package providertest provides an in-memory provider for tests. It records every
// session it hands out and how many were open at the same time.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// Provider is a fake provider.Provider. Zero hook fields succeed immediately.
type Provider struct {
	ProviderName string
	Quota        int
	QuotaErr     error
	Timeout      time.Duration

	// Step hooks, called with the browser the session was started for
	Init    func(ctx context.Context, def models.BrowserDefinition) error
	Open    func(ctx context.Context, def models.BrowserDefinition, url string) error
	Execute func(ctx context.Context, def models.BrowserDefinition, code string) (any, error)
	Quit    func(ctx context.Context, def models.BrowserDefinition) error

	// Logs is returned once per session from the browser channel
	Logs []models.RawLog

	mu         sync.Mutex
	quotaCalls int
	active     int
	maxActive  int
	started    int
	quits      map[string]int
}

func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "fake"
	}
	return p.ProviderName
}

func (p *Provider) ConnectTimeout() time.Duration {
	return p.Timeout
}

func (p *Provider) ConcurrencyLimit(ctx context.Context, creds models.Credentials) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.quotaCalls++
	return p.Quota, p.QuotaErr
}

func (p *Provider) NewDriver(creds models.Credentials) session.Driver {
	return &Driver{provider: p}
}

// QuotaCalls returns how often the quota was fetched
func (p *Provider) QuotaCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quotaCalls
}

// MaxActive returns the largest number of sessions open at once
func (p *Provider) MaxActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxActive
}

// Started returns how many sessions were started successfully
func (p *Provider) Started() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Quits returns how often quit was called for displayName
func (p *Provider) Quits(displayName string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quits[displayName]
}

// Driver is a fake session.Driver bound to a Provider
type Driver struct {
	provider *Provider
	def      models.BrowserDefinition
	open     bool
	logsSent bool
}

func (d *Driver) Init(ctx context.Context, def models.BrowserDefinition) (string, error) {
	d.def = def
	if d.provider.Init != nil {
		if err := d.provider.Init(ctx, def); err != nil {
			return "", err
		}
	}

	p := d.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started++
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	d.open = true
	return fmt.Sprintf("session-%d", p.started), nil
}

func (d *Driver) LogTypes(ctx context.Context) ([]string, error) {
	return []string{session.BrowserLogType}, nil
}

func (d *Driver) Logs(ctx context.Context, logType string) ([]models.RawLog, error) {
	if d.logsSent {
		return nil, nil
	}
	d.logsSent = true
	return d.provider.Logs, nil
}

func (d *Driver) Execute(ctx context.Context, code string) (any, error) {
	if d.provider.Execute != nil {
		return d.provider.Execute(ctx, d.def, code)
	}
	return nil, nil
}

func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	select {
	case <-time.After(dur):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) Open(ctx context.Context, url string) error {
	if d.provider.Open != nil {
		return d.provider.Open(ctx, d.def, url)
	}
	return nil
}

func (d *Driver) Quit(ctx context.Context) error {
	p := d.provider
	p.mu.Lock()
	if p.quits == nil {
		p.quits = make(map[string]int)
	}
	p.quits[d.def.DisplayName]++
	if d.open {
		p.active--
		d.open = false
	}
	p.mu.Unlock()

	if p.Quit != nil {
		return p.Quit(ctx, d.def)
	}
	return nil
}
