// Package webdriver implements cloud providers that expose a remote WebDriver hub and a
// REST API reporting account concurrency.
package webdriver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

const (
	SauceLabsName    = "saucelabs"
	BrowserStackName = "browserstack"

	SauceLabsHubURL    = "https://ondemand.saucelabs.com/wd/hub"
	SauceLabsAPIURL    = "https://saucelabs.com"
	BrowserStackHubURL = "https://hub-cloud.browserstack.com/wd/hub"
	BrowserStackAPIURL = "https://api.browserstack.com"

	// DefaultConnectTimeout covers queueing for a VM as well as booting it
	DefaultConnectTimeout = 5 * time.Minute
)

// Options overrides a provider's endpoints. Zero fields keep the provider's defaults.
type Options struct {
	HubURL         string
	APIURL         string
	ConnectTimeout time.Duration
	HTTPClient     *http.Client
	Tables         *catalog.Tables
}

// Provider is a WebDriver-hub backed provider.Provider
type Provider struct {
	name           string
	hubURL         string
	apiURL         string
	connectTimeout time.Duration
	client         *http.Client
	capabilities   CapabilitiesFunc
	quota          QuotaFunc
}

// NewSauceLabs creates the Sauce Labs provider
func NewSauceLabs(opts Options) *Provider {
	return newProvider(SauceLabsName, SauceLabsHubURL, SauceLabsAPIURL, opts, SauceCapabilities, SauceQuota)
}

// NewBrowserStack creates the BrowserStack provider
func NewBrowserStack(opts Options) *Provider {
	tables := opts.Tables
	if tables == nil {
		tables = catalog.Default()
	}
	return newProvider(BrowserStackName, BrowserStackHubURL, BrowserStackAPIURL, opts, BrowserStackCapabilities(tables), BrowserStackQuota)
}

func newProvider(name, hubURL, apiURL string, opts Options, caps CapabilitiesFunc, quota QuotaFunc) *Provider {
	if opts.HubURL != "" {
		hubURL = opts.HubURL
	}
	if opts.APIURL != "" {
		apiURL = opts.APIURL
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}

	return &Provider{
		name:           name,
		hubURL:         hubURL,
		apiURL:         strings.TrimRight(apiURL, "/"),
		connectTimeout: opts.ConnectTimeout,
		client:         opts.HTTPClient,
		capabilities:   caps,
		quota:          quota,
	}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ConnectTimeout() time.Duration {
	return p.connectTimeout
}

// NewDriver returns an unconnected hub driver authenticated as creds
func (p *Provider) NewDriver(creds models.Credentials) session.Driver {
	return NewDriver(p.client, p.hubURL, creds, p.capabilities)
}

// ConcurrencyLimit asks the provider's REST API how many sessions creds may hold
func (p *Provider) ConcurrencyLimit(ctx context.Context, creds models.Credentials) (int, error) {
	return p.quota(ctx, p.client, p.apiURL, creds)
}
