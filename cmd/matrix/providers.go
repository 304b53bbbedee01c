package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/provider"
	"github.com/shehryarbajwa/browsermatrix/internal/provider/local"
	"github.com/shehryarbajwa/browsermatrix/internal/provider/webdriver"
	"github.com/shehryarbajwa/browsermatrix/internal/ratelimit"
)

// providerFlags configure the provider registry
type providerFlags struct {
	hubURL     string
	apiURL     string
	startRate  int
	localSlots int
	localImage string
}

func (f *providerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hubURL, "hub-url", "", "Override the WebDriver hub URL of the cloud provider")
	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "Override the REST API URL of the cloud provider")
	cmd.Flags().IntVar(&f.startRate, "start-rate", 0, "Maximum session starts per minute per provider (0 = unlimited)")
	cmd.Flags().IntVar(&f.localSlots, "local-slots", local.DefaultSlots, "Concurrent containers for the local provider")
	cmd.Flags().StringVar(&f.localImage, "local-image", local.DefaultImage, "Browser image for the local provider")
}

// registry builds the provider registry. The local provider needs a docker daemon and is
// only registered when withLocal is set.
func (f *providerFlags) registry(tables *catalog.Tables, logger *zap.Logger, withLocal bool) (*provider.Registry, *local.Pool, error) {
	opts := webdriver.Options{HubURL: f.hubURL, APIURL: f.apiURL, Tables: tables}
	registry := provider.NewRegistry(webdriver.SauceLabsName,
		webdriver.NewSauceLabs(opts),
		webdriver.NewBrowserStack(opts),
	)

	if !withLocal {
		return registry, nil, nil
	}

	pool, err := local.NewPool(f.localImage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up local provider: %w", err)
	}
	registry.Register(local.NewProvider(pool, f.localSlots, 0))
	return registry, pool, nil
}

// startLimiter returns nil when starts are not throttled
func (f *providerFlags) startLimiter() *ratelimit.Limiter {
	if f.startRate <= 0 {
		return nil
	}
	return ratelimit.NewLimiter(f.startRate, time.Minute, f.startRate)
}
