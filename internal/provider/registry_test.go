package provider_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/browsermatrix/internal/provider"
	"github.com/shehryarbajwa/browsermatrix/internal/provider/providertest"
)

type closingProvider struct {
	*providertest.Provider
	closed bool
	err    error
}

func (c *closingProvider) Close() error {
	c.closed = true
	return c.err
}

func TestRegistryGet(t *testing.T) {
	sauce := &providertest.Provider{ProviderName: "saucelabs"}
	stack := &providertest.Provider{ProviderName: "browserstack"}
	r := provider.NewRegistry("saucelabs", sauce, stack)

	p, err := r.Get("browserstack")
	require.NoError(t, err)
	assert.Same(t, stack, p)

	p, err = r.Get("")
	require.NoError(t, err)
	assert.Same(t, sauce, p)

	_, err = r.Get("testingbot")
	assert.ErrorContains(t, err, "unsupported provider")

	assert.Equal(t, []string{"browserstack", "saucelabs"}, r.Names())
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := provider.NewRegistry("fake", &providertest.Provider{Quota: 1})
	replacement := &providertest.Provider{Quota: 5}
	r.Register(replacement)

	p, err := r.Get("fake")
	require.NoError(t, err)
	assert.Same(t, replacement, p)
	assert.Equal(t, []string{"fake"}, r.Names())
}

func TestRegistryClose(t *testing.T) {
	c := &closingProvider{Provider: &providertest.Provider{ProviderName: "local"}}
	r := provider.NewRegistry("local", c, &providertest.Provider{})
	require.NoError(t, r.Close())
	assert.True(t, c.closed)

	c.err = errors.New("prune failed")
	assert.EqualError(t, r.Close(), "prune failed")
}
