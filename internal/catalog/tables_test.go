package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvertBundled(t *testing.T) {
	pair := Pair{OS: OSMac, Browser: BrowserSafari}
	tables := &Tables{
		BundledBrowsers: map[Pair]map[string]string{
			pair: {"5": "10.6", "5.1": "10.6", "6": "10.8"},
		},
	}

	assert.Equal(t, map[string]string{"10.6": "5.1", "10.8": "6"}, tables.InvertBundled(pair))
	assert.Nil(t, tables.InvertBundled(Pair{OS: OSLinux, Browser: BrowserFirefox}))
}

func TestDefaultTablesConsistent(t *testing.T) {
	tables := Default()

	canonical := make(map[string]bool)
	for _, a := range tables.Browsers {
		assert.Contains(t, a.Spellings, a.Canonical)
		canonical[a.Canonical] = true
	}
	for browser, os := range tables.DefaultOS {
		assert.True(t, canonical[browser], browser)
		assert.Contains(t, tables.DefaultOSVersion, os)
	}
	for pair := range tables.MobilePairs {
		assert.True(t, tables.DeviceOSes[pair.OS], pair.OS)
	}
}
