// Package guess infers the browser fields a request leaves out. Every function is total:
// when no rule applies it reports false instead of failing.
package guess

import "github.com/shehryarbajwa/browsermatrix/internal/catalog"

// Guesser applies the catalog's inference rules
type Guesser struct {
	tables   *catalog.Tables
	inverted map[catalog.Pair]map[string]string
}

// New creates a guesser over the given tables
func New(tables *catalog.Tables) *Guesser {
	inverted := make(map[catalog.Pair]map[string]string, len(tables.BundledBrowsers))
	for pair := range tables.BundledBrowsers {
		inverted[pair] = tables.InvertBundled(pair)
	}
	return &Guesser{tables: tables, inverted: inverted}
}

// OSName returns the OS a browser runs on when none was requested
func (g *Guesser) OSName(browser string) (string, bool) {
	os, ok := g.tables.DefaultOS[browser]
	return os, ok
}

// OSVersion picks an OS version for a browser. First-party browsers map to the OS release
// they shipped with, mobile browsers share their version with the OS, and everything else
// gets the OS's default version.
func (g *Guesser) OSVersion(os, browser, browserVersion string) (string, bool) {
	pair := catalog.Pair{OS: os, Browser: browser}
	if bundled, ok := g.tables.BundledBrowsers[pair]; ok {
		v, ok := bundled[browserVersion]
		return v, ok
	}
	if _, ok := g.tables.MobilePairs[pair]; ok {
		return browserVersion, browserVersion != ""
	}
	v, ok := g.tables.DefaultOSVersion[os]
	return v, ok
}

// BrowserVersion is the inverse of OSVersion; unknown combinations get "latest"
func (g *Guesser) BrowserVersion(os, osVersion, browser string) (string, bool) {
	pair := catalog.Pair{OS: os, Browser: browser}
	if inverted, ok := g.inverted[pair]; ok {
		v, ok := inverted[osVersion]
		return v, ok
	}
	if _, ok := g.tables.MobilePairs[pair]; ok {
		return osVersion, osVersion != ""
	}
	return catalog.LatestVersion, true
}

// DeviceName returns the default simulator or emulator for mobile pairs
func (g *Guesser) DeviceName(os, browser string) (string, bool) {
	device, ok := g.tables.MobilePairs[catalog.Pair{OS: os, Browser: browser}]
	return device, ok
}

// DeviceRequired reports whether sessions on os must name a device
func (g *Guesser) DeviceRequired(os string) bool {
	return g.tables.DeviceOSes[os]
}

// MobileVariant returns the browser a desktop browser becomes on os, if any
func (g *Guesser) MobileVariant(browser, os string) (string, bool) {
	variant, ok := g.tables.MobileVariants[browser][os]
	return variant, ok
}
