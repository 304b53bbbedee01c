package matrix

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

func resolve(t *testing.T, doc string) ([]models.BrowserDefinition, error) {
	t.Helper()
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	return NewResolver(catalog.Default(), nil).Resolve(cfg)
}

// configErrors flattens joined errors into the configuration errors they carry
func configErrors(err error) []*ConfigurationError {
	var out []*ConfigurationError
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			out = append(out, ce)
		}
	}
	walk(err)
	return out
}

func TestResolveExplicitEntry(t *testing.T) {
	defs, err := resolve(t, `
Chrome on Windows:
  name: Google Chrome
  version: 70.0
  os: Windows
  osVersion: 10
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{{
		DisplayName: "Chrome on Windows",
		Name:        "chrome",
		Version:     "70",
		OS:          "windows",
		OSVersion:   "10",
	}}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveGuessesMissingFields(t *testing.T) {
	defs, err := resolve(t, `
ie:
  name: ie
  version: 11
firefox:
  name: firefox
safari:
  name: safari
  version: 13
android:
  name: android
  osVersion: Lollipop
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "ie", Name: "internet explorer", Version: "11", OS: "windows", OSVersion: "8.1"},
		{DisplayName: "firefox", Name: "firefox", Version: "latest", OS: "linux", OSVersion: "20.04"},
		{DisplayName: "safari", Name: "safari", Version: "13", OS: "mac", OSVersion: "10.15"},
		{DisplayName: "android", Name: "android", Version: "5.1", OS: "android", OSVersion: "5.1", Device: "android emulator"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAliasesAgree(t *testing.T) {
	defs, err := resolve(t, `
a: {name: ie, version: 11}
b: {name: MSIE, version: 11}
c: {name: Internet Explorer, version: 11}
`)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	for _, d := range defs {
		assert.Equal(t, catalog.BrowserInternetExplorer, d.Name, d.DisplayName)
	}
}

func TestResolveScalarVersions(t *testing.T) {
	defs, err := resolve(t, `
ie:
  name: ie
  versions:
    old: 8
    mid: 10
    new: 11
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "ie old", Name: "internet explorer", Version: "8", OS: "windows", OSVersion: "7"},
		{DisplayName: "ie mid", Name: "internet explorer", Version: "10", OS: "windows", OSVersion: "8"},
		{DisplayName: "ie new", Name: "internet explorer", Version: "11", OS: "windows", OSVersion: "8.1"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDevices(t *testing.T) {
	defs, err := resolve(t, `
iphone:
  name: safari
  os: ios
  versions:
    modern:
      version: 15
      osVersion: 15
      device: iPhone
      devices: ["12", 13 Pro]
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "iphone modern 12", Name: "safari mobile", Version: "15", OS: "ios", OSVersion: "15", Device: "iphone 12"},
		{DisplayName: "iphone modern 13pro", Name: "safari mobile", Version: "15", OS: "ios", OSVersion: "15", Device: "iphone 13pro"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveObjectVersionInheritsParent(t *testing.T) {
	defs, err := resolve(t, `
chrome:
  name: chrome
  os: windows
  osVersion: 10
  versions:
    stable: {version: 120}
    mac: {version: 119, os: mac, osVersion: Catalina}
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "chrome stable", Name: "chrome", Version: "120", OS: "windows", OSVersion: "10"},
		{DisplayName: "chrome mac", Name: "chrome", Version: "119", OS: "mac", OSVersion: "10.15"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSafariOnIOSBecomesMobile(t *testing.T) {
	defs, err := resolve(t, `
ios:
  name: safari
  os: iOS
  osVersion: 15
`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "ios", Name: "safari mobile", Version: "15", OS: "ios", OSVersion: "15", Device: "iphone simulator"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDropsDeviceOnDesktop(t *testing.T) {
	defs, err := resolve(t, `
chrome: {name: chrome, os: windows, osVersion: 10, device: Pixel 4}
`)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Empty(t, defs[0].Device)
}

func TestResolvePlaceholderSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg, err := Parse([]byte(`
ie:
  name: ie
  versions:
    old: null
    new: 11
`))
	require.NoError(t, err)

	defs, err := NewResolver(catalog.Default(), zap.New(core)).Resolve(cfg)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "ie new", defs[0].DisplayName)

	warnings := logs.FilterField(zap.String("browser", "ie old")).All()
	assert.Len(t, warnings, 1)
}

func TestResolveUnknownCodeNameIsGuessed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg, err := Parse([]byte(`mac: {name: chrome, os: mac, osVersion: Cheetah}`))
	require.NoError(t, err)

	defs, err := NewResolver(catalog.Default(), zap.New(core)).Resolve(cfg)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "10.15", defs[0].OSVersion)
	assert.Equal(t, 1, logs.FilterField(zap.String("field", "osVersion")).Len())
}

func TestResolveMissingName(t *testing.T) {
	_, err := resolve(t, `broken: {version: 11}`)
	require.Error(t, err)

	errs := configErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "broken", errs[0].DisplayName)
	assert.Equal(t, "name", errs[0].Field)
	assert.Contains(t, err.Error(), "browser name must be defined")
}

func TestResolveUnknownName(t *testing.T) {
	_, err := resolve(t, `broken: {name: netscape}`)
	assert.ErrorContains(t, err, `unknown browser name "netscape"`)
}

func TestResolveReportsEveryMissingField(t *testing.T) {
	_, err := resolve(t, `opera: {name: opera}`)
	require.Error(t, err)

	var fields []string
	for _, ce := range configErrors(err) {
		assert.Equal(t, "opera", ce.DisplayName)
		fields = append(fields, ce.Field)
	}
	assert.Equal(t, []string{"os", "osVersion"}, fields)
}

func TestResolveFailsWholeRun(t *testing.T) {
	defs, err := resolve(t, `
good: {name: chrome}
bad: {name: ie, version: 9}
`)
	require.Error(t, err)
	assert.Nil(t, defs)
	assert.Contains(t, err.Error(), "OS version must be defined")
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	tests := map[string]string{
		"scalar entry":        `chrome: chrome`,
		"list version":        "ie: {name: ie, versions: {old: [1, 2]}}",
		"bool version":        "ie: {name: ie, versions: {old: true}}",
		"versions not a map":  "ie: {name: ie, versions: [8, 9]}",
		"unknown field":       "ie: {name: ie, flavour: vanilla}",
		"devices not a list":  "ios: {name: safari, devices: iPhone}",
		"browsers not a map":  "- chrome",
		"nested field object": "ie: {name: {first: ie}}",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			var ce *ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, doc := range []string{"", "null", "{}"} {
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err, doc)
		assert.Empty(t, cfg.Entries, doc)
	}
}

func TestParseAcceptsJSON(t *testing.T) {
	defs, err := resolve(t, `{"edge": {"browserName": "MicrosoftEdge", "browserVersion": "18.0"}}`)
	require.NoError(t, err)

	want := []models.BrowserDefinition{
		{DisplayName: "edge", Name: "edge", Version: "18", OS: "windows", OSVersion: "10"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	cfg, err := Parse([]byte(`
zeta: {name: chrome}
alpha: {name: firefox}
mid: {name: ie, versions: {b: 11, a: 10}}
`))
	require.NoError(t, err)

	var names []string
	for _, e := range cfg.Entries {
		names = append(names, e.DisplayName)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	require.Len(t, cfg.Entries[2].Versions, 2)
	assert.Equal(t, "b", cfg.Entries[2].Versions[0].Key)
	assert.Equal(t, VersionScalar, cfg.Entries[2].Versions[0].Kind)
}

func TestResolveIsIdempotent(t *testing.T) {
	first, err := resolve(t, `
ie: {name: msie, versions: {old: 8, new: 11}}
mac: {name: Safari, version: 14}
ios: {name: safari, os: ios, osVersion: 16, devices: [iPhone 14]}
android: {name: android, osVersion: Oreo}
linux: {name: ff, os: Ubuntu, osVersion: 22.04}
`)
	require.NoError(t, err)

	second, err := NewResolver(catalog.Default(), nil).Resolve(FromDefinitions(first))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second resolution differs (-first +second):\n%s", diff)
	}
}
