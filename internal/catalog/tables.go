// Package catalog holds the canonical browser, OS and device vocabularies and the rule
// tables used to fill in what a browser request leaves out.
//
// A Tables value is built once and never mutated; the normalizer and guesser receive it
// explicitly instead of reading package state.
package catalog

// Canonical browser names
const (
	BrowserChrome           = "chrome"
	BrowserFirefox          = "firefox"
	BrowserSafari           = "safari"
	BrowserInternetExplorer = "internet explorer"
	BrowserEdge             = "edge"
	BrowserOpera            = "opera"
	BrowserAndroid          = "android"
	BrowserSafariMobile     = "safari mobile"
)

// Canonical OS names
const (
	OSWindows = "windows"
	OSMac     = "mac"
	OSLinux   = "linux"
	OSAndroid = "android"
	OSIOS     = "ios"
)

// LatestVersion is the browser version providers resolve to their newest release
const LatestVersion = "latest"

// Alias is one canonical name with every spelling accepted for it. The canonical name is
// always among its own spellings.
type Alias struct {
	Canonical string
	Spellings []string
}

// Pair identifies an (os, browser) combination
type Pair struct {
	OS      string
	Browser string
}

// Tables is the complete, read-only vocabulary
type Tables struct {
	// Browsers and OSes are ordered; the first canonical name whose spellings contain the
	// input wins.
	Browsers []Alias
	OSes     []Alias

	// DeviceOSes require a device identifier.
	DeviceOSes map[string]bool

	// OSCodeNames maps an OS to its version code names.
	OSCodeNames map[string]map[string]string

	// BundledBrowsers maps an (os, first-party browser) pair to browser version → OS
	// version it shipped with.
	BundledBrowsers map[Pair]map[string]string

	// MobilePairs maps the (os, browser) pairs whose OS version tracks the browser version
	// to the simulator or emulator used when no device is named.
	MobilePairs map[Pair]string

	// MobileVariants maps a desktop browser to the browser it becomes on a given OS.
	MobileVariants map[string]map[string]string

	// DefaultOS is the OS a browser runs on when none is named.
	DefaultOS map[string]string

	// DefaultOSVersion is the most broadly supported version of each OS.
	DefaultOSVersion map[string]string
}

// Default returns the built-in tables
func Default() *Tables {
	return &Tables{
		Browsers: []Alias{
			{BrowserChrome, []string{"chrome", "google chrome", "googlechrome"}},
			{BrowserFirefox, []string{"firefox", "ff", "mozilla firefox"}},
			{BrowserSafariMobile, []string{"safari mobile", "mobile safari", "mobilesafari", "ios safari"}},
			{BrowserSafari, []string{"safari"}},
			{BrowserInternetExplorer, []string{"internet explorer", "internetexplorer", "ie", "msie", "explorer"}},
			{BrowserEdge, []string{"edge", "microsoft edge", "microsoftedge", "msedge"}},
			{BrowserOpera, []string{"opera"}},
			{BrowserAndroid, []string{"android", "android browser"}},
		},
		OSes: []Alias{
			{OSWindows, []string{"windows", "win", "win32", "win64", "windows nt"}},
			{OSMac, []string{"mac", "macos", "mac os", "osx", "os x", "mac os x", "macosx", "darwin"}},
			{OSLinux, []string{"linux", "ubuntu"}},
			{OSAndroid, []string{"android"}},
			{OSIOS, []string{"ios", "iphone os", "iphoneos", "ipados"}},
		},
		DeviceOSes: map[string]bool{
			OSAndroid: true,
			OSIOS:     true,
		},
		OSCodeNames: map[string]map[string]string{
			OSAndroid: {
				"cupcake":            "1.5",
				"donut":              "1.6",
				"eclair":             "2.1",
				"froyo":              "2.2",
				"gingerbread":        "2.3",
				"honeycomb":          "3.2",
				"ice cream sandwich": "4",
				"jelly bean":         "4.3",
				"jellybean":          "4.3",
				"kitkat":             "4.4",
				"lollipop":           "5.1",
				"marshmallow":        "6",
				"nougat":             "7.1",
				"oreo":               "8.1",
				"pie":                "9",
			},
			OSMac: {
				"snow leopard":  "10.6",
				"lion":          "10.7",
				"mountain lion": "10.8",
				"mavericks":     "10.9",
				"yosemite":      "10.10",
				"el capitan":    "10.11",
				"sierra":        "10.12",
				"high sierra":   "10.13",
				"mojave":        "10.14",
				"catalina":      "10.15",
				"big sur":       "11",
				"monterey":      "12",
				"ventura":       "13",
				"sonoma":        "14",
			},
			OSWindows: {
				"xp":    "5.1",
				"vista": "6",
			},
		},
		BundledBrowsers: map[Pair]map[string]string{
			{OSWindows, BrowserInternetExplorer}: {
				"6":  "5.1",
				"7":  "6",
				"8":  "7",
				"10": "8",
				"11": "8.1",
			},
			{OSMac, BrowserSafari}: {
				"4":   "10.6",
				"5.1": "10.7",
				"6":   "10.8",
				"7":   "10.9",
				"8":   "10.10",
				"9":   "10.11",
				"10":  "10.12",
				"11":  "10.13",
				"12":  "10.14",
				"13":  "10.15",
				"14":  "11",
				"15":  "12",
				"16":  "13",
				"17":  "14",
			},
		},
		MobilePairs: map[Pair]string{
			{OSAndroid, BrowserAndroid}:  "android emulator",
			{OSIOS, BrowserSafariMobile}: "iphone simulator",
		},
		MobileVariants: map[string]map[string]string{
			BrowserSafari: {OSIOS: BrowserSafariMobile},
		},
		DefaultOS: map[string]string{
			BrowserInternetExplorer: OSWindows,
			BrowserEdge:             OSWindows,
			BrowserSafari:           OSMac,
			BrowserChrome:           OSMac,
			BrowserFirefox:          OSLinux,
			BrowserAndroid:          OSAndroid,
			BrowserSafariMobile:     OSIOS,
		},
		DefaultOSVersion: map[string]string{
			OSWindows: "10",
			OSMac:     "10.15",
			OSLinux:   "20.04",
			OSAndroid: "10",
			OSIOS:     "16",
		},
	}
}

// InvertBundled returns OS version → browser version for a bundled pair. When several
// browser versions shipped with the same OS version the lexically greatest one wins.
func (t *Tables) InvertBundled(p Pair) map[string]string {
	forward, ok := t.BundledBrowsers[p]
	if !ok {
		return nil
	}
	inverse := make(map[string]string, len(forward))
	for browserVersion, osVersion := range forward {
		if prev, seen := inverse[osVersion]; !seen || browserVersion > prev {
			inverse[osVersion] = browserVersion
		}
	}
	return inverse
}
