package webdriver

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

var (
	// casing that title-casing gets wrong
	brandFixes = strings.NewReplacer("Iphone", "iPhone", "Ipad", "iPad", "Ipod", "iPod", "Ios", "iOS")

	windowsReleaseNames = map[string]string{
		"5.1": "XP",
		"6":   "Vista",
	}
)

// titled renders a canonical lowercase name the way provider dashboards spell it. A Caser
// is stateful, so each call gets its own.
func titled(s string) string {
	return brandFixes.Replace(cases.Title(language.English).String(s))
}

func isMobile(os string) bool {
	return os == catalog.OSAndroid || os == catalog.OSIOS
}

func windowsRelease(version string) string {
	if name, ok := windowsReleaseNames[version]; ok {
		return name
	}
	return version
}

// SauceCapabilities maps a browser to Sauce Labs JSON wire capabilities
func SauceCapabilities(def models.BrowserDefinition, _ models.Credentials) map[string]any {
	caps := map[string]any{
		"name":        def.DisplayName,
		"browserName": sauceBrowserName(def.Name),
	}

	if isMobile(def.OS) {
		caps["platformName"] = titled(def.OS)
		caps["platformVersion"] = def.OSVersion
		caps["deviceName"] = titled(def.Device)
		return caps
	}

	caps["version"] = def.Version
	caps["platform"] = saucePlatform(def.OS, def.OSVersion)
	return caps
}

func sauceBrowserName(name string) string {
	switch name {
	case catalog.BrowserEdge:
		return "MicrosoftEdge"
	case catalog.BrowserSafariMobile:
		return "Safari"
	case catalog.BrowserAndroid:
		return "Browser"
	}
	return name
}

func saucePlatform(os, version string) string {
	switch os {
	case catalog.OSWindows:
		return "Windows " + windowsRelease(version)
	case catalog.OSMac:
		if macBefore(version, 10, 12) {
			return "OS X " + version
		}
		return "macOS " + version
	case catalog.OSLinux:
		return "Linux"
	}
	return titled(os)
}

// macBefore reports whether version is older than major.minor
func macBefore(version string, major, minor int) bool {
	parts := strings.SplitN(version, ".", 3)
	maj, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	if maj != major {
		return maj < major
	}
	if len(parts) < 2 {
		return minor > 0
	}
	sub, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return sub < minor
}

// BrowserStackCapabilities returns a CapabilitiesFunc using tables for macOS release names
func BrowserStackCapabilities(tables *catalog.Tables) CapabilitiesFunc {
	macNames := make(map[string]string)
	for name, version := range tables.OSCodeNames[catalog.OSMac] {
		macNames[version] = titled(name)
	}

	return func(def models.BrowserDefinition, creds models.Credentials) map[string]any {
		caps := map[string]any{
			"name":               def.DisplayName,
			"browserstack.user":  creds.UserName,
			"browserstack.key":   creds.AccessToken,
			"browserstack.debug": "true",
		}

		if isMobile(def.OS) {
			caps["browserName"] = browserStackMobileBrowser(def.Name)
			caps["device"] = titled(def.Device)
			caps["os_version"] = def.OSVersion
			caps["real_mobile"] = "true"
			return caps
		}

		caps["browser"] = browserStackBrowser(def.Name)
		caps["browser_version"] = def.Version
		switch def.OS {
		case catalog.OSWindows:
			caps["os"] = "Windows"
			caps["os_version"] = windowsRelease(def.OSVersion)
		case catalog.OSMac:
			caps["os"] = "OS X"
			if name, ok := macNames[def.OSVersion]; ok {
				caps["os_version"] = name
			} else {
				caps["os_version"] = def.OSVersion
			}
		default:
			caps["os"] = titled(def.OS)
			caps["os_version"] = def.OSVersion
		}
		return caps
	}
}

func browserStackBrowser(name string) string {
	switch name {
	case catalog.BrowserInternetExplorer:
		return "IE"
	}
	return titled(name)
}

func browserStackMobileBrowser(name string) string {
	if name == catalog.BrowserSafariMobile {
		return "iphone"
	}
	return name
}
