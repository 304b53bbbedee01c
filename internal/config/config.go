// Package config loads run files and provider credentials.
//
// A run file is YAML (or JSON) with these keys:
//
//	provider: saucelabs
//	url: https://example.com
//	code: report("ok", document.title)
//	codeFile: ./check.js     # read relative to the run file; overrides code
//	timeout: 60000           # connect/open timeout in milliseconds
//	settle: 5s
//	verbose: true
//	logLevel: WARNING
//	browsers:
//	  chrome:
//	    name: chrome
//	  ie:
//	    name: ie
//	    versions: {old: 10, new: 11}
//
// Credentials never live in the run file. They come from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// Environment variables holding credentials. The generic pair wins over provider ones.
const (
	EnvUserName  = "MATRIX_USERNAME"
	EnvAccessKey = "MATRIX_ACCESS_KEY"
)

var providerEnv = map[string][2]string{
	"saucelabs":    {"SAUCE_USERNAME", "SAUCE_ACCESS_KEY"},
	"browserstack": {"BROWSERSTACK_USERNAME", "BROWSERSTACK_ACCESS_KEY"},
}

// File is a parsed run file
type File struct {
	Provider string    `yaml:"provider"`
	URL      string    `yaml:"url"`
	Code     string    `yaml:"code"`
	CodeFile string    `yaml:"codeFile"`
	Timeout  int       `yaml:"timeout"`
	Settle   string    `yaml:"settle"`
	Verbose  bool      `yaml:"verbose"`
	LogLevel string    `yaml:"logLevel"`
	Browsers yaml.Node `yaml:"browsers"`

	dir string
}

// Load reads and parses the run file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// Parse decodes a run file. Relative codeFile paths resolve against the working directory.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid run file: %w", err)
	}
	return &f, nil
}

// BrowsersSource re-encodes the browsers mapping for the matrix parser, keeping key order
// and scalar spellings. It returns nil when the file has no browsers key.
func (f *File) BrowsersSource() ([]byte, error) {
	if f.Browsers.Kind == 0 {
		return nil, nil
	}
	data, err := yaml.Marshal(&f.Browsers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode browsers: %w", err)
	}
	return data, nil
}

// RunConfig assembles the run for creds
func (f *File) RunConfig(creds models.Credentials) (models.RunConfig, error) {
	cfg := models.RunConfig{
		Code:        f.Code,
		URL:         f.URL,
		Verbose:     f.Verbose,
		Timeout:     f.Timeout,
		Credentials: creds,
	}

	if f.CodeFile != "" {
		path := f.CodeFile
		if !filepath.IsAbs(path) && f.dir != "" {
			path = filepath.Join(f.dir, path)
		}
		code, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read code file: %w", err)
		}
		cfg.Code = string(code)
	}

	if f.Settle != "" {
		d, err := time.ParseDuration(f.Settle)
		if err != nil {
			return cfg, fmt.Errorf("invalid settle duration %q: %w", f.Settle, err)
		}
		cfg.Settle = d
	}

	level, err := models.ParseLogLevel(f.LogLevel)
	if err != nil {
		return cfg, err
	}
	cfg.MinLogLevel = level

	browsers, err := f.BrowsersSource()
	if err != nil {
		return cfg, err
	}
	cfg.Browsers = browsers

	return cfg, nil
}

// LoadEnv loads .env files into the environment without overriding variables already
// set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LocalProvider needs no account; it gets placeholder credentials
const LocalProvider = "local"

// Credentials reads the credentials for provider from the environment. Empty fields are
// left for run validation to reject.
func Credentials(provider string) models.Credentials {
	creds := models.Credentials{
		UserName:    strings.TrimSpace(os.Getenv(EnvUserName)),
		AccessToken: strings.TrimSpace(os.Getenv(EnvAccessKey)),
	}

	if names, ok := providerEnv[provider]; ok {
		if creds.UserName == "" {
			creds.UserName = strings.TrimSpace(os.Getenv(names[0]))
		}
		if creds.AccessToken == "" {
			creds.AccessToken = strings.TrimSpace(os.Getenv(names[1]))
		}
	}

	if provider == LocalProvider {
		if creds.UserName == "" {
			creds.UserName = LocalProvider
		}
		if creds.AccessToken == "" {
			creds.AccessToken = LocalProvider
		}
	}

	return creds
}
