package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/browsermatrix/internal/matrix"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

const runFile = `
provider: browserstack
url: https://example.com
codeFile: check.js
timeout: 30000
settle: 500ms
logLevel: warning
browsers:
  safari:
    name: safari
    osVersion: 10.10
  chrome:
    name: chrome
  ie:
    name: ie
    versions:
      "10": 10
      "11": 11
`

func TestLoadRunFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.yaml"), []byte(runFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "check.js"), []byte("report('ok')"), 0o644))

	f, err := Load(filepath.Join(dir, "run.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "browserstack", f.Provider)

	creds := models.Credentials{UserName: "u", AccessToken: "k"}
	cfg, err := f.RunConfig(creds)
	require.NoError(t, err)

	assert.Equal(t, "report('ok')", cfg.Code)
	assert.Equal(t, "https://example.com", cfg.URL)
	assert.Equal(t, 30000, cfg.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Settle)
	assert.Equal(t, models.LevelWarning, cfg.MinLogLevel)
	assert.Equal(t, creds, cfg.Credentials)

	parsed, err := matrix.Parse(cfg.Browsers)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 3)
	assert.Equal(t, "safari", parsed.Entries[0].DisplayName)
	assert.Equal(t, "chrome", parsed.Entries[1].DisplayName)
	assert.Equal(t, "ie", parsed.Entries[2].DisplayName)
}

func TestRunConfigErrors(t *testing.T) {
	f, err := Parse([]byte("settle: soon\n"))
	require.NoError(t, err)
	_, err = f.RunConfig(models.Credentials{})
	assert.ErrorContains(t, err, "invalid settle duration")

	f, err = Parse([]byte("logLevel: loud\n"))
	require.NoError(t, err)
	_, err = f.RunConfig(models.Credentials{})
	assert.Error(t, err)

	f, err = Parse([]byte("codeFile: /does/not/exist.js\n"))
	require.NoError(t, err)
	_, err = f.RunConfig(models.Credentials{})
	assert.ErrorContains(t, err, "failed to read code file")

	_, err = Parse([]byte("browsers: [unclosed\n"))
	assert.Error(t, err)
}

func TestNoBrowsersKey(t *testing.T) {
	f, err := Parse([]byte("code: x\n"))
	require.NoError(t, err)

	src, err := f.BrowsersSource()
	require.NoError(t, err)
	assert.Nil(t, src)
}

func TestCredentials(t *testing.T) {
	t.Setenv(EnvUserName, "")
	t.Setenv(EnvAccessKey, "")
	t.Setenv("SAUCE_USERNAME", "sauce-user")
	t.Setenv("SAUCE_ACCESS_KEY", "sauce-key")

	assert.Equal(t, models.Credentials{UserName: "sauce-user", AccessToken: "sauce-key"}, Credentials("saucelabs"))
	assert.Equal(t, models.Credentials{}, Credentials("browserstack"))
	assert.Equal(t, models.Credentials{UserName: "local", AccessToken: "local"}, Credentials(LocalProvider))

	t.Setenv(EnvUserName, "generic")
	assert.Equal(t, "generic", Credentials("saucelabs").UserName)
	assert.Equal(t, "sauce-key", Credentials("saucelabs").AccessToken)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BROWSERMATRIX_TEST_VALUE=from-file\n"), 0o644))
	t.Setenv("BROWSERMATRIX_TEST_VALUE", "")
	os.Unsetenv("BROWSERMATRIX_TEST_VALUE")

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("BROWSERMATRIX_TEST_VALUE"))
}
