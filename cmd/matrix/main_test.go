package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/browsermatrix/internal/orchestrator"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "dev (commit: unknown)\n", out)
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"run", "resolve", "serve"} {
		assert.Contains(t, out, name)
	}
}

func TestResolveCommand(t *testing.T) {
	path := writeFile(t, "run.yaml", `
provider: saucelabs
code: report("ok")
browsers:
  ie:
    name: msie
    versions:
      old: 10
      new: 11
  firefox:
    name: firefox
`)

	out, err := execute(t, "resolve", path)
	require.NoError(t, err)

	var defs []models.BrowserDefinition
	require.NoError(t, yaml.Unmarshal([]byte(out), &defs))

	want := []models.BrowserDefinition{
		{DisplayName: "ie old", Name: "internet explorer", Version: "10", OS: "windows", OSVersion: "8"},
		{DisplayName: "ie new", Name: "internet explorer", Version: "11", OS: "windows", OSVersion: "8.1"},
		{DisplayName: "firefox", Name: "firefox", Version: "latest", OS: "linux", OSVersion: "20.04"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("resolve output mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBrowsersFlag(t *testing.T) {
	path := writeFile(t, "browsers.json", `{"edge": {"name": "edge"}}`)

	out, err := execute(t, "resolve", "--browsers", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name: edge")
	assert.Contains(t, out, "os: windows")
}

func TestResolveReportsConfigurationErrors(t *testing.T) {
	path := writeFile(t, "run.yaml", "browsers:\n  broken:\n    version: 11\n")

	_, err := execute(t, "resolve", path)
	assert.ErrorContains(t, err, "browser name must be defined")
}

func TestRunRequiresCredentials(t *testing.T) {
	for _, key := range []string{"MATRIX_USERNAME", "MATRIX_ACCESS_KEY", "SAUCE_USERNAME", "SAUCE_ACCESS_KEY"} {
		t.Setenv(key, "")
	}
	path := writeFile(t, "run.yaml", "browsers:\n  chrome:\n    name: chrome\n")
	envFile := filepath.Join(t.TempDir(), "missing.env")

	_, err := execute(t, "run", path, "--env-file", envFile, "--provider", "saucelabs")
	assert.ErrorIs(t, err, orchestrator.ErrInvalidRun)
	assert.ErrorContains(t, err, "credentials.userName")
}

func TestRunRejectsBadSettle(t *testing.T) {
	t.Setenv("MATRIX_USERNAME", "alice")
	t.Setenv("MATRIX_ACCESS_KEY", "secret")
	path := writeFile(t, "run.yaml", "settle: soon\nbrowsers:\n  chrome:\n    name: chrome\n")

	_, err := execute(t, "run", path, "--env-file", filepath.Join(t.TempDir(), "none"))
	assert.ErrorContains(t, err, `invalid settle duration "soon"`)
}

func TestLoadRunFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "run.yaml", "provider: browserstack\nurl: https://example.com\ntimeout: 1000\n")

	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--url", "https://example.org", "--log-level", "warn"}))

	file, err := loadRun(cmd, f, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "browserstack", file.Provider)
	assert.Equal(t, "https://example.org", file.URL)
	assert.Equal(t, 1000, file.Timeout)
	assert.Equal(t, "warn", file.LogLevel)
}

func TestLoadRunDefaultsProvider(t *testing.T) {
	cmd := newRunCmd(&globalFlags{})
	file, err := loadRun(cmd, &runFlags{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "saucelabs", file.Provider)
}

func TestWriteReport(t *testing.T) {
	batch := models.BatchResult{
		"chrome": {
			Results: []models.Result{{Type: "PASS", Message: "title ok"}},
			Logs:    []models.BrowserLog{{Message: "hello", Level: models.LevelWarning}},
		},
	}

	var js bytes.Buffer
	require.NoError(t, writeReport(&js, "json", batch))
	var decoded map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "PASS", decoded["chrome"]["results"][0]["type"])
	assert.Equal(t, "WARNING", decoded["chrome"]["logs"][0]["level"])

	var ym bytes.Buffer
	require.NoError(t, writeReport(&ym, "yaml", batch))
	assert.Contains(t, ym.String(), "chrome:")
	assert.Contains(t, ym.String(), "type: PASS")

	assert.Error(t, writeReport(&bytes.Buffer{}, "xml", batch))
}
