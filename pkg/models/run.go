package models

import "time"

// RunStatus represents the current state of a batch run
type RunStatus string

const (
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusError     RunStatus = "ERROR"
)

// Credentials authenticate against a provider account
type Credentials struct {
	UserName    string `json:"userName" yaml:"userName"`
	AccessToken string `json:"accessToken" yaml:"accessToken"`
}

// RunConfig is everything one batch run needs besides the provider
type RunConfig struct {
	Browsers    []byte        `json:"-"` // raw YAML or JSON browsers mapping
	Code        string        `json:"code"`
	URL         string        `json:"url,omitempty"`
	Verbose     bool          `json:"verbose,omitempty"`
	Timeout     int           `json:"timeout,omitempty"` // connect/open timeout in milliseconds
	Settle      time.Duration `json:"-"`
	MinLogLevel LogLevel      `json:"logLevel,omitempty"`
	Credentials Credentials   `json:"credentials"`
}

// Run is a batch run tracked by the HTTP server
type Run struct {
	ID          string              `json:"id"`
	Provider    string              `json:"provider"`
	Status      RunStatus           `json:"status"`
	StartedAt   time.Time           `json:"startedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	Browsers    []BrowserDefinition `json:"browsers"`
	Result      BatchResult         `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}
