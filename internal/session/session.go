// Package session adapts a provider-specific Driver to the uniform lifecycle every
// browser in a run goes through: enter, open, execute, sleep, collect, quit.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// Session is one remote browser owned by a single task. It is not safe for concurrent use.
type Session struct {
	def        models.BrowserDefinition
	driver     Driver
	normalizer LogNormalizer
	id         string

	// logs holds every raw entry seen so far; cursor marks how many were delivered
	logs   []models.RawLog
	cursor int
}

// New wraps driver for def
func New(def models.BrowserDefinition, driver Driver, normalizer LogNormalizer) *Session {
	return &Session{
		def:        def,
		driver:     driver,
		normalizer: normalizer,
	}
}

// ID returns the provider session id once Enter succeeded
func (s *Session) ID() string {
	return s.id
}

// Definition returns the browser this session was opened for
func (s *Session) Definition() models.BrowserDefinition {
	return s.def
}

// Enter starts the remote browser
func (s *Session) Enter(ctx context.Context) error {
	id, err := s.driver.Init(ctx, s.def)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", s.def, err)
	}
	s.id = id
	return nil
}

// Open navigates to url
func (s *Session) Open(ctx context.Context, url string) error {
	if err := s.driver.Open(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s in %s: %w", url, s.def, err)
	}
	return nil
}

// Prime installs the results-collection runtime in the current page
func (s *Session) Prime(ctx context.Context) error {
	if _, err := s.driver.Execute(ctx, primeScript); err != nil {
		return fmt.Errorf("failed to prepare results collection in %s: %w", s.def, err)
	}
	return nil
}

// Execute runs code in the page and returns its value
func (s *Session) Execute(ctx context.Context, code string) (any, error) {
	v, err := s.driver.Execute(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("script failed in %s: %w", s.def, err)
	}
	return v, nil
}

// Sleep waits d on the driver's clock
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.driver.Sleep(ctx, d)
}

// Results reads what the executed code reported. A payload that cannot be decoded is
// returned as a single RAW result.
func (s *Session) Results(ctx context.Context) ([]models.Result, error) {
	raw, err := s.driver.Execute(ctx, resultsScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read results from %s: %w", s.def, err)
	}
	return decodeResults(raw), nil
}

// BrowserLogs returns the console entries not delivered by an earlier call, without
// extension output and below minLevel.
func (s *Session) BrowserLogs(ctx context.Context, minLevel models.LogLevel) ([]models.BrowserLog, error) {
	types, err := s.driver.LogTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list log types for %s: %w", s.def, err)
	}
	if !slices.Contains(types, BrowserLogType) {
		return []models.BrowserLog{}, nil
	}

	raw, err := s.driver.Logs(ctx, BrowserLogType)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs from %s: %w", s.def, err)
	}
	s.logs = append(s.logs, s.unseen(raw)...)
	fresh := s.logs[s.cursor:]
	s.cursor = len(s.logs)

	logs := make([]models.BrowserLog, 0, len(fresh))
	for _, r := range fresh {
		l := s.normalizer.Normalize(r, s.def)
		if l.Addon || l.Level < minLevel {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// Quit ends the remote browser
func (s *Session) Quit(ctx context.Context) error {
	if err := s.driver.Quit(ctx); err != nil {
		return fmt.Errorf("failed to quit %s: %w", s.def, err)
	}
	return nil
}

// unseen drops the prefix of raw that repeats entries already held, for drivers that
// report the whole history on every call
func (s *Session) unseen(raw []models.RawLog) []models.RawLog {
	if len(s.logs) == 0 || len(raw) < len(s.logs) {
		return raw
	}
	for i, held := range s.logs {
		if !sameLog(held, raw[i]) {
			return raw
		}
	}
	return raw[len(s.logs):]
}

func sameLog(a, b models.RawLog) bool {
	return a.Level == b.Level &&
		a.Message == b.Message &&
		a.Source == b.Source &&
		a.Timestamp.Equal(b.Timestamp)
}

func decodeResults(raw any) []models.Result {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return []models.Result{}
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return []models.Result{{Type: models.ResultRaw, Data: raw}}
		}
	}

	var results []models.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return []models.Result{{Type: models.ResultRaw, Message: fmt.Sprintf("%v", raw), Data: raw}}
	}
	if results == nil {
		results = []models.Result{}
	}
	return results
}
