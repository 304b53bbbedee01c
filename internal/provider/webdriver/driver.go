package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// CapabilitiesFunc maps a resolved browser to a provider's desired capabilities
type CapabilitiesFunc func(def models.BrowserDefinition, creds models.Credentials) map[string]any

// Error is a failure reported by the remote end
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("webdriver: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webdriver: HTTP %d: %s", e.StatusCode, e.Message)
}

// response covers both JSON wire ({sessionId, status, value}) and W3C ({value}) replies
type response struct {
	SessionID string          `json:"sessionId"`
	Status    *int            `json:"status"`
	Value     json.RawMessage `json:"value"`
}

type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type logEntry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// Driver talks to a remote WebDriver hub for a single session. It implements session.Driver.
type Driver struct {
	client       *http.Client
	hubURL       string
	creds        models.Credentials
	capabilities CapabilitiesFunc
	sessionID    string
}

// NewDriver creates an unconnected driver for hubURL
func NewDriver(client *http.Client, hubURL string, creds models.Credentials, capabilities CapabilitiesFunc) *Driver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Driver{
		client:       client,
		hubURL:       strings.TrimRight(hubURL, "/"),
		creds:        creds,
		capabilities: capabilities,
	}
}

// Init creates the remote session
func (d *Driver) Init(ctx context.Context, def models.BrowserDefinition) (string, error) {
	caps := d.capabilities(def, d.creds)
	body := map[string]any{"desiredCapabilities": caps}

	resp, err := d.do(ctx, http.MethodPost, "/session", body)
	if err != nil {
		return "", err
	}

	id := resp.SessionID
	if id == "" {
		var w3c struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(resp.Value, &w3c); err == nil {
			id = w3c.SessionID
		}
	}
	if id == "" {
		return "", fmt.Errorf("webdriver: hub returned no session id")
	}

	d.sessionID = id
	return id, nil
}

// LogTypes lists the log channels the session exposes
func (d *Driver) LogTypes(ctx context.Context) ([]string, error) {
	var types []string
	if err := d.sessionCommand(ctx, http.MethodGet, "/log/types", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// Logs returns the entries recorded since the last call for logType
func (d *Driver) Logs(ctx context.Context, logType string) ([]models.RawLog, error) {
	var entries []logEntry
	if err := d.sessionCommand(ctx, http.MethodPost, "/log", map[string]string{"type": logType}, &entries); err != nil {
		return nil, err
	}

	logs := make([]models.RawLog, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, models.RawLog{
			Level:     e.Level,
			Message:   e.Message,
			Timestamp: time.UnixMilli(e.Timestamp),
			Source:    e.Source,
		})
	}
	return logs, nil
}

// Execute runs code as the body of a synchronous script
func (d *Driver) Execute(ctx context.Context, code string) (any, error) {
	var value any
	body := map[string]any{"script": code, "args": []any{}}
	if err := d.sessionCommand(ctx, http.MethodPost, "/execute", body, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// Sleep waits d or until ctx is done. The remote session stays idle meanwhile.
func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open navigates the session to url
func (d *Driver) Open(ctx context.Context, url string) error {
	return d.sessionCommand(ctx, http.MethodPost, "/url", map[string]string{"url": url}, nil)
}

// Quit deletes the remote session. Quitting a driver that never started is a no-op.
func (d *Driver) Quit(ctx context.Context) error {
	if d.sessionID == "" {
		return nil
	}
	err := d.sessionCommand(ctx, http.MethodDelete, "", nil, nil)
	d.sessionID = ""
	return err
}

func (d *Driver) sessionCommand(ctx context.Context, method, path string, body, out any) error {
	if d.sessionID == "" {
		return fmt.Errorf("webdriver: no active session")
	}

	resp, err := d.do(ctx, method, "/session/"+d.sessionID+path, body)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Value, out); err != nil {
		return fmt.Errorf("webdriver: failed to decode %s %s reply: %w", method, path, err)
	}
	return nil
}

func (d *Driver) do(ctx context.Context, method, path string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("webdriver: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.hubURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(d.creds.UserName, d.creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	res, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webdriver: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("webdriver: failed to read reply: %w", err)
	}

	var resp response
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			if res.StatusCode >= http.StatusBadRequest {
				return nil, &Error{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(data))}
			}
			return nil, fmt.Errorf("webdriver: failed to decode reply: %w", err)
		}
	}

	if res.StatusCode >= http.StatusBadRequest || (resp.Status != nil && *resp.Status != 0) {
		return nil, remoteError(res.StatusCode, resp)
	}
	return &resp, nil
}

func remoteError(statusCode int, resp response) *Error {
	e := &Error{StatusCode: statusCode}
	var v errorValue
	if err := json.Unmarshal(resp.Value, &v); err == nil {
		e.Code = v.Error
		e.Message = v.Message
	} else {
		e.Message = string(resp.Value)
	}
	if e.Code == "" && resp.Status != nil && *resp.Status != 0 {
		e.Code = fmt.Sprintf("status %d", *resp.Status)
	}
	return e
}
