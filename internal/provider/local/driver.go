package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// ErrUnsupportedBrowser is returned for anything but Chrome
var ErrUnsupportedBrowser = errors.New("local provider only runs chrome")

// Driver controls one containerised Chrome over the DevTools protocol
type Driver struct {
	containers Containers

	instance *Instance
	browser  *rod.Browser
	page     *rod.Page

	// life outlives the step contexts and ends on Quit
	life       context.Context
	cancelLife context.CancelFunc
	events     sync.WaitGroup

	mu   sync.Mutex
	logs []models.RawLog
}

// NewDriver creates an unconnected driver
func NewDriver(containers Containers) *Driver {
	return &Driver{containers: containers}
}

// Init launches a container and opens a blank tab in it
func (d *Driver) Init(ctx context.Context, def models.BrowserDefinition) (string, error) {
	if def.Name != catalog.BrowserChrome {
		return "", fmt.Errorf("%w, got %q", ErrUnsupportedBrowser, def.Name)
	}

	instance, err := d.containers.Launch(ctx, uuid.New().String())
	if err != nil {
		return "", err
	}
	d.instance = instance
	d.life, d.cancelLife = context.WithCancel(context.Background())

	// abandon the connection attempt with the step, not with the session
	stop := context.AfterFunc(ctx, d.cancelLife)
	defer stop()

	browser := rod.New().ControlURL(instance.ControlURL).Context(d.life)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to chrome: %w", err)
	}
	d.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("failed to open tab: %w", err)
	}
	d.page = page
	d.watchConsole()

	return instance.ContainerID, nil
}

// watchConsole buffers console calls and uncaught exceptions until Logs drains them
func (d *Driver) watchConsole() {
	wait := d.page.Context(d.life).EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			d.record(consoleEntry(e))
		},
		func(e *proto.RuntimeExceptionThrown) {
			d.record(exceptionEntry(e))
		},
	)

	d.events.Add(1)
	go func() {
		defer d.events.Done()
		wait()
	}()
}

func (d *Driver) record(entry models.RawLog) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logs = append(d.logs, entry)
}

func consoleLevel(t proto.RuntimeConsoleAPICalledType) string {
	switch t {
	case proto.RuntimeConsoleAPICalledTypeError, proto.RuntimeConsoleAPICalledTypeAssert:
		return "SEVERE"
	case proto.RuntimeConsoleAPICalledTypeWarning:
		return "WARNING"
	case proto.RuntimeConsoleAPICalledTypeDebug:
		return "DEBUG"
	}
	return "INFO"
}

// located renders an entry the way chromedriver reports browser logs
func located(url string, line, column int, text string) string {
	if url == "" {
		url = "console-api"
	}
	return url + " " + strconv.Itoa(line+1) + ":" + strconv.Itoa(column+1) + " " + strconv.Quote(text)
}

// eventTime converts a Runtime timestamp, in milliseconds since the epoch
func eventTime(ts proto.RuntimeTimestamp) time.Time {
	return time.UnixMilli(int64(ts))
}

func consoleEntry(e *proto.RuntimeConsoleAPICalled) models.RawLog {
	parts := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.Str())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	text := strings.Join(parts, " ")

	var url string
	var line, column int
	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		frame := e.StackTrace.CallFrames[0]
		url, line, column = frame.URL, frame.LineNumber, frame.ColumnNumber
	}

	return models.RawLog{
		Level:     consoleLevel(e.Type),
		Message:   located(url, line, column, text),
		Timestamp: eventTime(e.Timestamp),
		Source:    url,
	}
}

func exceptionEntry(e *proto.RuntimeExceptionThrown) models.RawLog {
	details := e.ExceptionDetails
	if details == nil {
		return models.RawLog{Level: "SEVERE", Timestamp: eventTime(e.Timestamp)}
	}

	text := details.Text
	if details.Exception != nil && details.Exception.Description != "" {
		text = details.Exception.Description
	}

	return models.RawLog{
		Level:     "SEVERE",
		Message:   located(details.URL, details.LineNumber, details.ColumnNumber, text),
		Timestamp: eventTime(e.Timestamp),
		Source:    details.URL,
	}
}

func (d *Driver) LogTypes(ctx context.Context) ([]string, error) {
	return []string{session.BrowserLogType}, nil
}

// Logs drains the entries buffered since the previous call
func (d *Driver) Logs(ctx context.Context, logType string) ([]models.RawLog, error) {
	if logType != session.BrowserLogType {
		return nil, fmt.Errorf("unknown log type %q", logType)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	logs := d.logs
	d.logs = nil
	return logs, nil
}

// Execute runs code as a function body and awaits a returned promise
func (d *Driver) Execute(ctx context.Context, code string) (any, error) {
	if d.page == nil {
		return nil, errors.New("no active page")
	}

	res, err := d.page.Context(ctx).Evaluate(rod.Eval("function() {\n" + code + "\n}").ByPromise())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Value.Val(), nil
}

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

// Open navigates and waits for the load event
func (d *Driver) Open(ctx context.Context, url string) error {
	if d.page == nil {
		return errors.New("no active page")
	}

	page := d.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Quit closes the browser and removes its container
func (d *Driver) Quit(ctx context.Context) error {
	if d.instance == nil {
		return nil
	}

	var errs []error
	if d.browser != nil {
		if err := d.browser.Context(ctx).Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close chrome: %w", err))
		}
	}
	if d.cancelLife != nil {
		d.cancelLife()
	}
	d.events.Wait()

	if err := d.containers.Stop(ctx, d.instance.ContainerID); err != nil {
		errs = append(errs, err)
	}

	d.instance, d.browser, d.page = nil, nil, nil
	return errors.Join(errs...)
}
