// Package orchestrator runs one session lifecycle per resolved browser, never holding
// more remote sessions than the account allows, and gathers a per-browser report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/logparse"
	"github.com/shehryarbajwa/browsermatrix/internal/matrix"
	"github.com/shehryarbajwa/browsermatrix/internal/provider"
	"github.com/shehryarbajwa/browsermatrix/internal/ratelimit"
	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

const (
	// DefaultURL is opened when a run names no page
	DefaultURL = "about:blank"
	// DefaultConnectTimeout applies when neither the run nor the provider sets one
	DefaultConnectTimeout = 2 * time.Minute
	// DefaultSettle is how long a page runs after the script before results are read
	DefaultSettle = 3 * time.Second
	// QuitTimeout bounds teardown of a single session
	QuitTimeout = time.Minute
)

// ErrInvalidRun wraps every error that rejects a run before any session is opened
var ErrInvalidRun = errors.New("invalid run configuration")

// Options configures a Runner
type Options struct {
	Provider   provider.Provider
	Normalizer session.LogNormalizer
	Tables     *catalog.Tables
	Logger     *zap.Logger

	// StartLimiter throttles session starts per provider; nil never throttles
	StartLimiter *ratelimit.Limiter

	Metrics   *Metrics
	Observers []Observer
}

// Runner executes batch runs against one provider
type Runner struct {
	provider     provider.Provider
	normalizer   session.LogNormalizer
	resolver     *matrix.Resolver
	logger       *zap.Logger
	startLimiter *ratelimit.Limiter
	observers    []Observer
}

// NewRunner creates a runner. Tables, Normalizer and Logger default to the built-in
// tables, the regex log parser and a no-op logger.
func NewRunner(opts Options) *Runner {
	if opts.Tables == nil {
		opts.Tables = catalog.Default()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = logparse.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StartLimiter == nil {
		opts.StartLimiter = ratelimit.Unlimited()
	}

	observers := append([]Observer{}, opts.Observers...)
	if opts.Metrics != nil {
		observers = append(observers, opts.Metrics.observer(opts.Provider.Name()))
	}

	return &Runner{
		provider:     opts.Provider,
		normalizer:   opts.Normalizer,
		resolver:     matrix.NewResolver(opts.Tables, opts.Logger),
		logger:       opts.Logger,
		startLimiter: opts.StartLimiter,
		observers:    observers,
	}
}

// Run validates cfg, resolves its browsers and executes them. The error is non-nil only
// when the run is rejected before any session is opened; failures of individual browsers
// are reported as FAIL results.
func (r *Runner) Run(ctx context.Context, cfg models.RunConfig) (models.BatchResult, error) {
	defs, err := r.Prepare(cfg)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, cfg, defs)
}

// Prepare validates cfg and resolves its browsers without contacting the provider
func (r *Runner) Prepare(cfg models.RunConfig) ([]models.BrowserDefinition, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	parsed, err := matrix.Parse(cfg.Browsers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}
	defs, err := r.resolver.Resolve(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}
	return defs, nil
}

// Execute runs already resolved browsers. The account quota is fetched once and caps the
// number of sessions open at the same time; tasks are admitted in order as slots free up.
//
// Cancelling ctx stops admitting tasks; tasks already admitted run to completion.
func (r *Runner) Execute(ctx context.Context, cfg models.RunConfig, defs []models.BrowserDefinition, observers ...Observer) (models.BatchResult, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	quota, err := r.provider.ConcurrencyLimit(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch concurrency limit from %s: %w", r.provider.Name(), err)
	}
	if quota < 1 {
		r.logger.Warn("Provider reported no free sessions, running one at a time",
			zap.String("provider", r.provider.Name()), zap.Int("quota", quota))
		quota = 1
	}

	r.logger.Info("Starting run",
		zap.String("provider", r.provider.Name()),
		zap.Int("browsers", len(defs)),
		zap.Int("concurrency", quota))

	var (
		batch = make(models.BatchResult, len(defs))
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = semaphore.NewWeighted(int64(quota))
		seen  = make(map[string]bool, len(defs))
	)
	// admitted tasks must not be cut short by the caller
	taskCtx := context.WithoutCancel(ctx)
	record := func(displayName string, res models.BrowserResult) {
		mu.Lock()
		defer mu.Unlock()
		batch[displayName] = res
	}

	for _, def := range defs {
		if seen[def.DisplayName] {
			r.logger.Warn("Duplicate display name, later result wins", zap.String("browser", def.DisplayName))
		}
		seen[def.DisplayName] = true

		t := r.newTask(cfg, def, observers)
		if err := sem.Acquire(ctx, 1); err != nil {
			record(def.DisplayName, failed(fmt.Errorf("run cancelled before %s started: %w", def, err)))
			r.emit(t, StateFailed, err)
			continue
		}

		def := def
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			record(def.DisplayName, r.runTask(taskCtx, t))
		}()
	}
	wg.Wait()

	failures := 0
	for _, res := range batch {
		if res.Failed() {
			failures++
		}
	}
	r.logger.Info("Run finished",
		zap.String("provider", r.provider.Name()),
		zap.Int("browsers", len(batch)),
		zap.Int("failed", failures))

	return batch, nil
}

func validate(cfg models.RunConfig) error {
	if strings.TrimSpace(cfg.Credentials.UserName) == "" {
		return fmt.Errorf("%w: credentials.userName must be a non-empty string", ErrInvalidRun)
	}
	if strings.TrimSpace(cfg.Credentials.AccessToken) == "" {
		return fmt.Errorf("%w: credentials.accessToken must be a non-empty string", ErrInvalidRun)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidRun)
	}
	return nil
}

func (r *Runner) newTask(cfg models.RunConfig, def models.BrowserDefinition, extra []Observer) *task {
	observers := r.observers
	if len(extra) > 0 {
		observers = append(append([]Observer{}, r.observers...), extra...)
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout == 0 {
		timeout = r.provider.ConnectTimeout()
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	settle := cfg.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	return &task{
		id:             uuid.New().String(),
		def:            def,
		cfg:            cfg,
		url:            url,
		connectTimeout: timeout,
		settle:         settle,
		observers:      observers,
		state:          StateNotStarted,
		since:          time.Now(),
	}
}

// failed is the result recorded for a task that did not complete
func failed(err error) models.BrowserResult {
	return models.BrowserResult{
		Results: []models.Result{{Type: models.ResultFail, Message: err.Error()}},
		Logs:    []models.BrowserLog{},
	}
}
