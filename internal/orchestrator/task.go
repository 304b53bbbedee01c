package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// task drives one browser through its lifecycle. Only its own goroutine touches it.
type task struct {
	id             string
	def            models.BrowserDefinition
	cfg            models.RunConfig
	url            string
	connectTimeout time.Duration
	settle         time.Duration
	observers      []Observer

	state State
	since time.Time

	// pending is closed when a step that lost its race against the timeout returns
	pending <-chan struct{}
}

// runTask never returns an error: whatever goes wrong becomes a FAIL result. The session
// is quit exactly once on every path, including a panicking driver.
func (r *Runner) runTask(ctx context.Context, t *task) (result models.BrowserResult) {
	sess := session.New(t.def, r.provider.NewDriver(t.cfg.Credentials), r.normalizer)

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("session for %s panicked: %v", t.def, p)
		}
		r.teardown(ctx, t, sess)
		if err != nil {
			r.emit(t, StateFailed, err)
			result = failed(err)
			return
		}
		r.emit(t, StateSucceeded, nil)
	}()

	result, err = r.drive(ctx, t, sess)
	return result
}

// drive runs every step up to and including gathering
func (r *Runner) drive(ctx context.Context, t *task, sess *session.Session) (models.BrowserResult, error) {
	if err := r.startLimiter.Wait(ctx, r.provider.Name()); err != nil {
		return models.BrowserResult{}, fmt.Errorf("waiting to start %s: %w", t.def, err)
	}

	r.emit(t, StateEntering, nil)
	if err := r.race(ctx, t, "starting", sess.Enter); err != nil {
		return models.BrowserResult{}, err
	}
	r.emit(t, StateConnected, nil)

	r.emit(t, StateOpening, nil)
	err := r.race(ctx, t, "opening "+t.url+" in", func(ctx context.Context) error {
		if err := sess.Open(ctx, t.url); err != nil {
			return err
		}
		return sess.Prime(ctx)
	})
	if err != nil {
		return models.BrowserResult{}, err
	}

	r.emit(t, StateExecuting, nil)
	if _, err := sess.Execute(ctx, t.cfg.Code); err != nil {
		return models.BrowserResult{}, err
	}

	r.emit(t, StateSleeping, nil)
	if err := sess.Sleep(ctx, t.settle); err != nil {
		return models.BrowserResult{}, fmt.Errorf("waiting for %s to settle: %w", t.def, err)
	}

	r.emit(t, StateGathering, nil)
	var (
		g       errgroup.Group
		results []models.Result
		logs    []models.BrowserLog
	)
	g.Go(func() (err error) {
		results, err = sess.Results(ctx)
		return err
	})
	g.Go(func() (err error) {
		logs, err = sess.BrowserLogs(ctx, t.cfg.MinLogLevel)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.BrowserResult{}, err
	}

	return models.BrowserResult{Results: results, Logs: logs}, nil
}

// race runs step against the task's connect timeout. The step also receives a context
// carrying the deadline; a step that ignores it keeps running after the race is lost and
// is recorded as pending so teardown can wait for it.
func (r *Runner) race(ctx context.Context, t *task, what string, step func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)

	done := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				errc <- fmt.Errorf("%s %s panicked: %v", what, t.def, p)
			}
		}()
		errc <- step(stepCtx)
	}()

	timer := time.NewTimer(t.connectTimeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		return err
	case <-timer.C:
		t.pending = done
		return fmt.Errorf("timed out after %s %s %s", t.connectTimeout, what, t.def)
	}
}

// teardown quits the session. Its outcome never changes the task's result.
func (r *Runner) teardown(ctx context.Context, t *task, sess *session.Session) {
	r.emit(t, StateQuitting, nil)

	defer func() {
		if p := recover(); p != nil && t.cfg.Verbose {
			r.logger.Warn("Session quit panicked", zap.String("browser", t.def.DisplayName), zap.Any("panic", p))
		}
	}()

	quitCtx, cancel := context.WithTimeout(ctx, QuitTimeout)
	defer cancel()

	if t.pending != nil {
		select {
		case <-t.pending:
		case <-quitCtx.Done():
		}
	}

	if err := sess.Quit(quitCtx); err != nil && t.cfg.Verbose {
		r.logger.Warn("Failed to quit session",
			zap.String("browser", t.def.DisplayName),
			zap.String("session", sess.ID()),
			zap.Error(err))
	}
}

// emit moves t to state and notifies observers
func (r *Runner) emit(t *task, to State, err error) {
	now := time.Now()
	tr := Transition{
		TaskID:      t.id,
		DisplayName: t.def.DisplayName,
		Browser:     t.def,
		From:        t.state,
		To:          to,
		Elapsed:     now.Sub(t.since),
		At:          now,
	}
	if err != nil {
		tr.Error = err.Error()
	}
	t.state = to
	t.since = now

	r.logger.Debug("Task transition",
		zap.String("task", t.id),
		zap.String("browser", t.def.DisplayName),
		zap.Stringer("from", tr.From),
		zap.Stringer("to", tr.To),
		zap.Duration("elapsed", tr.Elapsed),
		zap.String("error", tr.Error))

	for _, o := range t.observers {
		o.Observe(tr)
	}
}
