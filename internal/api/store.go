package api

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shehryarbajwa/browsermatrix/internal/orchestrator"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// Store keeps every run started by this server in memory
type Store struct {
	runs   map[string]*models.Run
	events map[string]*EventLog
	mu     sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		runs:   make(map[string]*models.Run),
		events: make(map[string]*EventLog),
	}
}

// Add registers a running run and returns the log its transitions go to
func (s *Store) Add(run models.Run) *EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := NewEventLog()
	s.runs[run.ID] = &run
	s.events[run.ID] = events
	return events
}

// Get returns a copy of the run
func (s *Store) Get(id string) (models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return models.Run{}, fmt.Errorf("run not found: %s", id)
	}
	return *run, nil
}

// Events returns the transition log of a run
func (s *Store) Events(id string) (*EventLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, exists := s.events[id]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return events, nil
}

// List returns runs, newest first, optionally filtered by provider and status
func (s *Store) List(provider string, status models.RunStatus) []models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if provider != "" && run.Provider != provider {
			continue
		}
		if status != "" && run.Status != status {
			continue
		}
		runs = append(runs, *run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

// Finish records the outcome of a run and closes its event log
func (s *Store) Finish(id string, result models.BatchResult, err error) {
	s.mu.Lock()
	run, exists := s.runs[id]
	events := s.events[id]
	if exists {
		now := time.Now()
		run.CompletedAt = &now
		run.Result = result
		run.Status = models.StatusCompleted
		if err != nil {
			run.Status = models.StatusError
			run.Error = err.Error()
		}
	}
	s.mu.Unlock()

	if events != nil {
		events.Close()
	}
}

// EventLog fans task transitions of one run out to websocket subscribers. Late
// subscribers first receive everything already recorded.
type EventLog struct {
	mu      sync.Mutex
	history []orchestrator.Transition
	subs    map[chan orchestrator.Transition]struct{}
	done    chan struct{}
	closed  bool
}

// NewEventLog creates an open log
func NewEventLog() *EventLog {
	return &EventLog{
		subs: make(map[chan orchestrator.Transition]struct{}),
		done: make(chan struct{}),
	}
}

// Observe implements orchestrator.Observer. A subscriber whose buffer is full misses
// the transition.
func (e *EventLog) Observe(t orchestrator.Transition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.history = append(e.history, t)
	for ch := range e.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

// Subscribe returns the transitions so far and a channel of later ones. The channel is
// closed when the run finishes or cancel is called.
func (e *EventLog) Subscribe() (past []orchestrator.Transition, updates <-chan orchestrator.Transition, cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	past = append([]orchestrator.Transition(nil), e.history...)
	ch := make(chan orchestrator.Transition, 64)
	if e.closed {
		close(ch)
		return past, ch, func() {}
	}

	e.subs[ch] = struct{}{}
	var once sync.Once
	cancel = func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
	return past, ch, cancel
}

// Close ends every subscription
func (e *EventLog) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
	close(e.done)
}

// Done is closed when the run has finished
func (e *EventLog) Done() <-chan struct{} {
	return e.done
}
