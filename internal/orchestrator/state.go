package orchestrator

import (
	"fmt"
	"time"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// State is a task's position in the session lifecycle
type State int

const (
	StateNotStarted State = iota
	StateEntering
	StateConnected
	StateOpening
	StateExecuting
	StateSleeping
	StateGathering
	StateQuitting
	StateSucceeded
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateEntering:
		return "entering"
	case StateConnected:
		return "connected"
	case StateOpening:
		return "opening"
	case StateExecuting:
		return "executing"
	case StateSleeping:
		return "sleeping"
	case StateGathering:
		return "gathering"
	case StateQuitting:
		return "quitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition is one state change of one task
type Transition struct {
	TaskID      string                   `json:"taskId"`
	DisplayName string                   `json:"displayName"`
	Browser     models.BrowserDefinition `json:"browser"`
	From        State                    `json:"from"`
	To          State                    `json:"to"`
	Elapsed     time.Duration            `json:"elapsed"` // time spent in From
	Error       string                   `json:"error,omitempty"`
	At          time.Time                `json:"at"`
}

// Observer receives every transition of every task. Observe is called from task
// goroutines and must be safe for concurrent use.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Transition)

// Observe calls f
func (f ObserverFunc) Observe(t Transition) {
	f(t)
}
