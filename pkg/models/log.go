package models

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the severity of a browser console entry
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelSevere
)

// LevelLog is what console.log reports; it ranks with INFO
const LevelLog = LevelInfo

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSevere:
		return "SEVERE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// MarshalText encodes the level by name
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts any spelling ParseLogLevel does
func (l *LogLevel) UnmarshalText(text []byte) error {
	level, err := ParseLogLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// ParseLogLevel maps a level name (case-insensitive) to a LogLevel
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "FINE", "FINER", "FINEST", "VERBOSE", "TRACE":
		return LevelDebug, nil
	case "LOG", "INFO", "":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "SEVERE":
		return LevelSevere, nil
	}
	return LevelDebug, fmt.Errorf("unknown log level %q", s)
}

// RawLog is a console entry exactly as a session driver reported it
type RawLog struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// BrowserLog is a normalized console entry
type BrowserLog struct {
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Addon     bool      `json:"addon"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
}
