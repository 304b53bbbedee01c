package matrix

import "fmt"

// ConfigurationError reports a browser entry that cannot be resolved. It is always fatal
// for the run that produced it.
type ConfigurationError struct {
	DisplayName string
	Field       string
	Message     string
}

func (e *ConfigurationError) Error() string {
	if e.DisplayName == "" {
		return fmt.Sprintf("browser configuration: %s", e.Message)
	}
	return fmt.Sprintf("browser %q: %s", e.DisplayName, e.Message)
}

func configErr(displayName, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		DisplayName: displayName,
		Field:       field,
		Message:     fmt.Sprintf(format, args...),
	}
}
