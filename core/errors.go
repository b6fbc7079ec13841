package core

import (
	"fmt"
)

// ConfigError represents a configuration problem with an actionable fix.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingConfig     = "MISSING_CONFIG"
	ErrCodeInvalidServiceURL = "INVALID_SERVICE_URL"
	ErrCodeInvalidEngine     = "INVALID_ENGINE"
	ErrCodeInvalidThresholds = "INVALID_THRESHOLDS"
)

// ErrMissingConfig returns an error for a missing required value.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidServiceURL returns an error for a malformed service URL.
func ErrInvalidServiceURL(varName, url string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidServiceURL,
		Message: fmt.Sprintf("Invalid %s '%s'", varName, url),
		Action:  fmt.Sprintf("Set %s to an http(s) URL", varName),
	}
}

// ErrInvalidEngine returns an error for an unknown engine variant.
func ErrInvalidEngine(engine string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEngine,
		Message: fmt.Sprintf("Unknown engine variant '%s'", engine),
		Action:  fmt.Sprintf("Set RESTAGE_ENGINE to %q or %q", EngineMaskEdit, EngineFullImage),
	}
}

// ErrInvalidThresholds returns an error when the core cutoff is not stricter
// than the protect cutoff.
func ErrInvalidThresholds(core, protect int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidThresholds,
		Message: fmt.Sprintf("MASK_CORE_THRESHOLD (%d) must be greater than MASK_PROTECT_THRESHOLD (%d)", core, protect),
		Action:  "Raise the core threshold or lower the protect threshold",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}
