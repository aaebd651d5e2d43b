package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
// Any ConfigError is fatal: it is reported before a single prompt is scheduled.
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
	ErrCodeMissingAuth   = "MISSING_AUTH"
	ErrCodeInvalidValue  = "INVALID_VALUE"
	ErrCodeConfigFile    = "CONFIG_FILE"
	ErrCodeEnvFile       = "ENV_FILE"
	ErrCodeMissingConfig = "MISSING_CONFIG"
)

// ErrMissingAuth returns an error for a missing API credential.
func ErrMissingAuth(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing API credential: %s is not set", varName),
		Action:  fmt.Sprintf("Export %s or add it to a .env file in the working directory", varName),
	}
}

// ErrInvalidValue returns an error for a configuration value that failed validation.
func ErrInvalidValue(name, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s %q: %s", name, value, reason),
		Action:  fmt.Sprintf("Fix %s in the environment, the config file or the command line", name),
	}
}

// ErrConfigFile returns an error for a YAML config file that could not be read or parsed.
func ErrConfigFile(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFile,
		Message: fmt.Sprintf("Cannot load config file %s: %v", path, cause),
		Action:  "Check the path passed with --config or IMAGINE_CONFIG",
	}
}

// ErrEnvFile returns an error for a .env file that exists but could not be parsed.
func ErrEnvFile(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFile,
		Message: fmt.Sprintf("Cannot parse %s: %v", path, cause),
		Action:  "Use KEY=value lines in the .env file",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or the config file", varName),
	}
}

// IsConfigError checks if an error is (or wraps) a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
