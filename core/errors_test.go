package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		contains []string
	}{
		{
			name: "error with action",
			err: &ConfigError{
				Code:    "TEST_CODE",
				Message: "Test message",
				Action:  "Take this action",
			},
			contains: []string{"Test message", "Take this action"},
		},
		{
			name: "error without action",
			err: &ConfigError{
				Code:    "TEST_CODE",
				Message: "Test message only",
			},
			contains: []string{"Test message only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(errStr, s) {
					t.Errorf("ConfigError.Error() = %q, expected to contain %q", errStr, s)
				}
			}
		})
	}
}

func TestErrMissingAuth(t *testing.T) {
	err := ErrMissingAuth(APIKeyEnv)
	if err.Code != ErrCodeMissingAuth {
		t.Errorf("Expected code %s, got %s", ErrCodeMissingAuth, err.Code)
	}
	if !strings.Contains(err.Message, "OPENAI_API_KEY") {
		t.Errorf("Expected message to name the variable, got %s", err.Message)
	}
	if !strings.Contains(err.Action, ".env") {
		t.Errorf("Expected action to mention .env, got %s", err.Action)
	}
}

func TestErrInvalidValue(t *testing.T) {
	err := ErrInvalidValue("size", "big", "expected WIDTHxHEIGHT")
	if err.Code != ErrCodeInvalidValue {
		t.Errorf("Expected code %s, got %s", ErrCodeInvalidValue, err.Code)
	}
	if !strings.Contains(err.Message, `"big"`) || !strings.Contains(err.Message, "WIDTHxHEIGHT") {
		t.Errorf("Expected message to contain value and reason, got %s", err.Message)
	}
}

func TestErrConfigFile(t *testing.T) {
	err := ErrConfigFile("imagine.yaml", errors.New("boom"))
	if err.Code != ErrCodeConfigFile {
		t.Errorf("Expected code %s, got %s", ErrCodeConfigFile, err.Code)
	}
	if !strings.Contains(err.Message, "imagine.yaml") || !strings.Contains(err.Message, "boom") {
		t.Errorf("Expected message to contain path and cause, got %s", err.Message)
	}
}

func TestErrMissingConfig(t *testing.T) {
	err := ErrMissingConfig("IMAGINE_MODEL")
	if err.Code != ErrCodeMissingConfig {
		t.Errorf("Expected code %s, got %s", ErrCodeMissingConfig, err.Code)
	}
	if !strings.Contains(err.Action, "IMAGINE_MODEL") {
		t.Errorf("Expected action to name the variable, got %s", err.Action)
	}
}

func TestIsConfigError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode string
	}{
		{"config error", ErrMissingAuth(APIKeyEnv), true, ErrCodeMissingAuth},
		{"wrapped config error", fmt.Errorf("startup: %w", ErrMissingConfig("X")), true, ErrCodeMissingConfig},
		{"regular error", errors.New("regular"), false, ""},
		{"nil", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configErr, ok := IsConfigError(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("IsConfigError() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && configErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", configErr.Code, tt.wantCode)
			}
			if got := GetErrorCode(tt.err); got != tt.wantCode {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}
