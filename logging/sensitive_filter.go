package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive data in log output.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns match credentials that may show up inside values, such as
// an error message echoing a request header.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys: sk-... (legacy) or sk-proj-... (project-scoped)
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(api_?key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveKeys are field name fragments whose values are never logged.
var sensitiveKeys = []string{
	"OPENAI_API_KEY",
	"OPENAI_KEY",
	"API_KEY",
	"APIKEY",
	"AUTHORIZATION",
	"TOKEN",
	"SECRET",
	"PASSWORD",
}

// RedactSensitiveData replaces every credential-looking substring of value.
//
//	RedactSensitiveData("auth failed for sk-abc123def456ghi789jkl0")
//	// "auth failed for [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether a field name indicates a secret.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)
	for _, key := range sensitiveKeys {
		if strings.Contains(upperName, key) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value contains a credential pattern.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
