package security

import "strings"

var sensitiveSubstrings = []string{
	"token",
	"password",
	"passwd",
	"pwd",
	"authorization",
	"apikey",
	"api_key",
	"access_key",
	"private_key",
	"secret",
	"credential",
	"cookie",
	"session",
	"jwt",
	"bearer",
	"passphrase",
}

// RedactArguments returns a copy of tool arguments with sensitive values
// replaced, for logging. Nested objects are redacted recursively.
func RedactArguments(values map[string]interface{}) map[string]interface{} {
	if values == nil {
		return nil
	}
	redacted := make(map[string]interface{}, len(values))
	for key, value := range values {
		if isSensitiveKey(key) {
			redacted[key] = "***"
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			redacted[key] = RedactArguments(nested)
			continue
		}
		redacted[key] = value
	}
	return redacted
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, part := range sensitiveSubstrings {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
