package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs agent runs with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// LogRun records one conversation run.
func (a *AuditLogger) LogRun(
	prompt, apiKey string,
	toolsBound, toolCalls, failedCalls int,
	executionTimeMs int64,
	success bool,
	errMsg string,
) {
	if a == nil || !a.enabled {
		return
	}

	evt := log.Info().
		Str("event", "run_audit").
		Str("prompt_hash", hashStr(prompt)[:16]).
		Str("api_key_hash", hashStr(apiKey)[:16]).
		Int("tools_bound", toolsBound).
		Int("tool_calls", toolCalls).
		Int("failed_calls", failedCalls).
		Int64("execution_time_ms", executionTimeMs).
		Bool("success", success)

	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

func hashStr(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
