package observability

import (
	"encoding/json"
	"strings"
)

// sensitiveKeys names the JSON object keys RedactJSON scrubs before a
// payload reaches the logs. Provider credentials live in config, never in
// an llm.Request, but a compromised upstream or a malformed provider
// response could still echo one back — this is the last line of defense
// before model_router_fallback writes the request/response to disk.
var sensitiveKeys = []string{
	"api_key", "apikey", "apiKey", "x-api-key", "authorization", "auth",
	"token", "access_token", "refresh_token", "password", "secret", "bearer",
}

// RedactJSON walks a JSON payload and replaces the value of any object key
// that looks like a credential with "[REDACTED]". Used by the Model Router
// to sanitize a failed llm.Request before attaching it to a fallback
// warning log. Malformed input is returned unchanged rather than dropped,
// so a logging bug never hides the original failure.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return b
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, vv := range val {
			if isSensitiveKey(k) {
				val[k] = "[REDACTED]"
			} else {
				val[k] = redactValue(vv)
			}
		}
		return val
	case []any:
		for i := range val {
			val[i] = redactValue(val[i])
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(k string) bool {
	low := strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if low == s || strings.Contains(low, s) {
			return true
		}
	}
	return false
}
