// Package logging keeps credential values out of log output.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Redacted replaces values that must never be shown, even partially.
const Redacted = "[REDACTED]"

// visibleSuffix is how many trailing characters of a token stay visible.
const visibleSuffix = 4

// MaskToken hides all but the last four characters of a bearer token, the
// same shape operators see in the admin UI: "************ab3f".
func MaskToken(token string) string {
	if len(token) <= visibleSuffix {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 12) + token[len(token)-visibleSuffix:]
}

// MaskHeader redacts sensitive header values based on header name.
//
// Rules:
//   - password/secret headers: fully redacted
//   - Authorization and API key headers: "Bearer ****ab3f" / "****ab3f"
//   - anything else: unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "private-key") {
		return Redacted
	}

	switch lowerName {
	case "authorization":
		scheme, cred, ok := strings.Cut(value, " ")
		if ok {
			return scheme + " " + lastFour(cred)
		}
		return lastFour(value)
	case "x-api-key", "x-archivebox-api-key", "api-key":
		return lastFour(value)
	}
	return value
}

func lastFour(value string) string {
	if len(value) < visibleSuffix {
		return "****"
	}
	return "****" + value[len(value)-visibleSuffix:]
}

// MaskJSONBody redacts every primitive JSON field not named in allowlist.
// Nested objects and arrays are walked so that allowlisted fields deep in the
// document survive. A nil allowlist returns the body unchanged; bodies that do
// not parse are returned as they are.
func MaskJSONBody(body []byte, allowlist []string) []byte {
	if allowlist == nil || len(body) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	allowed := make(map[string]bool, len(allowlist))
	for _, field := range allowlist {
		allowed[field] = true
	}

	result, err := json.Marshal(maskJSONValue(data, allowed))
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value any, allowed map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			switch val.(type) {
			case map[string]any, []any:
				result[key] = maskJSONValue(val, allowed)
			default:
				if allowed[key] {
					result[key] = val
				} else {
					result[key] = Redacted
				}
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, allowed)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData formats binary data for logging as a size marker.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
