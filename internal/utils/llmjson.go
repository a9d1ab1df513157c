package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeLLMJSON decodes a JSON object out of raw model output into out.
// Models routinely wrap their JSON in markdown fences or surround it with
// prose, so the payload is located between the first '{' and the last '}'
// after fence stripping. A non-nil error means the payload was malformed,
// which callers must treat differently from a well-formed empty object:
// malformed output must never be cached or acted on.
func DecodeLLMJSON(raw string, out any) error {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object found in model output")
	}
	cleaned = cleaned[start : end+1]

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("malformed model JSON: %w", err)
	}
	return nil
}
