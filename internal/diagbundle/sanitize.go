package diagbundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Mask replaces sensitive string values.
const Mask = "***REDACTED***"

// SensitiveFragments are matched case-sensitively against object keys.
var SensitiveFragments = []string{
	"secret", "Secret",
	"encryptKey", "EncryptKey",
	"webhook", "Webhook",
	"token", "Token",
}

func isSensitiveKey(key string) bool {
	for _, fragment := range SensitiveFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// Sanitize walks a decoded JSON value and masks non-empty strings stored
// under sensitive keys. Objects and arrays are walked at every depth,
// including those under sensitive keys. The input is not modified.
func Sanitize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			if s, ok := child.(string); ok {
				if s != "" && isSensitiveKey(key) {
					out[key] = Mask
				} else {
					out[key] = s
				}
				continue
			}
			out[key] = Sanitize(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Sanitize(child)
		}
		return out
	default:
		return v
	}
}

// SanitizeJSON decodes data, sanitizes it and re-encodes it indented.
// Numbers keep their original text.
func SanitizeJSON(data []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	out, err := json.MarshalIndent(Sanitize(doc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sanitized config: %w", err)
	}
	return append(out, '\n'), nil
}
