package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown fences and any chatter before the first JSON
// value.
func extractJSON(raw string) []byte {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return []byte(s)
}

// decodeJSON decodes the first JSON value in raw into v. Trailing text after
// the value is ignored.
func decodeJSON(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader(extractJSON(raw)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// decodeList accepts either a bare JSON array or an object holding the array
// under key.
func decodeList[T any](raw, key string) ([]T, error) {
	var msg json.RawMessage
	if err := decodeJSON(raw, &msg); err != nil {
		return nil, err
	}
	msg = bytes.TrimSpace(msg)
	if len(msg) > 0 && msg[0] == '[' {
		var out []T
		if err := json.Unmarshal(msg, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	inner, ok := obj[key]
	if !ok || string(inner) == "null" {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedPayload, key)
	}
	var out []T
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, key, err)
	}
	return out, nil
}

// cleanStrings trims entries and drops empty ones.
func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
