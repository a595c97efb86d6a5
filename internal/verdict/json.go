// Package verdict decodes free-text model replies into typed decisions.
//
// Every decision point of the agent has exactly one decoder here. Callers
// never inspect model text themselves.
package verdict

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrNoObject is returned when a reply carries no JSON object at all.
	ErrNoObject = errors.New("no json object in reply")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// stripFences removes a surrounding markdown code fence.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// FirstObject returns the first balanced JSON object found in raw. When the
// object is never closed, the tail starting at the first brace is returned so
// that repair can still be attempted.
func FirstObject(raw string) (string, error) {
	raw = stripFences(raw)

	start := strings.Index(raw, "{")
	if start == -1 {
		return "", ErrNoObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return raw[start:], nil
}

// DecodeObject extracts the first JSON object from raw and decodes it into v.
// Malformed objects are passed through jsonrepair before giving up.
func DecodeObject(raw string, v any) error {
	obj, err := FirstObject(raw)
	if err != nil {
		return err
	}

	originalErr := json.UnmarshalFromString(obj, v)
	if originalErr == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(obj)
	if err != nil {
		return fmt.Errorf("decode reply object: %w", originalErr)
	}

	if err := json.UnmarshalFromString(repaired, v); err != nil {
		return fmt.Errorf("decode repaired reply object: %w", err)
	}

	return nil
}
