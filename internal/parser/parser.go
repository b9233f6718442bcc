// Package parser extracts key/value data from message bodies.
//
// A body is either a JSON object or a plain-text record of "Key: value"
// lines. Parsing never fails; unrecognised input yields an empty Payload.
package parser

import (
	"encoding/json"
	"strings"
)

const separator = ": "

// Payload maps keys to decoded values. Values from a JSON body keep their
// JSON shape (json.Number, string, bool, nil, []any, map[string]any);
// values from a plain-text body are strings.
type Payload map[string]any

// Parse interprets text as a JSON object, falling back to "Key: value"
// lines when it is not one.
func Parse(text string) Payload {
	text = strings.TrimSpace(text)

	if p, ok := decodeObject(text); ok {
		return p
	}
	return parseLines(text)
}

// decodeObject accepts only a single top-level JSON object. Arrays, scalars
// and null are treated like malformed input.
func decodeObject(text string) (Payload, bool) {
	if !json.Valid([]byte(text)) {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Payload(obj), true
}

func parseLines(text string) Payload {
	p := make(Payload)
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		key, value, found := strings.Cut(line, separator)
		if !found {
			continue
		}
		p[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return p
}

// isLineBreak matches the characters treated as line boundaries in
// plain-text bodies: LF, CR, VT, FF, the ASCII group separators, NEL and
// the Unicode line/paragraph separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// FirstValue returns the first element of the sequence stored under key.
// A non-empty JSON array yields its first element. A non-empty string,
// as produced by plain-text bodies, counts as a one-element sequence and
// is returned whole, never split into characters.
// Any other value, or a missing key, reports false.
func (p Payload) FirstValue(key string) (any, bool) {
	switch v := p[key].(type) {
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		return v[0], true
	case string:
		if v == "" {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}
