package realtime

import (
	"encoding/json"
	"strings"
	"unicode"
)

// rawEventKey wraps payloads no decoder understood so an unparseable message
// is still delivered instead of crashing a listener.
const rawEventKey = "redis_event"

// DecodePayload turns a raw broker payload into a routable map. Payloads may
// arrive as a JSON object, a JSON-encoded string carrying JSON, or a legacy
// Python-literal dict string (single quotes, True/False/None). Decoding is
// attempted in that priority order; anything else is wrapped under the
// redis_event key.
func DecodePayload(raw []byte) map[string]any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not JSON at all: treat the raw bytes as a legacy string payload.
		return decodeString(string(raw))
	}

	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		return decodeString(t)
	default:
		return map[string]any{rawEventKey: t}
	}
}

func decodeString(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}

	if converted, ok := pythonLiteralToJSON(s); ok {
		if err := json.Unmarshal([]byte(converted), &obj); err == nil {
			return obj
		}
	}

	return map[string]any{rawEventKey: s}
}

// pythonLiteralToJSON rewrites a stringified Python dict literal into JSON:
// single-quoted strings become double-quoted and the bare constants True,
// False and None become their JSON equivalents. Only literals that look like
// dicts are attempted.
func pythonLiteralToJSON(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return "", false
	}

	var b strings.Builder
	runes := []rune(trimmed)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\'':
			// Convert the whole single-quoted string.
			b.WriteRune('"')
			i++
			for i < len(runes) && runes[i] != '\'' {
				switch runes[i] {
				case '"':
					b.WriteString(`\"`)
				case '\\':
					if i+1 < len(runes) {
						b.WriteRune(runes[i])
						i++
						b.WriteRune(runes[i])
					}
				default:
					b.WriteRune(runes[i])
				}
				i++
			}
			if i >= len(runes) {
				return "", false // unterminated string
			}
			b.WriteRune('"')
		case 'T', 'F', 'N':
			rest := string(runes[i:])
			switch {
			case strings.HasPrefix(rest, "True") && !isIdentRune(runes, i+4):
				b.WriteString("true")
				i += 3
			case strings.HasPrefix(rest, "False") && !isIdentRune(runes, i+5):
				b.WriteString("false")
				i += 4
			case strings.HasPrefix(rest, "None") && !isIdentRune(runes, i+4):
				b.WriteString("null")
				i += 3
			default:
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}

	return b.String(), true
}

func isIdentRune(runes []rune, i int) bool {
	if i >= len(runes) {
		return false
	}
	return unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_'
}
