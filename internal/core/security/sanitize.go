// Package security holds the request-time checks shared by the HTTP
// pipeline: payload sanitising, injection predicates, authenticated context
// validation, role permissions, risk assessment and outbound leak scanning.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Limits applied by Sanitize.
const (
	MaxStringLength = 10000
	MaxArrayLength  = 100
	MaxObjectKeys   = 50
	MaxKeyLength    = 100
	MaxDepth        = 32
)

var (
	controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	unsafeKey    = regexp.MustCompile(`[^a-zA-Z0-9_$]`)
)

// SanitizeString strips control characters, trims and truncates s.
func SanitizeString(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) > MaxStringLength {
		s = truncateRunes(s, MaxStringLength)
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// SanitizeKey reduces an object key to [a-zA-Z0-9_$] and at most MaxKeyLength.
func SanitizeKey(k string) string {
	k = unsafeKey.ReplaceAllString(k, "")
	if len(k) > MaxKeyLength {
		k = k[:MaxKeyLength]
	}
	return k
}

// Sanitize walks a decoded JSON value and returns a bounded copy. Arrays keep
// their first MaxArrayLength elements, objects their first MaxObjectKeys keys
// in iteration order, and anything nested deeper than MaxDepth is dropped.
func Sanitize(v any) any {
	return sanitize(v, 0)
}

func sanitize(v any, depth int) any {
	if depth > MaxDepth {
		return nil
	}
	switch t := v.(type) {
	case string:
		return SanitizeString(t)
	case []any:
		if len(t) > MaxArrayLength {
			t = t[:MaxArrayLength]
		}
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, sanitize(e, depth+1))
		}
		return out
	case map[string]any:
		out := make(map[string]any, min(len(t), MaxObjectKeys))
		for k, e := range t {
			if len(out) >= MaxObjectKeys {
				break
			}
			key := SanitizeKey(k)
			if key == "" {
				continue
			}
			out[key] = sanitize(e, depth+1)
		}
		return out
	default:
		return v
	}
}

// SanitizeValues cleans url query values in place semantics: keys are
// reduced, each value sanitised, and the key count capped.
func SanitizeValues(values map[string][]string) map[string][]string {
	out := make(map[string][]string, min(len(values), MaxObjectKeys))
	for k, vs := range values {
		if len(out) >= MaxObjectKeys {
			break
		}
		key := SanitizeKey(k)
		if key == "" {
			continue
		}
		if len(vs) > MaxArrayLength {
			vs = vs[:MaxArrayLength]
		}
		clean := make([]string, 0, len(vs))
		for _, v := range vs {
			clean = append(clean, SanitizeString(v))
		}
		out[key] = clean
	}
	return out
}
