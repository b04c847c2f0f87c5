package checkout

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

const (
	// DefaultFailureDescription is used when the provider gave no usable description.
	DefaultFailureDescription = "Payment failed"
	// UnknownCode stands in for a missing error code.
	UnknownCode = "UNKNOWN"
)

// NormalizeCode renders a provider error code (integer, float or string) as a string.
func NormalizeCode(code any) string {
	if code == nil {
		return UnknownCode
	}
	s, err := cast.ToStringE(code)
	if err != nil || strings.TrimSpace(s) == "" {
		return UnknownCode
	}
	return s
}

// ParseProviderError builds a PaymentError from the loosely structured payload a
// provider attaches to an error callback. The payload may be JSON text, raw
// bytes or an already decoded object, and may be malformed. Parsing never fails:
// whatever cannot be understood degrades to the raw text or DefaultFailureDescription.
func ParseProviderError(code any, raw any) PaymentError {
	perr := PaymentError{Code: NormalizeCode(code)}

	text, obj := decodeRaw(raw)
	if obj == nil {
		perr.Description = firstNonEmpty(strings.TrimSpace(text), DefaultFailureDescription)
		return perr
	}

	details := obj
	switch nested := obj["error"].(type) {
	case map[string]any:
		details = nested
	case string:
		if m := decodeObject(nested); m != nil {
			details = m
		} else if strings.TrimSpace(nested) != "" {
			perr.Description = nested
		}
	}

	if perr.Code == UnknownCode {
		if c := field(details, "code"); c != "" {
			perr.Code = c
		}
	}
	if perr.Description == "" {
		perr.Description = firstNonEmpty(field(details, "description"), DefaultFailureDescription)
	}
	perr.Source = field(details, "source")
	perr.Step = field(details, "step")
	perr.Reason = field(details, "reason")
	return perr
}

func decodeRaw(raw any) (string, map[string]any) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case map[string]any:
		return "", v
	case string:
		return v, decodeObject(v)
	case []byte:
		return string(v), decodeObject(string(v))
	case json.RawMessage:
		// A JSON string literal carries the payload as text.
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, decodeObject(s)
		}
		return string(v), decodeObject(string(v))
	default:
		return cast.ToString(v), nil
	}
}

func decodeObject(s string) map[string]any {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func field(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
