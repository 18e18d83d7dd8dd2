// Package validate contains the per-tool argument validators.
//
// Each validator is a pure function consuming the untyped argument bag of
// a tools/call request and producing a normalized, strongly-typed
// parameter struct, or an *InvalidParamsError with a field-specific
// message. Validators never touch storage or the clock; range caps are
// measured against the requested window itself.
package validate

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// InvalidParamsError reports a caller-supplied argument problem. The
// dispatcher maps it to JSON-RPC code -32602.
type InvalidParamsError struct {
	Message string
}

func (e *InvalidParamsError) Error() string {
	return e.Message
}

func errf(format string, args ...any) *InvalidParamsError {
	return &InvalidParamsError{Message: fmt.Sprintf(format, args...)}
}

// Default and ceiling values applied consistently across validators.
const (
	DefaultLimit    = 100
	MaxLimit        = 500
	DefaultTimezone = "UTC"

	// MaxRangeDays caps availability and proposal windows.
	MaxRangeDays = 7
)

// requireString extracts a required string field. Missing, wrong-typed,
// and whitespace-only values are rejected identically.
func requireString(args map[string]any, field string) (string, error) {
	v, present := args[field]
	if !present {
		return "", errf("'%s' is required", field)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", errf("'%s' is required and must be a non-empty string", field)
	}
	return s, nil
}

// optionalString extracts an optional string field. A present value must
// be a string; empty strings are allowed and treated as absent.
func optionalString(args map[string]any, field string) (string, bool, error) {
	v, present := args[field]
	if !present {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, errf("'%s' must be a string", field)
	}
	if strings.TrimSpace(s) == "" {
		return "", false, nil
	}
	return s, true, nil
}

// requireTime extracts a required ISO-8601 datetime field.
func requireTime(args map[string]any, field string) (time.Time, error) {
	s, err := requireString(args, field)
	if err != nil {
		return time.Time{}, err
	}
	t, perr := time.Parse(time.RFC3339, s)
	if perr != nil {
		return time.Time{}, errf("'%s' must be a valid ISO-8601 datetime", field)
	}
	return t, nil
}

// optionalTime extracts an optional ISO-8601 datetime field.
func optionalTime(args map[string]any, field string) (time.Time, bool, error) {
	s, present, err := optionalString(args, field)
	if err != nil || !present {
		return time.Time{}, false, err
	}
	t, perr := time.Parse(time.RFC3339, s)
	if perr != nil {
		return time.Time{}, false, errf("'%s' must be a valid ISO-8601 datetime", field)
	}
	return t, true, nil
}

// requireRange extracts a required start/end pair and enforces strict
// start < end (equal is rejected).
func requireRange(args map[string]any, startField, endField string) (time.Time, time.Time, error) {
	start, err := requireTime(args, startField)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := requireTime(args, endField)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errf("'%s' must be before '%s'", startField, endField)
	}
	return start, end, nil
}

// optionalNumber extracts an optional numeric field. JSON numbers decode
// as float64; integral Go ints from tests are accepted too.
func optionalNumber(args map[string]any, field string) (float64, bool, error) {
	v, present := args[field]
	if !present {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	default:
		return 0, false, errf("'%s' must be a number", field)
	}
}

// requireInt extracts a required integral numeric field within [min, max].
func requireInt(args map[string]any, field string, min, max int) (int, error) {
	n, present, err := optionalNumber(args, field)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, errf("'%s' is required", field)
	}
	if n != math.Trunc(n) {
		return 0, errf("'%s' must be an integer", field)
	}
	i := int(n)
	if i < min || i > max {
		return 0, errf("'%s' must be between %d and %d", field, min, max)
	}
	return i, nil
}

// optionalInt extracts an optional integral numeric field, clamped to
// [min, max], falling back to def when absent.
func optionalInt(args map[string]any, field string, def, min, max int) (int, error) {
	n, present, err := optionalNumber(args, field)
	if err != nil {
		return 0, err
	}
	if !present {
		return def, nil
	}
	if n != math.Trunc(n) {
		return 0, errf("'%s' must be an integer", field)
	}
	i := int(n)
	if i < min {
		i = min
	}
	if i > max {
		i = max
	}
	return i, nil
}

// enumField extracts an optional closed-set string field with a default.
// Wrong-typed values and values outside the set are rejected with a
// message listing the valid set.
func enumField(args map[string]any, field, def string, allowed ...string) (string, error) {
	v, present := args[field]
	if !present {
		return def, nil
	}
	s, ok := v.(string)
	if ok {
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
	}
	return "", errf("'%s' must be one of: %s", field, strings.Join(allowed, ", "))
}

// requireEnum is enumField without a default: the field must be present.
func requireEnum(args map[string]any, field string, allowed ...string) (string, error) {
	if _, present := args[field]; !present {
		return "", errf("'%s' is required", field)
	}
	return enumField(args, field, "", allowed...)
}

// accountsFilter extracts the optional accounts array. When present it
// must be an array of non-empty strings; an empty array is normalized to
// "no filter" (nil), never "match nothing".
func accountsFilter(args map[string]any) ([]string, error) {
	v, present := args["accounts"]
	if !present {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			list = make([]any, len(ss))
			for i, s := range ss {
				list[i] = s
			}
		} else {
			return nil, errf("'accounts' must be an array of account ids")
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	accounts := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, errf("'accounts' entries must be non-empty strings")
		}
		accounts = append(accounts, s)
	}
	return accounts, nil
}
