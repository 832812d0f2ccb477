package host

import (
	"strings"

	"github.com/spf13/cast"
)

// Value is a loosely typed option value. The zero Value is unset and converts to
// the zero value of every accessor.
type Value struct {
	raw any
	set bool
}

// NewValue wraps raw. A nil raw yields an unset Value.
func NewValue(raw any) Value {
	return Value{raw: raw, set: raw != nil}
}

// IsSet reports whether the option exists.
func (v Value) IsSet() bool { return v.set }

// Raw returns the underlying value.
func (v Value) Raw() any { return v.raw }

func (v Value) String() string {
	if !v.set {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v.raw))
}

// Bool accepts booleans, numbers and the usual textual spellings ("1", "yes", "on").
func (v Value) Bool() bool {
	if !v.set {
		return false
	}
	if s, ok := v.raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on":
			return true
		default:
			return false
		}
	}
	return cast.ToBool(v.raw)
}

// BoolOr returns def when the option is unset.
func (v Value) BoolOr(def bool) bool {
	if !v.set {
		return def
	}
	return v.Bool()
}

// StringOr returns def when the option is unset or blank.
func (v Value) StringOr(def string) string {
	if s := v.String(); s != "" {
		return s
	}
	return def
}

func (v Value) Int() int {
	if !v.set {
		return 0
	}
	return cast.ToInt(v.raw)
}

func (v Value) Strings() []string {
	if !v.set {
		return nil
	}
	return cast.ToStringSlice(v.raw)
}
