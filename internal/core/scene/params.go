package scene

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Params is the parameter document of one component or system.
type Params map[string]any

func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string under key, or def when missing or not a string.
func (p Params) String(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

func (p Params) Bool(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// Float accepts any numeric encoding of the value.
func (p Params) Float(key string, def float64) float64 {
	if f, ok := toFloat(p[key]); ok {
		return f
	}
	return def
}

// Int accepts integral numbers; fractional values are rejected in favour of def.
func (p Params) Int(key string, def int) int {
	f, ok := toFloat(p[key])
	if !ok || f != math.Trunc(f) {
		return def
	}
	return int(f)
}

// RequireInt is Int without a default.
func (p Params) RequireInt(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingParam, key)
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q is %T, want integer", ErrBadParam, key, v)
	}
	return int(f), nil
}

// RequireString is String without a default.
func (p Params) RequireString(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrBadParam, key, v)
	}
	return s, nil
}

// Map returns a nested mapping.
func (p Params) Map(key string) Params {
	switch m := p[key].(type) {
	case map[string]any:
		return m
	case Params:
		return m
	}
	return Params{}
}

// Floats returns a numeric list. Any non-numeric entry fails the whole list.
func (p Params) Floats(key string) ([]float64, error) {
	raw, ok := p[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list", ErrBadParam, key)
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q[%d] is %T", ErrBadParam, key, i, v)
		}
		out[i] = f
	}
	return out, nil
}

// Decode copies the parameters into a struct using its yaml tags.
func (p Params) Decode(into any) error {
	raw, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	if err := yaml.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
