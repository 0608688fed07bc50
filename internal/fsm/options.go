package fsm

import (
	"fmt"
	"strconv"
)

// Options helpers accept the scalar shapes produced by the YAML, JSON and
// CUE decoders (int, int64, float64, numeric strings).

// OptString returns opts[key] as a string, or def when absent.
func OptString(opts map[string]any, key, def string) (string, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("option %q: expected string, got %T", key, v)
	}
}

// OptFloat returns opts[key] as a float64, or def when absent.
func OptFloat(opts map[string]any, key string, def float64) (float64, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("option %q: expected number, got %T", key, v)
	}
}

// OptInt returns opts[key] as an int, or def when absent. Fractional values
// are rejected.
func OptInt(opts map[string]any, key string, def int) (int, error) {
	f, err := OptFloat(opts, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("option %q: expected integer, got %v", key, f)
	}
	return int(f), nil
}

func invalidOptions(id string, err error) error {
	return NewInvalidOptionsError(id, err)
}

// NewInvalidOptionsError wraps an action's configuration failure.
func NewInvalidOptionsError(id string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidOptions,
		Message: fmt.Sprintf("action %q rejected options", id),
		Err:     err,
	}
}
