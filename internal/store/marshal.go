package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/reconcile"
)

// marshalJSON encodes v as compact JSON TEXT with HTML escaping disabled,
// so option strings like "<" round-trip byte-for-byte.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalConfig(cfg *config.MachineConfig) (string, error) {
	body, err := marshalJSON(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return body, nil
}

// unmarshalConfig parses a stored config body. Numeric options come back as
// float64; config.Hash and the option helpers treat integral floats and ints
// alike.
func unmarshalConfig(data string) (*config.MachineConfig, error) {
	var cfg config.MachineConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func marshalClip(cfg *config.ClipConfig) (string, error) {
	body, err := marshalJSON(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal clip: %w", err)
	}
	return body, nil
}

func unmarshalClip(data string) (*config.ClipConfig, error) {
	var cfg config.ClipConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal clip: %w", err)
	}
	return &cfg, nil
}

func marshalReport(rep reconcile.Report) (string, error) {
	body, err := marshalJSON(rep)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return body, nil
}

func unmarshalReport(data string) (reconcile.Report, error) {
	var rep reconcile.Report
	if data == "" || data == "{}" {
		return rep, nil
	}
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return rep, fmt.Errorf("unmarshal report: %w", err)
	}
	return rep, nil
}
