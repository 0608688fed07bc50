package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// canonical form to change without colliding with old hashes.
const (
	DomainMachine = "animfsm/machine/v1"
	DomainClip    = "animfsm/clip/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of a machine configuration. Two configs
// with equal hashes reconcile to the same graph.
func Hash(cfg *MachineConfig) (string, error) {
	canonical, err := MarshalCanonical(machineValue(cfg))
	if err != nil {
		return "", fmt.Errorf("hash machine %q: %w", cfg.Name, err)
	}
	return hashWithDomain(DomainMachine, canonical), nil
}

// HashClip returns the content hash of a clip configuration.
func HashClip(cfg *ClipConfig) (string, error) {
	channels := make(map[string]any, len(cfg.Channels))
	for joint, frames := range cfg.Channels {
		arr := make([]any, len(frames))
		for i, k := range frames {
			arr[i] = map[string]any{
				"time":        k.Time,
				"translation": k.Translation,
				"rotation":    k.Rotation,
				"scale":       k.Scale,
			}
		}
		channels[joint] = arr
	}
	canonical, err := MarshalCanonical(map[string]any{
		"name":     cfg.Name,
		"duration": cfg.Duration,
		"channels": channels,
	})
	if err != nil {
		return "", fmt.Errorf("hash clip %q: %w", cfg.Name, err)
	}
	return hashWithDomain(DomainClip, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(cfg *MachineConfig) string {
	h, err := Hash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}

// machineValue converts cfg to the generic tree MarshalCanonical accepts,
// using wire field names. Empty optional lists are written as [] so that
// omitted and empty hash the same.
func machineValue(cfg *MachineConfig) map[string]any {
	states := make([]any, len(cfg.States))
	for i, s := range cfg.States {
		actions := make([]any, len(s.Actions))
		for j, a := range s.Actions {
			opts := a.Options
			if opts == nil {
				opts = map[string]any{}
			}
			actions[j] = map[string]any{
				"id":      a.ID,
				"type":    a.Type,
				"options": opts,
			}
		}
		transitions := make([]any, len(s.Transitions))
		for j, t := range s.Transitions {
			transitions[j] = map[string]any{
				"id":          t.ID,
				"targetState": t.TargetState,
			}
		}
		refs := s.MachineRefs
		if refs == nil {
			refs = []string{}
		}
		states[i] = map[string]any{
			"id":          s.ID,
			"name":        s.Name,
			"actions":     actions,
			"transitions": transitions,
			"machineRefs": refs,
		}
	}
	return map[string]any{
		"name":         cfg.Name,
		"initialState": cfg.InitialState,
		"states":       states,
	}
}
