package config

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by a Source when a ref has no configuration.
var ErrNotFound = errors.New("config not found")

// Source resolves machine references to configurations. Implementations
// may block on I/O and must honor ctx cancellation.
type Source interface {
	GetConfig(ctx context.Context, ref string) (*MachineConfig, error)
}

// MapSource is an in-memory Source.
//
// Thread-safety: MapSource is safe for concurrent use.
type MapSource struct {
	mu      sync.RWMutex
	configs map[string]*MachineConfig
}

// NewMapSource creates a source holding configs keyed by ref.
func NewMapSource(configs map[string]*MachineConfig) *MapSource {
	s := &MapSource{configs: make(map[string]*MachineConfig, len(configs))}
	for ref, cfg := range configs {
		s.configs[ref] = cfg
	}
	return s
}

// GetConfig implements Source.
func (s *MapSource) GetConfig(ctx context.Context, ref string) (*MachineConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg, nil
}

// Set adds or replaces the configuration for ref.
func (s *MapSource) Set(ref string, cfg *MachineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[ref] = cfg
}

// Delete removes ref.
func (s *MapSource) Delete(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, ref)
}

// Refs returns all refs in sorted order.
func (s *MapSource) Refs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.configs))
	for ref := range s.configs {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
