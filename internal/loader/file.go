package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/animfsm/internal/compiler"
	"github.com/roach88/animfsm/internal/config"
)

// Extensions lists recognized config file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".json", ".cue"}

// IsConfigFile reports whether path has a recognized config extension.
func IsConfigFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Ref returns the machine ref for a config file path: its base name
// without extension.
func Ref(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadMachineFile reads one machine config. An empty name defaults to the
// file's ref.
func LoadMachineFile(path string) (*config.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg *config.MachineConfig
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		v, err := compileCUE(path, data, "machine")
		if err != nil {
			return nil, err
		}
		if cfg, err = compiler.CompileMachine(v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if !v.LookupPath(cue.ParsePath("name")).Exists() {
			cfg.Name = Ref(path)
		}
	} else {
		cfg = &config.MachineConfig{}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if cfg.Name == "" {
		cfg.Name = Ref(path)
	}
	return cfg, nil
}

// LoadClipFile reads one clip config. An empty name defaults to the file's
// base name.
func LoadClipFile(path string) (*config.ClipConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var clip *config.ClipConfig
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		v, err := compileCUE(path, data, "clip")
		if err != nil {
			return nil, err
		}
		if clip, err = compiler.CompileClip(v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if !v.LookupPath(cue.ParsePath("name")).Exists() {
			clip.Name = Ref(path)
		}
	} else {
		clip = &config.ClipConfig{}
		if err := decodeYAML(data, clip); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if clip.Name == "" {
		clip.Name = Ref(path)
	}
	return clip, nil
}

func decodeYAML(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty document")
		}
		return err
	}
	return nil
}

// compileCUE compiles a single CUE file and returns the value under field,
// or the root when field is absent.
func compileCUE(path string, data []byte, field string) (cue.Value, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	if sub := v.LookupPath(cue.ParsePath(field)); sub.Exists() {
		return sub, nil
	}
	return v, nil
}
