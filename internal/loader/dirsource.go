package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/config"
)

// ClipsDir is the subdirectory holding clip configs.
const ClipsDir = "clips"

// DirSource serves machine configs from files in a directory.
//
// Files are read on every GetConfig so edits are picked up without a
// restart; pair it with a Watcher to know when to resync.
//
// Thread-safety: DirSource is safe for concurrent use.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over dir, which must exist.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	return &DirSource{dir: dir}, nil
}

// Dir returns the source directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// GetConfig implements config.Source.
func (s *DirSource) GetConfig(ctx context.Context, ref string) (*config.MachineConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	return LoadMachineFile(path)
}

// Path returns the file backing ref, trying Extensions in order.
func (s *DirSource) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) {
		return "", fmt.Errorf("invalid ref %q: %w", ref, config.ErrNotFound)
	}
	for _, ext := range Extensions {
		path := filepath.Join(s.dir, ref+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("ref %q: %w", ref, config.ErrNotFound)
}

// Refs returns every machine ref in the directory in sorted order.
func (s *DirSource) Refs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var refs []string
	for _, e := range entries {
		if e.IsDir() || !IsConfigFile(e.Name()) {
			continue
		}
		ref := Ref(e.Name())
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// LoadClips reads every clip config under <dir>/clips into a library. A
// missing clips directory yields an empty library.
func LoadClips(dir string) (*anim.ClipLibrary, error) {
	lib := anim.NewClipLibrary()
	clipDir := filepath.Join(dir, ClipsDir)

	entries, err := os.ReadDir(clipDir)
	if errors.Is(err, fs.ErrNotExist) {
		return lib, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !IsConfigFile(e.Name()) {
			continue
		}
		cfg, err := LoadClipFile(filepath.Join(clipDir, e.Name()))
		if err != nil {
			return nil, err
		}
		clip, err := BuildClip(cfg)
		if err != nil {
			return nil, err
		}
		lib.Add(clip)
	}
	return lib, nil
}

// BuildClip converts a clip config into a runtime clip. Missing rotation
// and scale components default to identity.
func BuildClip(cfg *config.ClipConfig) (*anim.Clip, error) {
	if cfg.Duration < 0 {
		return nil, fmt.Errorf("clip %q: duration must be >= 0", cfg.Name)
	}
	channels := make(map[string][]anim.Keyframe, len(cfg.Channels))
	for joint, frames := range cfg.Channels {
		keys := make([]anim.Keyframe, 0, len(frames))
		for i, f := range frames {
			t := anim.Identity()
			if err := fill(t.Translation[:], f.Translation); err != nil {
				return nil, fmt.Errorf("clip %q joint %q key %d translation: %w", cfg.Name, joint, i, err)
			}
			if err := fill(t.Rotation[:], f.Rotation); err != nil {
				return nil, fmt.Errorf("clip %q joint %q key %d rotation: %w", cfg.Name, joint, i, err)
			}
			if err := fill(t.Scale[:], f.Scale); err != nil {
				return nil, fmt.Errorf("clip %q joint %q key %d scale: %w", cfg.Name, joint, i, err)
			}
			keys = append(keys, anim.Keyframe{Time: f.Time, Transform: t})
		}
		channels[joint] = keys
	}
	return anim.NewClip(cfg.Name, cfg.Duration, channels), nil
}

func fill(dst, src []float64) error {
	if src == nil {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("want %d components, got %d", len(dst), len(src))
	}
	copy(dst, src)
	return nil
}
