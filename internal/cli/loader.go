package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/animfsm/internal/compiler"
	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/loader"
)

// LoadResult is the content of a config directory.
type LoadResult struct {
	Dir     string
	Configs map[string]*config.MachineConfig // by ref
	Refs    []string                         // sorted
	Clips   []*config.ClipConfig
	Paths   map[string]string // ref -> backing file
}

// LoadError is a directory or file that could not be loaded.
type LoadError struct {
	Code    string
	Ref     string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, shared by every command.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No config files found
	ErrCodeLoadFailed  = "E004" // Config file did not parse
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeDatabase    = "E006" // Database open/read/write error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUnknownRef  = "E301" // machineRefs names no config in the directory
)

// LoadConfigs reads every machine and clip config in dir. A directory
// problem returns nil and a single error; file problems are collected so
// validate can report all of them.
func LoadConfigs(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	src, err := loader.NewDirSource(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: err.Error()}}
	}
	refs, err := src.Refs()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(refs) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no machine configs found in %s", dir)}}
	}

	result := &LoadResult{
		Dir:     dir,
		Configs: make(map[string]*config.MachineConfig, len(refs)),
		Refs:    refs,
		Paths:   make(map[string]string, len(refs)),
	}
	var errs []error
	for _, ref := range refs {
		path, err := src.Path(ref)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Ref: ref, Message: err.Error()})
			continue
		}
		result.Paths[ref] = path
		cfg, err := loader.LoadMachineFile(path)
		if err != nil {
			errs = append(errs, convertLoadError(ref, err))
			continue
		}
		result.Configs[ref] = cfg
	}

	clips, err := loadClipConfigs(dir)
	if err != nil {
		errs = append(errs, convertLoadError("", err))
	}
	result.Clips = clips
	return result, errs
}

func loadClipConfigs(dir string) ([]*config.ClipConfig, error) {
	clipDir := filepath.Join(dir, loader.ClipsDir)
	entries, err := os.ReadDir(clipDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []*config.ClipConfig
	for _, e := range entries {
		if e.IsDir() || !loader.IsConfigFile(e.Name()) {
			continue
		}
		cfg, err := loader.LoadClipFile(filepath.Join(clipDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := loader.BuildClip(cfg); err != nil {
			return nil, fmt.Errorf("clip %q: %w", cfg.Name, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// convertLoadError keeps the CUE position of a compile error.
func convertLoadError(ref string, err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{Code: ErrCodeLoadFailed, Ref: ref, Message: compileErr.Message, Pos: compileErr.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Ref: ref, Message: err.Error()}
}

// firstLoadError returns err as a *LoadError, wrapping other errors as
// ErrCodeGeneric.
func firstLoadError(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
