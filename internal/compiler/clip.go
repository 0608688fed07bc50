package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/animfsm/internal/config"
)

// CompileClip parses a CUE value into a ClipConfig. The clip name defaults
// to the value's struct label.
func CompileClip(v cue.Value) (*config.ClipConfig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if !v.LookupPath(cue.ParsePath("duration")).Exists() {
		return nil, &CompileError{
			Field:   "duration",
			Message: "duration is required",
			Pos:     v.Pos(),
		}
	}

	clip := &config.ClipConfig{}
	if err := v.Decode(clip); err != nil {
		return nil, formatCUEError(err)
	}
	if clip.Name == "" {
		clip.Name = lastLabel(v)
	}
	if clip.Duration < 0 {
		return nil, &CompileError{
			Field:   "duration",
			Message: "duration must be >= 0",
			Pos:     v.LookupPath(cue.ParsePath("duration")).Pos(),
		}
	}
	return clip, nil
}
