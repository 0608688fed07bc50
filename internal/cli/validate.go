package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/engine"
)

// ErrCodeRefCycle marks machines that embed themselves through machineRefs.
const ErrCodeRefCycle = "E302"

// Finding is one validation result for a machine ref.
type Finding struct {
	Ref      string          `json:"ref,omitempty"`
	Field    string          `json:"field,omitempty"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Severity config.Severity `json:"severity"`
	Line     int             `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Machines int       `json:"machines"`
	Clips    int       `json:"clips"`
	Findings []Finding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate machine and clip configs",
		Long: `Validate every machine config in a directory and the clips under clips/.

Checks structure (ids, initial state, action types), that every machineRefs
entry names a config in the directory, and that nested machines do not
embed themselves. Warnings are printed but do not fail validation.

Exit codes:
  0 - No errors (warnings allowed)
  1 - One or more configs have errors
  2 - Command error (directory missing, no configs)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, loadErrs := LoadConfigs(dir)
	if loaded == nil {
		le := firstLoadError(loadErrs[0])
		return commandError(formatter, le.Code, le.Message, nil)
	}
	formatter.VerboseLog("Found %d machine config(s) and %d clip(s) in %s", len(loaded.Refs), len(loaded.Clips), dir)

	result := ValidationResult{Machines: len(loaded.Configs), Clips: len(loaded.Clips)}
	for _, err := range loadErrs {
		le := firstLoadError(err)
		f := Finding{Ref: le.Ref, Field: "load", Code: le.Code, Message: le.Message, Severity: config.SeverityError}
		if le.Pos.IsValid() {
			f.Line = le.Pos.Line()
		}
		result.Findings = append(result.Findings, f)
	}
	result.Findings = append(result.Findings, validateAll(loaded, formatter)...)

	result.Valid = true
	errCount := 0
	for _, f := range result.Findings {
		if f.Severity == config.SeverityError {
			result.Valid = false
			errCount++
		}
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		first := firstError(result.Findings)
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ %d machine(s), %d clip(s) valid\n", result.Machines, result.Clips)
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
	for _, f := range result.Findings {
		loc := f.Ref
		if f.Field != "" {
			loc += " " + f.Field
		}
		if f.Line > 0 {
			loc += fmt.Sprintf(" (line %d)", f.Line)
		}
		fmt.Fprintf(w, "  %s %s: %s: %s\n", f.Severity, f.Code, loc, f.Message)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}
	return nil
}

// validateAll runs structural validation per machine, then the
// cross-machine reference checks.
func validateAll(loaded *LoadResult, formatter *OutputFormatter) []Finding {
	registry := engine.NewRegistry()

	var out []Finding
	for _, ref := range loaded.Refs {
		cfg, ok := loaded.Configs[ref]
		if !ok {
			continue
		}
		formatter.VerboseLog("Validating machine: %s", ref)
		for _, ve := range config.Validate(cfg, registry) {
			out = append(out, Finding{
				Ref:      ref,
				Field:    ve.Field,
				Code:     ve.Code,
				Message:  ve.Message,
				Severity: ve.Severity,
			})
		}
		for i, s := range cfg.States {
			for _, child := range s.MachineRefs {
				if !slices.Contains(loaded.Refs, child) {
					out = append(out, Finding{
						Ref:      ref,
						Field:    fmt.Sprintf("states[%d].machineRefs", i),
						Code:     ErrCodeUnknownRef,
						Message:  fmt.Sprintf("no config for machine ref %q", child),
						Severity: config.SeverityError,
					})
				}
			}
		}
	}

	for _, cycle := range refCycles(loaded) {
		out = append(out, Finding{
			Ref:      cycle[0],
			Field:    "machineRefs",
			Code:     ErrCodeRefCycle,
			Message:  fmt.Sprintf("machine embeds itself: %v", cycle),
			Severity: config.SeverityError,
		})
	}
	return out
}

// refCycles returns each machineRefs cycle once, as the path from its
// smallest ref back to itself.
func refCycles(loaded *LoadResult) [][]string {
	edges := make(map[string][]string, len(loaded.Configs))
	for ref, cfg := range loaded.Configs {
		for _, s := range cfg.States {
			edges[ref] = append(edges[ref], s.MachineRefs...)
		}
	}

	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(edges))
	seen := make(map[string]bool)
	var cycles [][]string
	var stack []string

	var visit func(ref string)
	visit = func(ref string) {
		state[ref] = onStack
		stack = append(stack, ref)
		for _, next := range edges[ref] {
			switch state[next] {
			case onStack:
				start := slices.Index(stack, next)
				cycle := rotateToMin(stack[start:])
				key := fmt.Sprint(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, append(cycle, cycle[0]))
				}
			case unvisited:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		state[ref] = done
	}
	for _, ref := range loaded.Refs {
		if state[ref] == unvisited {
			visit(ref)
		}
	}
	return cycles
}

func rotateToMin(path []string) []string {
	minIdx := 0
	for i, ref := range path {
		if ref < path[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(path)+1)
	out = append(out, path[minIdx:]...)
	return append(out, path[:minIdx]...)
}

func firstError(findings []Finding) Finding {
	for _, f := range findings {
		if f.Severity == config.SeverityError {
			return f
		}
	}
	return Finding{Code: ErrCodeGeneric, Message: "validation failed"}
}
