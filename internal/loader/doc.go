// Package loader reads machine and clip configurations from a directory and
// watches it for changes.
//
// Layout:
//
//	<dir>/<ref>.yaml|.yml|.json|.cue   machine configs, ref = file stem
//	<dir>/clips/<name>.yaml|.json|.cue clip configs
//
// YAML and JSON are decoded with gopkg.in/yaml.v3 (unknown fields are
// rejected). CUE files are compiled with the compiler package; a top-level
// "machine" (or "clip") field is used when present, otherwise the file root.
package loader
