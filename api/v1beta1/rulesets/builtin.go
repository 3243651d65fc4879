package rulesets

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// BuiltinPrefix marks references to embedded rule sets, e.g. "builtin:go".
const BuiltinPrefix = "builtin:"

// ErrUnknownBuiltin is returned for a reference to a rule set that is not
// embedded.
var ErrUnknownBuiltin = errors.New("unknown builtin rule set")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// IsBuiltin reports whether ref refers to an embedded rule set.
func IsBuiltin(ref string) bool {
	return strings.HasPrefix(ref, BuiltinPrefix)
}

// BuiltinNames returns the names of the embedded rule sets.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}

	slices.Sort(names)

	return names
}

// Builtin returns the YAML source of an embedded rule set, by name or by
// reference.
func Builtin(ref string) ([]byte, error) {
	name := strings.TrimPrefix(ref, BuiltinPrefix)
	if !slices.Contains(BuiltinNames(), name) {
		return nil, fmt.Errorf("%w %q, want one of %v", ErrUnknownBuiltin, name, BuiltinNames())
	}

	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read builtin rule set: %w", err)
	}

	return data, nil
}
