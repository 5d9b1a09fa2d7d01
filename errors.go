package deptree

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for patch and revert failures.
var (
	// ErrNotListed indicates the module to replace is not a child of the
	// tree it was replaced in.
	ErrNotListed = errors.New("module not listed in this tree")

	// ErrMacroFromInclude indicates the macro binding a module comes only
	// from an included file, so the parent's own config file cannot be
	// patched.
	ErrMacroFromInclude = errors.New("macro is not defined in this module's config file")

	// ErrMacroNotFound indicates no macro in the parent resolves to the
	// module path being replaced.
	ErrMacroNotFound = errors.New("no macro resolves to module path")

	// ErrPathNotInLine indicates the module path is absent from the config
	// line that was expected to define it.
	ErrPathNotInLine = errors.New("module path not found in config line")
)

// NoConsistentSetError is returned when the consistency heuristic cannot
// reach a clash-free tree: every candidate for a clashing module has been
// exhausted, or the search exceeded its iteration bound.
type NoConsistentSetError struct {
	// Module is the module that could not be reverted any further, if the
	// failure was a revert exhaustion.
	Module string

	// Context explains why the heuristic's guarantee did not apply to the
	// tree being resolved.
	Context string

	// Iterations is set when the search hit its iteration bound.
	Iterations int
}

func (e *NoConsistentSetError) Error() string {
	var sb strings.Builder
	sb.WriteString("no consistent set found")
	if e.Module != "" {
		fmt.Fprintf(&sb, ": cannot revert module %s any further", e.Module)
	}
	if e.Iterations > 0 {
		fmt.Fprintf(&sb, ": gave up after %d iterations", e.Iterations)
	}
	if e.Context != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Context)
	}
	return sb.String()
}
