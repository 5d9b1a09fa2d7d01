package deptree

import (
	"fmt"
	"slices"
	"strings"
)

// ReplaceLeaf swaps direct child old for new, rewriting the single line of
// the config file that pins old's path. The new line keeps the original
// spacing and any trailing comment, and the path is re-folded through the
// module's other macros so "$(SUPPORT)/motor/6-9" stays macro-relative
// after the swap.
//
// It returns ErrNotListed when old is not a direct child,
// ErrMacroNotFound when no macro resolves to old's path, and
// ErrMacroFromInclude when the defining line lives in an included or
// platform file, which this tree does not own and will not rewrite.
func (t *Tree) ReplaceLeaf(old, new *Tree) error {
	idx := -1
	for i, child := range t.Children {
		if child == old {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("replace %s: %w", old.Name, ErrNotListed)
	}

	macro := ""
	for _, name := range t.MacroOrder {
		if name != "TOP" && t.Macros[name] == old.Path {
			macro = name
			break
		}
	}
	if macro == "" {
		return fmt.Errorf("replace %s: %w", old.Name, ErrMacroNotFound)
	}

	// The last assignment in the primary file wins, so patch that one.
	lineIdx := -1
	for i, line := range t.Lines {
		if assignmentKey(line) == macro {
			lineIdx = i
		}
	}
	if lineIdx < 0 {
		return fmt.Errorf("replace %s: macro %s: %w", old.Name, macro, ErrMacroFromInclude)
	}

	rawLine := t.Lines[lineIdx]
	rawVal := rawAssignmentValue(rawLine)
	expanded := expandOnce(rawVal, t.Macros, false)
	if !strings.Contains(expanded, old.Path) {
		return fmt.Errorf("replace %s: %q does not resolve to %s: %w",
			old.Name, rawVal, old.Path, ErrPathNotInLine)
	}
	newVal := strings.ReplaceAll(expanded, old.Path, new.Path)
	folded := t.foldMacros(newVal, macro)

	t.Lines[lineIdx] = strings.Replace(rawLine, rawVal, folded, 1)
	t.Macros[macro] = new.Path
	new.parent = t
	t.Children[idx] = new
	return nil
}

// assignmentKey returns the macro a config line assigns, or "" when the
// line is not an assignment.
func assignmentKey(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	key, _, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(key)
}

// rawAssignmentValue returns the literal value text of an assignment line,
// without surrounding whitespace, comment or newline.
func rawAssignmentValue(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// foldMacros rewrites path so that its longest macro-valued prefix is
// expressed as a macro reference again. exclude names the macro being
// redefined, which must not fold into itself.
func (t *Tree) foldMacros(path, exclude string) string {
	names := make([]string, 0, len(t.MacroOrder))
	for _, name := range t.MacroOrder {
		value := t.Macros[name]
		if name == "TOP" || name == exclude || value == "" || value == path {
			continue
		}
		if strings.HasPrefix(path, value+"/") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return path
	}
	slices.SortFunc(names, func(a, b string) int {
		return len(t.Macros[b]) - len(t.Macros[a])
	})
	best := names[0]
	return "$(" + best + ")" + path[len(t.Macros[best]):]
}
