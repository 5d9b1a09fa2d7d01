package deptree

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// macroRefRe matches the three macro reference forms: $(NAME), ${NAME} and
// bare $NAME (identifier characters only).
var macroRefRe = regexp.MustCompile(`\$\(([^)]+)\)|\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// MacroCycleError reports macro definitions that reference each other in a
// cycle and therefore can never be fully substituted. The affected values
// are left partially substituted.
type MacroCycleError struct {
	// Macros names the macros whose values still contain unexpanded
	// references after substitution reached a fixed point.
	Macros []string
}

func (e *MacroCycleError) Error() string {
	return fmt.Sprintf("cyclic macro definitions: %s", strings.Join(e.Macros, ", "))
}

// expandOnce performs one substitution pass over s. References to names
// present in lookup are replaced with their values; if dropUndefined is set,
// references to unknown names are replaced with the empty string, otherwise
// they are left in place.
func expandOnce(s string, lookup map[string]string, dropUndefined bool) string {
	return macroRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		name := refName(ref)
		if value, ok := lookup[name]; ok {
			return value
		}
		if dropUndefined {
			return ""
		}
		return ref
	})
}

// refName extracts the macro name from a matched reference.
func refName(ref string) string {
	switch {
	case strings.HasPrefix(ref, "$(") && strings.HasSuffix(ref, ")"):
		return ref[2 : len(ref)-1]
	case strings.HasPrefix(ref, "${") && strings.HasSuffix(ref, "}"):
		return ref[2 : len(ref)-1]
	default:
		return ref[1:]
	}
}

// resolveMacros substitutes every value in table against lookup until a
// fixed point is reached. Macros may reference each other regardless of
// declaration order; undefined references become the empty string. Values
// that still contain references to defined macros once no pass changes
// anything are cyclic, reported through a *MacroCycleError; their values are
// left partially substituted. table and lookup may be the same map.
func resolveMacros(table, lookup map[string]string) error {
	// the bound guards against self-amplifying definitions whose values
	// grow on every pass and so never reach a textual fixed point
	maxPasses := 2*len(table) + 5
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for name, value := range table {
			expanded := expandOnce(value, lookup, true)
			if expanded != value {
				table[name] = expanded
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	var cyclic []string
	for name, value := range table {
		for _, match := range macroRefRe.FindAllString(value, -1) {
			if _, ok := lookup[refName(match)]; ok {
				cyclic = append(cyclic, name)
				break
			}
		}
	}
	if len(cyclic) > 0 {
		sort.Strings(cyclic)
		return &MacroCycleError{Macros: cyclic}
	}
	return nil
}
