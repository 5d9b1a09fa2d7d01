package deptree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/DiamondLightSource/dls-dependency-tree/env"
)

// Tree is one module in a dependency tree: the module's identity, the
// parsed and resolved macros from its config file, the literal file text
// used for patching, and the child modules its macros reference.
//
// A tree is structurally always a tree: the same module referenced by two
// parents yields two distinct nodes, which is exactly why version clashes
// are representable. Identity fields are fixed after construction; the
// Children list may have entries replaced (never mutated) by the resolver.
type Tree struct {
	// Name is the module identifier, e.g. "motor" or "BL16I/MO".
	Name string `json:"name"`

	// Version is the module version tag, or the specials env.VersionWork
	// (an unreleased checkout) and env.VersionInvalid (unclassifiable).
	Version string `json:"version"`

	// Path is the absolute filesystem path of the module root.
	Path string `json:"path"`

	// Macros maps each macro defined by the config file to its fully
	// substituted value. Declaration order is kept in MacroOrder.
	Macros map[string]string `json:"-"`

	// MacroOrder preserves macro declaration order for child construction
	// and line rewriting.
	MacroOrder []string `json:"-"`

	// Lines holds the literal lines of the primary config file, byte for
	// byte as last read or patched. A committed version change updates
	// exactly one entry.
	Lines []string `json:"-"`

	// ExtraLines holds lines spliced in from ancestor-project and
	// platform-override files. They are read-only for patch purposes.
	ExtraLines []string `json:"-"`

	// Children are the modules this one's macros reference, in macro
	// declaration order.
	Children []*Tree `json:"children,omitempty"`

	// Versions lists the upgrade candidates recorded for this node by the
	// resolver, ascending. Empty until an update session populates it.
	Versions []VersionOption `json:"-"`

	// Env is this node's view of the site environment. It is cloned from
	// the parent at construction so a toolchain version discovered while
	// parsing this module never leaks into siblings.
	Env *env.Environment `json:"-"`

	// parent is a non-owning back-reference; ownership runs strictly
	// through Children.
	parent *Tree

	// releasePath overrides the conventional config file location when the
	// tree was built directly from a file path.
	releasePath string

	cfg *buildConfig
}

// VersionOption is one available (version, path) candidate for a module.
type VersionOption struct {
	Version string
	Path    string
}

// Parent returns the node this one was built under, or nil for the root.
func (t *Tree) Parent() *Tree {
	return t.parent
}

// String returns a short identity string for diagnostics.
func (t *Tree) String() string {
	return fmt.Sprintf("<tree - %s: %s>", t.Name, t.Version)
}

// Equal reports whether two trees agree on name, version and, recursively,
// children. Paths and macro tables are not compared.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Name != other.Name || t.Version != other.Version || len(t.Children) != len(other.Children) {
		return false
	}
	for i, child := range t.Children {
		if !child.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the tree. The copy shares the original's
// build configuration but owns its macro table, lines, children and
// environment, so the resolver can mutate it freely.
func (t *Tree) Copy() *Tree {
	n := &Tree{
		Name:        t.Name,
		Version:     t.Version,
		Path:        t.Path,
		Macros:      maps.Clone(t.Macros),
		MacroOrder:  slices.Clone(t.MacroOrder),
		Lines:       slices.Clone(t.Lines),
		ExtraLines:  slices.Clone(t.ExtraLines),
		Versions:    slices.Clone(t.Versions),
		Env:         t.Env.Clone(),
		parent:      t.parent,
		releasePath: t.releasePath,
		cfg:         t.cfg,
	}
	for _, child := range t.Children {
		c := child.Copy()
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}
