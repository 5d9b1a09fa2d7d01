package deptree

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// maxConsistencyIterations bounds the revert search. The search space is
// finite because every revert strictly shrinks a candidate list, so the
// bound only trips on a logic error, but tripping it yields a typed error
// rather than a hang.
const maxConsistencyIterations = 1000

// TreeUpdate is an update session over a dependency tree. It never
// touches OldTree; all candidate moves happen on NewTree, and nothing is
// written to disk until WriteChanges.
type TreeUpdate struct {
	// OldTree is the tree as built, untouched.
	OldTree *Tree

	// NewTree starts as a deep copy of OldTree and accumulates version
	// moves.
	NewTree *Tree

	// differences maps each direct dependency with more than one
	// candidate to its remaining candidate paths, ascending. Reverting a
	// module truncates its list, so the search cannot revisit a version.
	differences map[string][]string

	// initialClashes records OldTree's clash state at session start, for
	// the terminal error: a tree that starts inconsistent voids the
	// search's guarantee of finding a clash-free set.
	initialClashes string
}

// NewTreeUpdate starts an update session on tree. With update set, every
// direct dependency is moved to its latest candidate. With consistent
// set, dependencies are then reverted one version at a time until no two
// nodes pin the same module at different paths; if that search exhausts
// the candidates it returns a *NoConsistentSetError.
func NewTreeUpdate(tree *Tree, consistent, update bool) (*TreeUpdate, error) {
	u := &TreeUpdate{
		OldTree:        tree,
		NewTree:        tree.Copy(),
		differences:    make(map[string][]string),
		initialClashes: describeClashes(tree.Clashes(false)),
	}
	u.findCandidates()
	if update {
		if err := u.updateTree(); err != nil {
			return nil, err
		}
	}
	if consistent {
		if err := u.MakeConsistent(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Differences returns the remaining candidate paths per direct
// dependency, ascending. The map is live for the session; callers must
// not mutate it.
func (u *TreeUpdate) Differences() map[string][]string {
	return u.differences
}

// findCandidates records, for every direct dependency with somewhere to
// go, its candidate paths and the classified version of each.
func (u *TreeUpdate) findCandidates() {
	for _, child := range u.NewTree.Children {
		paths := child.Updates()
		if len(paths) == 0 || (len(paths) == 1 && paths[0] == child.Path) {
			continue
		}
		u.differences[child.Name] = paths
		versions := make([]VersionOption, 0, len(paths))
		for _, p := range paths {
			_, v := child.Env.ClassifyPath(p)
			versions = append(versions, VersionOption{Version: v, Path: p})
		}
		child.Versions = versions
	}
}

// updateTree moves every candidate dependency to its latest path. A pin
// that cannot be rewritten, because it lives in an included file, is
// reported and left alone.
func (u *TreeUpdate) updateTree() error {
	for _, child := range slices.Clone(u.NewTree.Children) {
		paths := u.differences[child.Name]
		if len(paths) == 0 {
			continue
		}
		latest := paths[len(paths)-1]
		if latest == child.Path {
			continue
		}
		if err := u.rebuild(child, latest); err != nil {
			if errors.Is(err, ErrMacroFromInclude) || errors.Is(err, ErrMacroNotFound) || errors.Is(err, ErrPathNotInLine) {
				u.NewTree.cfg.warn("cannot move dependency", "module", child.Name, "err", err)
				continue
			}
			return err
		}
	}
	return nil
}

// MakeConsistent reverts direct dependencies, newest clashing module
// first, one version at a time, until the tree has no version clashes.
// Each clash group is worked highest version downwards; when a node
// cannot be reverted the next lower one in the group is tried.
func (u *TreeUpdate) MakeConsistent() error {
	var agenda []*Tree
	lasti := -1
	for iter := 0; iter < maxConsistencyIterations; iter++ {
		clashes := u.NewTree.Clashes(false)
		if len(clashes) == 0 {
			return nil
		}
		if agenda == nil {
			names := slices.Sorted(maps.Keys(clashes))
			agenda = clashes[names[0]]
			lasti = -1
		}
		i := len(agenda) + lasti
		if i < 0 {
			return &NoConsistentSetError{
				Module:     agenda[0].Name,
				Context:    u.initialClashes,
				Iterations: iter,
			}
		}
		node := agenda[i]
		// A clash is resolved by reverting the top-level dependency whose
		// subtree carries the clashing node.
		top := node
		for top.parent != nil && top.parent != u.NewTree {
			top = top.parent
		}
		if top.parent == nil || !u.revert(top) {
			lasti--
			continue
		}
		agenda = nil
	}
	return &NoConsistentSetError{
		Context:    u.initialClashes,
		Iterations: maxConsistencyIterations,
	}
}

// describeClashes renders a clash map as a deterministic one-line summary
// for error context.
func describeClashes(groups map[string][]*Tree) string {
	if len(groups) == 0 {
		return "tree was initially consistent"
	}
	names := slices.Sorted(maps.Keys(groups))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		paths := make([]string, len(groups[name]))
		for i, node := range groups[name] {
			paths[i] = node.Path
		}
		parts = append(parts, name+" at "+strings.Join(paths, ", "))
	}
	return "tree was initially inconsistent: " + strings.Join(parts, "; ")
}

// revert moves a direct dependency one step down its candidate list,
// truncating the list so the abandoned version cannot come back. It
// reports false when the node has no lower candidate or the rewrite
// failed.
//
// The search only ever moves downwards from where a node stands. In a
// consistent-only session (no update pass) every node still sits at its
// first candidate, so a tree that starts with clashes fails with the
// typed error rather than being silently upgraded out of them.
func (u *TreeUpdate) revert(node *Tree) bool {
	paths := u.differences[node.Name]
	i := slices.Index(paths, node.Path)
	if i <= 0 {
		return false
	}
	target := paths[i-1]
	u.differences[node.Name] = paths[:i]
	if err := u.rebuild(node, target); err != nil {
		u.NewTree.cfg.warn("cannot revert dependency", "module", node.Name, "err", err)
		return false
	}
	u.NewTree.cfg.logger.Info("reverting module",
		"module", node.Name, "from", node.Path, "to", target)
	return true
}

// rebuild constructs a fresh subtree at path and splices it in place of
// old under the session's root.
func (u *TreeUpdate) rebuild(old *Tree, path string) error {
	node := newTree(u.NewTree, u.NewTree.cfg)
	if err := node.processModule(path); err != nil {
		return err
	}
	node.Versions = old.Versions
	return u.NewTree.ReplaceLeaf(old, node)
}
