package deptree

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/DiamondLightSource/dls-dependency-tree/env"
)

// possiblePaths lists every candidate path for this module, ascending by
// version, scanned from the production area for the module's kind. The
// node's current path is included unless an explicit allow-list is in
// force, in which case only listed versions qualify.
func (t *Tree) possiblePaths() []string {
	area := "support"
	if strings.Contains(t.Path, "ioc") {
		area = "ioc"
	}
	prefix := filepath.Join(t.Env.ProdArea(area), t.Name)

	// An allow-set only restricts the modules it names; everything else
	// keeps the unrestricted scan.
	allowed, restricted := t.cfg.allowed[t.Name]

	var paths []string
	entries, err := os.ReadDir(prefix)
	if err != nil {
		entries = nil
	}
	for _, entry := range entries {
		version := entry.Name()
		if strings.HasSuffix(version, ".tar.gz") {
			continue
		}
		if restricted {
			if !slices.Contains(allowed, version) {
				continue
			}
		} else if t.cfg.strict && !env.IsStrictTag(version) {
			continue
		}
		paths = append(paths, filepath.Join(prefix, version))
	}
	if !restricted && !slices.Contains(paths, t.Path) {
		paths = append([]string{t.Path}, paths...)
	}
	return t.Env.SortReleases(paths)
}

// Updates lists the candidate paths this module could move to: the paths
// at or above its current version, ascending, with the current path first
// when present. A module named in an allow-list instead offers every
// allowed path, regardless of direction.
func (t *Tree) Updates() []string {
	paths := t.possiblePaths()
	if _, restricted := t.cfg.allowed[t.Name]; restricted {
		return paths
	}
	i := slices.Index(paths, t.Path)
	if i < 0 {
		return paths
	}
	return paths[i:]
}
