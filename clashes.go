package deptree

import (
	"path/filepath"
	"slices"

	"github.com/DiamondLightSource/dls-dependency-tree/env"
)

// Clashes returns every module name that appears in the tree at more than
// one distinct version, mapped to all nodes carrying that name. Within
// each group the nodes are ordered by ascending version of their path's
// last element, so the final entry is the highest version in play.
//
// When warn is true each clashing node is also reported through the
// tree's logger, attributed to the parent that pinned it.
func (t *Tree) Clashes(warn bool) map[string][]*Tree {
	groups := make(map[string][]*Tree)
	for _, node := range t.Flatten(true, false) {
		groups[node.Name] = append(groups[node.Name], node)
	}
	for name, nodes := range groups {
		uniform := true
		for _, node := range nodes[1:] {
			if node.Version != nodes[0].Version {
				uniform = false
				break
			}
		}
		if uniform {
			delete(groups, name)
			continue
		}
		slices.SortStableFunc(nodes, func(a, b *Tree) int {
			return env.CompareReleases(filepath.Base(a.Path), filepath.Base(b.Path))
		})
		if warn {
			for _, node := range nodes {
				parentName, parentVersion := "<root>", ""
				if node.parent != nil {
					parentName, parentVersion = node.parent.Name, node.parent.Version
				}
				t.cfg.warn("version clash",
					"module", name,
					"pinnedBy", parentName,
					"pinnedByVersion", parentVersion,
					"as", node.Path)
			}
		}
	}
	return groups
}
