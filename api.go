// Package deptree builds and manipulates dependency trees of EPICS-style
// modules from their RELEASE configuration files.
//
// A RELEASE file pins each dependency through a macro assignment such as
// MOTOR=$(SUPPORT)/motor/6-9. This package reads such a file, resolves
// the macros to filesystem paths, classifies each path against the site's
// work/prod directory conventions, and recurses into every dependency to
// produce a Tree.
//
// # Overview
//
// The package provides three main components:
//
//   - Build: parses a module's RELEASE file into a Tree of dependencies
//   - Tree: queries over the result, such as Flatten, Clashes and Paths
//   - TreeUpdate: an update session that moves dependencies to newer
//     versions and searches for a clash-free set
//
// # Quick Start
//
//	tree, err := deptree.Build("/dls_sw/work/R3.14.12.3/ioc/BL16I/MO")
//	if err != nil { ... }
//	tree.PrintTree(os.Stdout)
//
//	for name, nodes := range tree.Clashes(false) {
//	    // nodes pin module name at more than one version
//	}
//
// # Updating
//
//	update, err := deptree.NewTreeUpdate(tree, true, true)
//	if err != nil { ... }          // *NoConsistentSetError if unsolvable
//	for _, c := range update.Changes() {
//	    fmt.Printf("-%s+%s", c.Old, c.New)
//	}
//	err = update.WriteChanges()    // backs up RELEASE to RELEASE~ first
//
// # Site Layout
//
// Path classification is driven by an env.Environment, which defaults to
// the standard /dls_sw layout and the EPICS_HOST_ARCH, DLS_EPICS_RELEASE
// and DLS_RHEL environment variables. Pass WithEnvironment to point a
// build at a different layout, for instance in tests.
//
// Trees and update sessions are not safe for concurrent use.
package deptree

import "fmt"

// Build parses the module at modulePath into a dependency tree.
// modulePath is either a module directory, whose RELEASE file is found by
// convention, or a direct path to a RELEASE file. The tree is returned
// even when some dependencies are missing; those appear as nodes with
// Version env.VersionInvalid.
func Build(modulePath string, opts ...Option) (*Tree, error) {
	if modulePath == "" {
		return nil, fmt.Errorf("deptree: module path must not be empty")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("deptree: %w", err)
		}
	}
	t := newTree(nil, cfg)
	if err := t.processModule(modulePath); err != nil {
		return nil, fmt.Errorf("deptree: build %s: %w", modulePath, err)
	}
	return t, nil
}
