package deptree

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DiamondLightSource/dls-dependency-tree/env"
)

// Macro names that never denote a dependency module.
var ignoredMacros = map[string]bool{
	"TEMPLATE_TOP": true,
	"EPICS_BASE":   true,
}

func newTree(parent *Tree, cfg *buildConfig) *Tree {
	t := &Tree{
		Macros:     map[string]string{"TOP": "."},
		MacroOrder: []string{"TOP"},
		parent:     parent,
		cfg:        cfg,
	}
	switch {
	case parent != nil:
		t.Env = parent.Env.Clone()
	case cfg.baseEnv != nil:
		t.Env = cfg.baseEnv.Clone()
	default:
		t.Env = env.New()
	}
	return t
}

// readLines reads a file and splits it into lines, each keeping its
// trailing newline. Joining the result with "" reproduces the file byte
// for byte.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, string(data))
			break
		}
		lines = append(lines, string(data[:i+1]))
		data = data[i+1:]
	}
	return lines, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// processModule populates the tree from the module at modulePath, then
// recursively builds children for every macro that looks like a module
// path. modulePath may be either a module directory or a direct path to a
// config file (a path whose last element is exactly "RELEASE").
func (t *Tree) processModule(modulePath string) error {
	p, err := filepath.Abs(modulePath)
	if err != nil {
		return err
	}
	p = strings.TrimRight(p, "/\n\r")
	if filepath.Base(p) == "prefix" {
		p = filepath.Dir(p)
	}
	if filepath.Base(p) == "RELEASE" {
		t.releasePath = p
		p = filepath.Dir(filepath.Dir(p))
	}
	t.Path = p
	t.initVersion()

	rel := t.Release()
	if !isFile(rel) {
		// A versioned module with no config file is a childless leaf; a
		// missing directory means the reference itself is broken.
		if !isDir(t.Path) {
			t.Version = env.VersionInvalid
			t.cfg.warn("module path does not exist", "name", t.Name, "path", t.Path)
		}
		return nil
	}

	// An IOC generated under <project>/etc inherits the parent project's
	// own config file ahead of its own.
	var preLines []string
	if strings.HasSuffix(filepath.Dir(filepath.Dir(rel)), "etc") {
		rel = filepath.Clean(filepath.Join(rel, "..", "..", "..", "configure", "RELEASE"))
		if isFile(rel) {
			preLines, _ = readLines(rel)
		}
	}

	t.Lines, err = readLines(t.Release())
	if err != nil {
		return err
	}

	// Platform overrides are appended so they win over the main file.
	var postLines []string
	archCommon := rel + "." + t.cfg.hostArch + ".Common"
	archOnly := rel + "." + t.cfg.hostArch
	switch {
	case isFile(archCommon):
		postLines, _ = readLines(archCommon)
	case isFile(archOnly):
		postLines, _ = readLines(archOnly)
	}

	for _, line := range preLines {
		t.processLine(line)
	}
	for _, line := range t.Lines {
		t.processLine(line)
	}
	for _, line := range postLines {
		t.processLine(line)
	}
	t.ExtraLines = append(preLines, postLines...)

	// A module that names itself would recurse forever.
	if t.parent != nil && t.Name == t.parent.Name {
		t.Children = nil
		return nil
	}

	if err := resolveMacros(t.Macros, t.Macros); err != nil {
		t.cfg.warn("macro substitution did not settle", "name", t.Name, "err", err)
	}

	devSupport := t.Env.DevArea("support")
	devIOC := t.Env.DevArea("ioc")
	prodSupport := t.Env.ProdArea("support")
	prodIOC := t.Env.ProdArea("ioc")
	for _, name := range t.MacroOrder {
		value := t.Macros[name]
		switch upper := strings.ToUpper(value); {
		case name == "TOP" || value == ".":
			continue
		case upper == "YES" || upper == "NO" || upper == "TRUE" || upper == "FALSE":
			continue
		case strings.Contains(value, "python"):
			continue
		case value == devSupport || value == devIOC || value == prodSupport || value == prodIOC:
			// A bare area root is configuration, not a module.
			continue
		case value == "":
			continue
		case ignoredMacros[name]:
			continue
		}
		child := newTree(t, t.cfg)
		if err := child.processModule(value); err != nil {
			return err
		}
		if child.Name != "" && child.Name != t.Name {
			t.Children = append(t.Children, child)
		}
	}
	return nil
}

func (t *Tree) initVersion() {
	name, version := t.Env.ClassifyPath(t.Path)
	t.Name = name
	t.Version = version
}

// processLine interprets one config line: either an include directive or a
// macro assignment. Anything else is ignored.
func (t *Tree) processLine(line string) {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	head := line
	if len(head) > 8 {
		head = head[:8]
	}
	if strings.Contains(head, "include") && !strings.Contains(head, "-include") {
		if t.cfg.includes {
			t.processInclude(line)
		}
		return
	}
	t.processAssignment(line)
}

// processInclude splices the assignments of an included file into this
// node's macro table. Included files may not themselves include; an
// unreadable target is silently skipped, matching make's -include.
func (t *Tree) processInclude(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	fname := expandOnce(fields[1], t.Macros, false)
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(t.Path, fname)
	}
	lines, err := readLines(fname)
	if err != nil {
		return
	}
	for _, l := range lines {
		if i := strings.Index(l, "#"); i >= 0 {
			l = l[:i]
		}
		t.processAssignment(l)
	}
}

func (t *Tree) processAssignment(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return
	}
	if key == "EPICS_BASE" {
		if v := env.VersionToken(value); v != "" {
			t.Env.SetEpics(v)
		}
	}
	if _, seen := t.Macros[key]; !seen {
		t.MacroOrder = append(t.MacroOrder, key)
	}
	t.Macros[key] = value
}

// Release returns the path of the config file this tree was built from.
// Reading it is the caller's business; the path is defined even when the
// file does not exist.
func (t *Tree) Release() string {
	if t.releasePath != "" {
		return t.releasePath
	}
	if v := env.VersionToken(t.Path); v != "" && v < "R3.14" {
		t.Env.SetEpics(v)
	}
	if t.Env.EpicsVer() < "R3.14" {
		return filepath.Join(t.Path, "config", "RELEASE")
	}
	return filepath.Join(t.Path, "configure", "RELEASE")
}

// Flatten returns the tree's nodes depth first. includeSelf keeps the
// receiver itself in the result; removeDups drops repeat visits to the
// same module path, keeping the first.
func (t *Tree) Flatten(includeSelf, removeDups bool) []*Tree {
	var out []*Tree
	if includeSelf {
		out = append(out, t)
	}
	for _, child := range t.Children {
		out = append(out, child.Flatten(true, false)...)
	}
	if !removeDups {
		return out
	}
	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, node := range out {
		if seen[node.Path] {
			continue
		}
		seen[node.Path] = true
		deduped = append(deduped, node)
	}
	return deduped
}

// Paths globs each pattern under every distinct module path in the tree
// and returns all matches. Patterns are appended verbatim to the module
// path, so they normally start with a separator, e.g. "/data/*.db".
func (t *Tree) Paths(globs []string) []string {
	_, paths := t.NamedPaths(globs)
	return paths
}

// NamedPaths is Paths plus the owning module name for each match.
func (t *Tree) NamedPaths(globs []string) (names, paths []string) {
	for _, node := range t.Flatten(true, true) {
		for _, g := range globs {
			matches, err := doublestar.FilepathGlob(node.Path + g)
			if err != nil {
				t.cfg.warn("bad glob pattern", "pattern", g, "err", err)
				continue
			}
			for _, m := range matches {
				names = append(names, node.Name)
				paths = append(paths, m)
			}
		}
	}
	return names, paths
}
