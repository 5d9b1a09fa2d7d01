// Package env models the site's directory layout conventions: per-area
// development ("work") and production roots, EPICS and RHEL toolchain
// versions, path classification into (module, version), and release tag
// ordering.
//
// An Environment is cheap to copy and is cloned whenever a consumer may
// mutate the toolchain version mid-traversal, so a version discovered while
// parsing one module never leaks into a sibling.
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
)

// Version specials used throughout the tree.
const (
	// VersionWork marks an unreleased development checkout.
	VersionWork = "work"

	// VersionInvalid marks a path that could not be classified.
	VersionInvalid = "invalid"
)

// Domain classifies which root a path falls under.
type Domain string

const (
	DomainWork    Domain = "work"
	DomainProd    Domain = "prod"
	DomainInvalid Domain = "invalid"
)

// defaultEpics is used when no toolchain version can be determined.
const defaultEpics = "R3.14.12.3"

// defaultRhel is used when the platform version cannot be read.
const defaultRhel = "7"

// epicsVerRe matches an EPICS version token such as R3.14.12.3.
var epicsVerRe = regexp.MustCompile(`R\d(\.\d+)+`)

// VersionToken returns the first EPICS version token embedded in s, or ""
// if there is none.
func VersionToken(s string) string {
	return epicsVerRe.FindString(s)
}

// areas lists every area DevArea and ProdArea accept.
var areas = []string{
	"support",
	"ioc",
	"matlab",
	"python",
	"python3",
	"python3ext",
	"etc",
	"tools",
	"epics",
}

// Areas returns the names accepted by DevArea and ProdArea.
func Areas() []string {
	return append([]string(nil), areas...)
}

// multiLevelAreas are areas whose module names span one extra path level
// (ioc domains, tools and python install trees).
var multiLevelAreas = map[string]bool{"ioc": true, "tools": true, "python": true}

// Environment holds the site layout plus the active toolchain versions.
// The zero value is not usable; create one with New or NewWithVersions.
type Environment struct {
	epics  string
	rhel   string
	layout Layout
}

// New returns an Environment with the default site layout. Toolchain
// versions are resolved lazily from the process environment.
func New() *Environment {
	return &Environment{layout: DefaultLayout()}
}

// NewWithVersions returns an Environment with the given EPICS and RHEL
// versions pinned. Either may be empty to fall back to lazy detection.
func NewWithVersions(epics, rhel string) *Environment {
	e := New()
	e.epics = epics
	e.rhel = rhel
	return e
}

// Clone returns an independent copy of e. Mutations of the clone's
// toolchain version do not affect the original.
func (e *Environment) Clone() *Environment {
	clone := *e
	return &clone
}

// SetLayout overrides the site layout roots.
func (e *Environment) SetLayout(l Layout) {
	e.layout = l
}

// Layout returns the active site layout.
func (e *Environment) Layout() Layout {
	return e.layout
}

// SetEpics forces the EPICS version.
func (e *Environment) SetEpics(epics string) {
	e.epics = epics
}

// EpicsVer returns the EPICS version, reading DLS_EPICS_RELEASE or
// EPICS_RELEASE from the process environment on first use. This may carry a
// _64 suffix on 64 bit architectures.
func (e *Environment) EpicsVer() string {
	if e.epics == "" {
		e.epics = os.Getenv("DLS_EPICS_RELEASE")
		if e.epics == "" {
			e.epics = os.Getenv("EPICS_RELEASE")
		}
		if e.epics == "" {
			e.epics = defaultEpics
		}
	}
	return e.epics
}

// EpicsVerDir returns the EPICS version used in directory templates, which
// never carries the _64 suffix.
func (e *Environment) EpicsVerDir() string {
	ver, _, _ := strings.Cut(e.EpicsVer(), "_")
	return ver
}

// SetRhel forces the RHEL version.
func (e *Environment) SetRhel(rhel string) {
	e.rhel = rhel
}

// RhelVer returns the RHEL major version, reading DLS_RHEL from the
// process environment or /etc/os-release on first use.
func (e *Environment) RhelVer() string {
	if e.rhel == "" {
		e.rhel = os.Getenv("DLS_RHEL")
	}
	if e.rhel == "" {
		e.rhel = platformVersion()
	}
	return e.rhel
}

// RhelVerDir returns the platform identifier used in directory templates,
// e.g. RHEL7-x86_64.
func (e *Environment) RhelVerDir() string {
	return "RHEL" + e.RhelVer() + "-x86_64"
}

// platformVersion reads the distribution major version from
// /etc/os-release, falling back to the default.
func platformVersion() string {
	f, err := ini.Load("/etc/os-release")
	if err != nil {
		return defaultRhel
	}
	id := f.Section("").Key("VERSION_ID").String()
	if id == "" {
		return defaultRhel
	}
	major, _, _ := strings.Cut(id, ".")
	return major
}

// EpicsDir returns the root directory of the EPICS installation itself.
func (e *Environment) EpicsDir() string {
	if e.EpicsVer() < "R3.14" {
		return filepath.Join("/home", "epics", e.EpicsVerDir())
	}
	return filepath.Join(e.layout.Epics, e.EpicsVerDir())
}

// DevArea returns the development root directory for an area. Passing an
// unrecognized area is a programmer error and panics.
func (e *Environment) DevArea(area string) string {
	work := e.layout.Work
	switch area {
	case "support", "ioc":
		return filepath.Join(work, e.EpicsVerDir(), area)
	case "epics", "etc":
		return filepath.Join(work, area)
	case "tools":
		return filepath.Join(work, area, e.RhelVerDir())
	case "python3", "python3ext":
		// both share the python3 area
		return filepath.Join(work, "python3", e.RhelVerDir())
	case "python":
		return filepath.Join(work, "common", area, e.RhelVerDir())
	case "matlab":
		return filepath.Join(work, "common", area)
	default:
		panic(fmt.Sprintf("env: unknown area %q, supported areas are: %s",
			area, strings.Join(areas, ", ")))
	}
}

// ProdArea returns the production root directory for an area. Passing an
// unrecognized area is a programmer error and panics.
func (e *Environment) ProdArea(area string) string {
	if area == "epics" {
		return e.layout.Epics
	}
	return strings.Replace(e.DevArea(area), e.layout.Work, e.layout.Prod, 1)
}

// SortReleases sorts paths ascending by release tag. It exists on
// Environment for symmetry with the classification methods; ordering does
// not depend on the toolchain version.
func (e *Environment) SortReleases(paths []string) []string {
	return SortReleases(paths)
}

// ClassifyArea determines which area and domain a path falls under by
// prefix match against the per-area root templates. Paths under neither
// root are retried with any EPICS version token embedded in the path itself
// before being declared invalid.
func (e *Environment) ClassifyArea(path string) (area string, domain Domain, epicsVer string) {
	for _, a := range areas {
		if strings.HasPrefix(path, e.DevArea(a)) {
			return a, DomainWork, e.EpicsVer()
		}
		if strings.HasPrefix(path, e.ProdArea(a)) {
			return a, DomainProd, e.EpicsVer()
		}
	}
	if tok := VersionToken(path); tok != "" && tok != e.EpicsVer() {
		retry := e.Clone()
		retry.SetEpics(tok)
		return retry.ClassifyArea(path)
	}
	return "invalid", DomainInvalid, e.EpicsVer()
}

// ClassifyPath returns the (module, version) pair for a path, where version
// is VersionWork, VersionInvalid, or a release tag. A module.ini identity
// file under the module root takes precedence over path-derived naming.
// Classifying the same path twice yields the same result.
func (e *Environment) ClassifyPath(path string) (name, version string) {
	area, domain, epicsVer := e.ClassifyArea(path)
	env := e
	if epicsVer != e.EpicsVer() {
		env = e.Clone()
		env.SetEpics(epicsVer)
	}

	name = moduleNameFromIni(path)

	var root string
	switch domain {
	case DomainWork:
		root = env.DevArea(area)
	case DomainProd:
		root = env.ProdArea(area)
	}

	rel := strings.TrimPrefix(path, root)
	sections := strings.Split(strings.Trim(filepath.Clean(rel), string(filepath.Separator)), string(filepath.Separator))

	// tools and python paths may carry an install "prefix" suffix
	if len(sections) > 0 && sections[len(sections)-1] == "prefix" && (area == "python" || area == "tools") {
		sections = sections[:len(sections)-1]
	}

	switch domain {
	case DomainWork:
		if len(sections) == 1 || (multiLevelAreas[area] && len(sections) == 2) {
			version = VersionWork
		} else {
			version = VersionInvalid
		}
	case DomainProd:
		if len(sections) == 2 || (multiLevelAreas[area] && len(sections) == 3) {
			version = sections[len(sections)-1]
			if name == "" {
				if area == "tools" || area == "python" {
					name = sections[len(sections)-2]
				} else {
					name = strings.Join(sections[:len(sections)-1], string(filepath.Separator))
				}
			}
		} else {
			version = VersionInvalid
			if len(sections) > 0 {
				sections = sections[:len(sections)-1]
			}
		}
	default:
		version = VersionInvalid
	}

	if name == "" {
		switch {
		case area == "ioc" && len(sections) >= 2:
			name = strings.Join(sections[len(sections)-2:], string(filepath.Separator))
		case domain == DomainWork && version == VersionWork:
			name = strings.Join(sections, string(filepath.Separator))
		case len(sections) > 1:
			name = sections[len(sections)-1]
		}
	}
	return name, version
}

// moduleNameFromIni reads the module identity override file, if present,
// from etc/module.ini or configure/module.ini under the module root.
func moduleNameFromIni(path string) string {
	for _, sub := range []string{"etc", "configure"} {
		iniPath := filepath.Join(path, sub, "module.ini")
		if _, err := os.Stat(iniPath); err != nil {
			continue
		}
		f, err := ini.Load(iniPath)
		if err != nil {
			continue
		}
		if name := f.Section("general").Key("name").String(); name != "" {
			return name
		}
	}
	return ""
}
