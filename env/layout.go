package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout holds the site's root directories. The defaults describe the
// Diamond filesystem; other sites (and tests) can substitute their own
// roots, either programmatically or from a YAML file:
//
//	work: /dls_sw/work
//	prod: /dls_sw/prod
//	epics: /dls_sw/epics
type Layout struct {
	// Work is the root of all development areas.
	Work string `yaml:"work"`

	// Prod is the root of all production (released) areas.
	Prod string `yaml:"prod"`

	// Epics is the root of the EPICS installations.
	Epics string `yaml:"epics"`
}

// DefaultLayout returns the standard site layout.
func DefaultLayout() Layout {
	return Layout{
		Work:  "/dls_sw/work",
		Prod:  "/dls_sw/prod",
		Epics: "/dls_sw/epics",
	}
}

// LoadLayout reads a site layout from a YAML file. Fields missing from the
// file keep their default values.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read site layout: %w", err)
	}
	l := DefaultLayout()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse site layout %s: %w", path, err)
	}
	return l, nil
}
