package deptree

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DiamondLightSource/dls-dependency-tree/env"
)

// defaultHostArch is used when EPICS_HOST_ARCH is unset.
const defaultHostArch = "linux-x86_64"

// Option configures tree construction.
type Option func(*buildConfig) error

// buildConfig holds all construction configuration. It is shared by every
// node of one tree and is not mutated after Build returns.
type buildConfig struct {
	includes bool
	warnings bool
	hostArch string
	strict   bool
	allowed  map[string][]string
	baseEnv  *env.Environment

	// logger receives all non-fatal diagnostics.
	//
	// Design decision: we use *slog.Logger (Go 1.21+ stdlib) rather than a
	// custom interface because slog provides frontend/backend separation by
	// design. Users can plug in any backend via slog handlers.
	logger *slog.Logger
}

func defaultConfig() *buildConfig {
	arch := os.Getenv("EPICS_HOST_ARCH")
	if arch == "" {
		arch = defaultHostArch
	}
	return &buildConfig{
		includes: true,
		warnings: true,
		hostArch: arch,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// warn logs a non-fatal diagnostic unless warnings are suppressed.
func (c *buildConfig) warn(msg string, args ...any) {
	if c.warnings {
		c.logger.Warn(msg, args...)
	}
}

// WithoutIncludes disables processing of include statements in config
// files.
func WithoutIncludes() Option {
	return func(c *buildConfig) error {
		c.includes = false
		return nil
	}
}

// WithoutWarnings suppresses non-fatal diagnostics.
func WithoutWarnings() Option {
	return func(c *buildConfig) error {
		c.warnings = false
		return nil
	}
}

// WithHostArch sets the EPICS host architecture used to locate
// platform-specific override files. The default comes from EPICS_HOST_ARCH.
func WithHostArch(arch string) Option {
	return func(c *buildConfig) error {
		if arch == "" {
			return fmt.Errorf("host arch must not be empty")
		}
		c.hostArch = arch
		return nil
	}
}

// WithStrict restricts upgrade candidates to version tags matching the
// site's canonical tag grammar.
func WithStrict() Option {
	return func(c *buildConfig) error {
		c.strict = true
		return nil
	}
}

// WithAllowedVersions restricts upgrade candidates for the named modules to
// the listed version tags. A named module's current version is excluded
// from its candidates unless listed; modules absent from the map keep the
// unrestricted candidate scan.
func WithAllowedVersions(allowed map[string][]string) Option {
	return func(c *buildConfig) error {
		c.allowed = allowed
		return nil
	}
}

// WithEnvironment sets the site environment the root node starts from. The
// environment is cloned per node during construction, so the caller's copy
// is never mutated.
func WithEnvironment(e *env.Environment) Option {
	return func(c *buildConfig) error {
		if e == nil {
			return fmt.Errorf("environment must not be nil")
		}
		c.baseEnv = e
		return nil
	}
}

// WithLogger sets the structured logger for diagnostics. By default
// diagnostics are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}
