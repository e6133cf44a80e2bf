// Package compat bridges configuration shapes across wrapped framework
// versions. It detects the installed framework version, applies an ordered
// list of configuration transforms, and annotates outgoing configs with
// version metadata and payload-normalization shims.
package compat

import (
	"runtime/debug"

	"github.com/Masterminds/semver/v3"

	"github.com/lanternsoft/authbridge/core"
)

// SelfVersion is the adapter's own version.
const SelfVersion = "1.0.0"

// VersionLatest is the fallback when the wrapped framework version cannot
// be detected. Every transform applies against it (best effort).
const VersionLatest = "latest"

// Level classifies the wrapped framework's maturity by major version.
type Level string

const (
	LevelExperimental Level = "experimental"
	LevelStable       Level = "stable"
	LevelAdvanced     Level = "advanced"
	LevelUnknown      Level = "unknown"
)

// Transform rewrites a configuration to match a target version's expected
// shape. Apply must be a pure, total function over the config: no I/O, no
// panics. A transform runs when the detected framework version satisfies
// the To constraint.
type Transform struct {
	Name     string
	From     string // informational: the shape it migrates away from
	To       string // semver constraint, e.g. ">=1.0.0"
	Breaking bool   // marks a hard incompatibility in the report
	Apply    func(cfg *core.Config) *core.Config
}

// Report is the advisory result of a compatibility check.
type Report struct {
	Compatible bool
	Warnings   []string
	Errors     []string
}

// VersionInfo describes the adapter/framework version pair.
type VersionInfo struct {
	SelfVersion    string
	WrappedVersion string
	Level          Level
}

// Layer holds the detected framework version and the transform table.
type Layer struct {
	wrapped    string
	wrappedVer *semver.Version // nil when wrapped is "latest"
	modulePath string
	transforms []Transform
	logger     core.Logger
}

// Option configures a Layer.
type Option func(*Layer)

// WithVersion pins the wrapped framework version explicitly.
func WithVersion(version string) Option {
	return func(l *Layer) {
		l.wrapped = version
	}
}

// WithModulePath sets the module path scanned in build info during version
// detection.
func WithModulePath(path string) Option {
	return func(l *Layer) {
		l.modulePath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(l *Layer) {
		l.logger = logger
	}
}

// NewLayer creates a compatibility layer. Without an explicit version it
// attempts detection from the running binary's build info and falls back to
// "latest" with a warning; the fallback is deliberate, not fatal.
func NewLayer(opts ...Option) *Layer {
	l := &Layer{
		logger: core.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.wrapped == "" {
		l.wrapped = l.detectVersion()
	}
	if l.wrapped != VersionLatest {
		v, err := semver.NewVersion(l.wrapped)
		if err != nil {
			l.logger.Warn("compat: unparseable framework version, treating as latest", "version", l.wrapped)
			l.wrapped = VersionLatest
		} else {
			l.wrappedVer = v
		}
	}

	registerBuiltinTransforms(l)
	return l
}

// detectVersion reads the dependency's declared version from build info.
func (l *Layer) detectVersion() string {
	if l.modulePath == "" {
		l.logger.Warn("compat: no framework version or module path configured, assuming latest")
		return VersionLatest
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		l.logger.Warn("compat: build info unavailable, assuming latest framework version")
		return VersionLatest
	}
	for _, dep := range info.Deps {
		if dep.Path == l.modulePath {
			return normalizeVersion(dep.Version)
		}
	}
	l.logger.Warn("compat: framework module not found in build info, assuming latest", "module", l.modulePath)
	return VersionLatest
}

func normalizeVersion(v string) string {
	if len(v) > 0 && v[0] == 'v' {
		return v[1:]
	}
	return v
}

// RegisterTransform appends a transform. Registration order is application
// order.
func (l *Layer) RegisterTransform(t Transform) {
	l.transforms = append(l.transforms, t)
}

// Transforms returns the registered transforms in application order.
func (l *Layer) Transforms() []Transform {
	return l.transforms
}

// applies reports whether a transform's To constraint matches the detected
// version. A "latest" version matches every constraint.
func (l *Layer) applies(t Transform) bool {
	if l.wrappedVer == nil {
		return true
	}
	if t.To == "" {
		return true
	}
	c, err := semver.NewConstraint(t.To)
	if err != nil {
		l.logger.Warn("compat: invalid transform constraint, skipping", "transform", t.Name, "constraint", t.To)
		return false
	}
	return c.Check(l.wrappedVer)
}

// TransformConfig applies every matching transform in registration order,
// each receiving the output of the previous. Already-applied transforms are
// redundant: each built-in stamps a metadata marker and no-ops when it is
// present.
func (l *Layer) TransformConfig(cfg *core.Config) *core.Config {
	out := cfg
	for _, t := range l.transforms {
		if !l.applies(t) {
			continue
		}
		out = t.Apply(out)
		l.logger.Debug("compat: applied transform", "transform", t.Name)
	}
	return out
}

// WrapConfig non-destructively annotates a config with version metadata and
// injects a before-request hook that normalizes sign-in payload shape
// (username accepted as an email alias when email is absent).
func (l *Layer) WrapConfig(cfg *core.Config) *core.Config {
	out := cfg.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]string)
	}
	out.Metadata["compat.adapterVersion"] = SelfVersion
	out.Metadata["compat.frameworkVersion"] = l.wrapped

	if out.Hooks == nil {
		out.Hooks = &core.HooksConfig{}
	}
	out.Hooks.BeforeRequest = append(out.Hooks.BeforeRequest, signInNormalizer())
	return out
}

// CheckCompatibility reports whether the detected version is supported.
// Only transforms marked Breaking can make the result incompatible; none of
// the built-in transforms are, so the default report is advisory.
func (l *Layer) CheckCompatibility() Report {
	report := Report{Compatible: true}
	if l.wrappedVer == nil {
		report.Warnings = append(report.Warnings,
			"framework version could not be detected; transforms applied best-effort")
	}
	for _, t := range l.transforms {
		if !l.applies(t) {
			continue
		}
		if t.Breaking {
			report.Compatible = false
			report.Errors = append(report.Errors,
				"breaking configuration change required: "+t.Name)
		}
	}
	if info := l.VersionInfo(); info.Level == LevelExperimental {
		report.Warnings = append(report.Warnings,
			"framework major version 0 is experimental; config shape may change")
	}
	return report
}

// VersionInfo returns the adapter/framework version pair and the coarse
// compatibility level derived from the framework's major version.
func (l *Layer) VersionInfo() VersionInfo {
	info := VersionInfo{
		SelfVersion:    SelfVersion,
		WrappedVersion: l.wrapped,
		Level:          LevelUnknown,
	}
	if l.wrappedVer == nil {
		return info
	}
	switch l.wrappedVer.Major() {
	case 0:
		info.Level = LevelExperimental
	case 1:
		info.Level = LevelStable
	case 2:
		info.Level = LevelAdvanced
	}
	return info
}

// WrappedVersion returns the detected wrapped framework version string.
func (l *Layer) WrappedVersion() string {
	return l.wrapped
}
