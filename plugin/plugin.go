// Package plugin normalizes heterogeneous plugin shapes into a canonical
// form and initializes them in dependency order against the wrapped
// framework instance.
package plugin

import (
	"context"

	"github.com/lanternsoft/authbridge/core"
)

// Kind tags the plugin family a loose shape belongs to.
type Kind string

const (
	KindOAuth   Kind = "oauth"
	KindMFA     Kind = "mfa"
	KindRBAC    Kind = "rbac"
	KindSession Kind = "session"
	KindUnknown Kind = "unknown"
)

// InitFunc initializes a plugin against the constructed framework instance.
type InitFunc func(ctx context.Context, fw core.Framework) error

// ShutdownFunc releases a plugin's resources.
type ShutdownFunc func(ctx context.Context) error

// Plugin is the canonical internal plugin shape. Name is the unique key;
// Init is invoked exactly once, after every declared dependency's Init has
// completed.
type Plugin struct {
	Name         string
	Version      string
	Dependencies []string
	Config       map[string]interface{}
	Init         InitFunc
	Shutdown     ShutdownFunc
}

// Spec is the tagged submission shape for integrators. Prefer it over loose
// maps: the Kind discriminates explicitly instead of relying on structural
// sniffing.
type Spec struct {
	Kind         Kind
	Name         string
	Version      string
	Dependencies []string
	Config       map[string]interface{}
	Init         InitFunc
	Shutdown     ShutdownFunc
}

// Converter translates a tagged spec of one Kind into the canonical shape.
type Converter struct {
	Kind    Kind
	Convert func(spec *Spec) (*Plugin, error)
}

// passthroughConverter builds the canonical plugin directly from the spec
// fields. All four built-in families currently convert identically; the
// registry exists so a family can diverge without touching the adapter.
func passthroughConverter(kind Kind) Converter {
	return Converter{
		Kind: kind,
		Convert: func(spec *Spec) (*Plugin, error) {
			name := spec.Name
			if name == "" {
				name = string(kind)
			}
			init := spec.Init
			if init == nil {
				init = func(ctx context.Context, fw core.Framework) error { return nil }
			}
			return &Plugin{
				Name:         name,
				Version:      spec.Version,
				Dependencies: spec.Dependencies,
				Config:       spec.Config,
				Init:         init,
				Shutdown:     spec.Shutdown,
			}, nil
		},
	}
}

// detectKind sniffs the plugin family from structural markers of a loose
// map shape. This is the backward-compatible ingestion path only; tagged
// specs bypass it.
func detectKind(m map[string]interface{}) Kind {
	if _, ok := m["providers"]; ok {
		return KindOAuth
	}
	if _, ok := m["totpOptions"]; ok {
		return KindMFA
	}
	if _, ok := m["roles"]; ok {
		return KindRBAC
	}
	if _, ok := m["permissions"]; ok {
		return KindRBAC
	}
	if _, ok := m["sessionOptions"]; ok {
		return KindSession
	}
	return KindUnknown
}

// looseToSpec lifts a loose map into a tagged spec.
func looseToSpec(m map[string]interface{}) *Spec {
	spec := &Spec{
		Kind:   detectKind(m),
		Config: m,
	}
	if name, ok := m["name"].(string); ok {
		spec.Name = name
	}
	if version, ok := m["version"].(string); ok {
		spec.Version = version
	}
	switch deps := m["dependencies"].(type) {
	case []string:
		spec.Dependencies = deps
	case []interface{}:
		for _, d := range deps {
			if s, ok := d.(string); ok {
				spec.Dependencies = append(spec.Dependencies, s)
			}
		}
	}
	switch init := m["init"].(type) {
	case InitFunc:
		spec.Init = init
	case func(ctx context.Context, fw core.Framework) error:
		spec.Init = init
	}
	switch shutdown := m["shutdown"].(type) {
	case ShutdownFunc:
		spec.Shutdown = shutdown
	case func(ctx context.Context) error:
		spec.Shutdown = shutdown
	}
	return spec
}
