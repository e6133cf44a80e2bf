// Package authbridge provides an adapter layer over a wrapped
// authentication framework: versioned configuration transforms, a
// dependency-ordered plugin loader, lifecycle extensions, and a layered
// request/response middleware pipeline.
package authbridge

import (
	"github.com/lanternsoft/authbridge/bridge"
	"github.com/lanternsoft/authbridge/core"
)

// Adapter is the top-level facade.
type Adapter = bridge.Adapter

// Config is the canonical merged adapter configuration.
type Config = core.Config

// Framework is the wrapped authentication framework contract.
type Framework = core.Framework

// FrameworkFactory constructs a wrapped framework instance.
type FrameworkFactory = core.FrameworkFactory

// User represents an authenticated user.
type User = core.User

// Session represents a user session.
type Session = core.Session

// Option configures the adapter facade.
type Option = bridge.Option

// New creates a new adapter facade.
var New = bridge.New

// Bool builds a pointer for the optional boolean config fields.
var Bool = core.Bool

// Facade options
var (
	WithConfig              = bridge.WithConfig
	WithFactory             = bridge.WithFactory
	WithFrameworkVersion    = bridge.WithFrameworkVersion
	WithFrameworkModulePath = bridge.WithFrameworkModulePath
	WithDependencyPolicy    = bridge.WithDependencyPolicy
	WithExtensions          = bridge.WithExtensions
	WithLogger              = bridge.WithLogger
	WithDebug               = bridge.WithDebug
)

// Common errors
var (
	ErrConfiguration  = core.ErrConfiguration
	ErrNotInitialized = core.ErrNotInitialized
	ErrPluginCycle    = core.ErrPluginCycle
	ErrPluginDep      = core.ErrPluginDep
	ErrPluginInit     = core.ErrPluginInit
	ErrRateLimited    = core.ErrRateLimited
)
