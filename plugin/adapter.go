package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/lanternsoft/authbridge/core"
)

// DependencyPolicy controls how a missing (non-cyclic) dependency is
// handled at load time.
type DependencyPolicy int

const (
	// DependencySoft logs a warning and proceeds without the dependency.
	DependencySoft DependencyPolicy = iota
	// DependencyStrict fails the load with core.ErrPluginDep.
	DependencyStrict
)

// Adapter normalizes submitted plugins, resolves initialization order via
// dependency topological sort, and initializes each plugin exactly once.
type Adapter struct {
	converters  map[Kind]Converter
	plugins     map[string]*Plugin
	loadOrder   []string
	initialized map[string]bool
	initOrder   []string
	policy      DependencyPolicy
	logger      core.Logger
}

// NewAdapter creates a plugin adapter with the four built-in family
// converters pre-registered.
func NewAdapter(policy DependencyPolicy, logger core.Logger) *Adapter {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	a := &Adapter{
		converters:  make(map[Kind]Converter),
		plugins:     make(map[string]*Plugin),
		initialized: make(map[string]bool),
		policy:      policy,
		logger:      logger,
	}
	for _, kind := range []Kind{KindOAuth, KindMFA, KindRBAC, KindSession} {
		a.RegisterConverter(passthroughConverter(kind))
	}
	return a
}

// RegisterConverter adds or replaces a named shape converter.
func (a *Adapter) RegisterConverter(c Converter) {
	a.converters[c.Kind] = c
}

// Load normalizes a submitted plugin into canonical shape and stores it.
// Accepted shapes: *Plugin (stored as-is), *Spec / Spec (converted via the
// registered family converter), map[string]interface{} (loose; family
// sniffed structurally), and bare init functions.
func (a *Adapter) Load(submitted interface{}) (*Plugin, error) {
	p, err := a.normalize(submitted)
	if err != nil {
		return nil, err
	}

	if err := a.checkDependencies(p); err != nil {
		return nil, err
	}

	if _, exists := a.plugins[p.Name]; !exists {
		a.loadOrder = append(a.loadOrder, p.Name)
	}
	a.plugins[p.Name] = p
	a.logger.Debug("plugin loaded", "name", p.Name)
	return p, nil
}

// LoadAll loads every submitted plugin, failing on the first bad shape.
func (a *Adapter) LoadAll(submitted []interface{}) error {
	for _, s := range submitted {
		if _, err := a.Load(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) normalize(submitted interface{}) (*Plugin, error) {
	switch v := submitted.(type) {
	case *Plugin:
		if v.Name == "" || v.Init == nil {
			return nil, fmt.Errorf("canonical plugin requires name and init")
		}
		return v, nil
	case Plugin:
		return a.normalize(&v)
	case *Spec:
		return a.convert(v)
	case Spec:
		return a.convert(&v)
	case map[string]interface{}:
		return a.convert(looseToSpec(v))
	case InitFunc:
		return &Plugin{Name: "unknown-plugin", Init: v}, nil
	case func(ctx context.Context, fw core.Framework) error:
		return &Plugin{Name: "unknown-plugin", Init: v}, nil
	default:
		return nil, fmt.Errorf("unsupported plugin shape %T", submitted)
	}
}

func (a *Adapter) convert(spec *Spec) (*Plugin, error) {
	if c, ok := a.converters[spec.Kind]; ok {
		return c.Convert(spec)
	}
	// No converter registered for this family: generic adaptation.
	name := spec.Name
	if name == "" {
		name = "unknown-plugin"
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
}

// checkDependencies applies the dependency policy against currently-loaded
// plugins.
func (a *Adapter) checkDependencies(p *Plugin) error {
	for _, dep := range p.Dependencies {
		if dep == p.Name {
			return fmt.Errorf("%w: plugin %q depends on itself", core.ErrPluginCycle, p.Name)
		}
		if _, ok := a.plugins[dep]; ok {
			continue
		}
		if a.policy == DependencyStrict {
			return fmt.Errorf("%w: plugin %q requires %q", core.ErrPluginDep, p.Name, dep)
		}
		a.logger.Warn("plugin dependency not loaded", "plugin", p.Name, "dependency", dep)
	}
	return nil
}

// Plugins returns loaded plugins in load order.
func (a *Adapter) Plugins() []*Plugin {
	out := make([]*Plugin, 0, len(a.loadOrder))
	for _, name := range a.loadOrder {
		out = append(out, a.plugins[name])
	}
	return out
}

// Get returns a loaded plugin by name, or nil.
func (a *Adapter) Get(name string) *Plugin {
	return a.plugins[name]
}

// Initialized reports whether the named plugin's Init has run.
func (a *Adapter) Initialized(name string) bool {
	return a.initialized[name]
}

// sortByDependencies computes a dependency-respecting order via depth-first
// topological sort. Roots are visited in sorted-name order so the result is
// deterministic. A cycle aborts with core.ErrPluginCycle naming a plugin on
// the cycle.
func (a *Adapter) sortByDependencies() ([]string, error) {
	names := make([]string, 0, len(a.plugins))
	for name := range a.plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		order    []string
		visited  = make(map[string]bool)
		visiting = make(map[string]bool)
	)

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("%w: involving plugin %q", core.ErrPluginCycle, name)
		}
		visiting[name] = true
		p := a.plugins[name]
		for _, dep := range p.Dependencies {
			if _, ok := a.plugins[dep]; !ok {
				// Missing dependency already handled at load time per the
				// policy; the sort just skips the absent edge.
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(visiting, name)
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Initialize resolves the dependency order and invokes each plugin's Init
// exactly once against the framework instance. A plugin Init error aborts
// the remaining sequence (fail-fast).
func (a *Adapter) Initialize(ctx context.Context, fw core.Framework) error {
	order, err := a.sortByDependencies()
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := a.initializeOne(ctx, a.plugins[name], fw); err != nil {
			return err
		}
	}
	return nil
}

// initializeOne is idempotent: a plugin whose Init already ran is skipped.
func (a *Adapter) initializeOne(ctx context.Context, p *Plugin, fw core.Framework) error {
	if a.initialized[p.Name] {
		return nil
	}
	if err := p.Init(ctx, fw); err != nil {
		return fmt.Errorf("%w: %q: %v", core.ErrPluginInit, p.Name, err)
	}
	a.initialized[p.Name] = true
	a.initOrder = append(a.initOrder, p.Name)
	a.logger.Info("plugin initialized", "name", p.Name)
	return nil
}

// Register loads and immediately initializes a single plugin at runtime.
// It does not re-run the full topological sort: the new plugin must not
// depend on plugins that have not been initialized yet.
func (a *Adapter) Register(ctx context.Context, submitted interface{}, fw core.Framework) error {
	p, err := a.Load(submitted)
	if err != nil {
		return err
	}
	return a.initializeOne(ctx, p, fw)
}

// Shutdown tears plugins down in reverse initialization order, calling each
// plugin's optional Shutdown. Per-plugin errors are logged and skipped.
func (a *Adapter) Shutdown(ctx context.Context) {
	for i := len(a.initOrder) - 1; i >= 0; i-- {
		p := a.plugins[a.initOrder[i]]
		if p == nil || p.Shutdown == nil {
			continue
		}
		if err := p.Shutdown(ctx); err != nil {
			a.logger.Warn("plugin shutdown failed", "name", p.Name, "error", err)
		}
	}
	a.initOrder = nil
	a.initialized = make(map[string]bool)
}
