package bridge

import (
	"context"
	"sync"

	"github.com/lanternsoft/authbridge/compat"
	"github.com/lanternsoft/authbridge/config"
	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/extension"
	"github.com/lanternsoft/authbridge/middleware"
	"github.com/lanternsoft/authbridge/plugin"
)

// Adapter is the top-level facade. It owns one instance of each manager
// and defines the initialization order: configuration load, compatibility
// transform, middleware built-in seed, wrapper construction, plugin
// load+init, extension load.
//
// Initialize is transactional: any step failure rolls back already
// constructed sub-resources and leaves the adapter uninitialized.
type Adapter struct {
	mu sync.Mutex

	configMgr  *config.Manager
	layer      *compat.Layer
	stack      *middleware.Stack
	plugins    *plugin.Adapter
	extensions *extension.Manager
	wrapper    *Wrapper

	overrides        *core.Config
	factory          core.FrameworkFactory
	frameworkVersion string
	modulePath       string
	depPolicy        plugin.DependencyPolicy
	pendingExts      []*extension.Extension
	logger           core.Logger
	debug            bool

	cfg         *core.Config
	initialized bool
}

// Option configures the adapter facade.
type Option func(*Adapter)

// WithConfig supplies caller configuration overrides (highest-precedence
// merge layer).
func WithConfig(cfg *core.Config) Option {
	return func(a *Adapter) { a.overrides = cfg }
}

// WithFactory sets the wrapped framework factory.
func WithFactory(factory core.FrameworkFactory) Option {
	return func(a *Adapter) { a.factory = factory }
}

// WithFrameworkVersion pins the wrapped framework version, bypassing
// detection.
func WithFrameworkVersion(version string) Option {
	return func(a *Adapter) { a.frameworkVersion = version }
}

// WithFrameworkModulePath sets the module path used for build-info version
// detection.
func WithFrameworkModulePath(path string) Option {
	return func(a *Adapter) { a.modulePath = path }
}

// WithDependencyPolicy sets the missing-plugin-dependency policy.
func WithDependencyPolicy(policy plugin.DependencyPolicy) Option {
	return func(a *Adapter) { a.depPolicy = policy }
}

// WithExtensions registers extensions during Initialize.
func WithExtensions(exts ...*extension.Extension) Option {
	return func(a *Adapter) { a.pendingExts = append(a.pendingExts, exts...) }
}

// WithLogger sets the logger shared by every sub-component.
func WithLogger(logger core.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithDebug enables verbose configuration merge tracing.
func WithDebug() Option {
	return func(a *Adapter) { a.debug = true }
}

// New wires the facade's sub-components. It performs no I/O; Initialize is
// the single entry point that does.
func New(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = core.NewDefaultLogger()
	}

	a.configMgr = config.NewManager(a.overrides, a.logger)
	if a.debug {
		a.configMgr.EnableDebug()
	}
	a.stack = middleware.NewStack(a.logger)
	a.plugins = plugin.NewAdapter(a.depPolicy, a.logger)
	a.extensions = extension.NewManager(a.logger)
	return a
}

// Initialize runs the full startup sequence. Calling it twice logs a
// warning and returns without re-running.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		a.logger.Warn("adapter already initialized, skipping")
		return nil
	}

	cfg, err := a.configMgr.Load()
	if err != nil {
		return err
	}
	if a.factory != nil {
		if cfg.Framework == nil {
			cfg.Framework = &core.FrameworkConfig{}
		}
		cfg.Framework.Factory = a.factory
	}

	version := a.frameworkVersion
	if version == "" && cfg.Framework != nil {
		version = cfg.Framework.Version
	}
	a.layer = compat.NewLayer(
		compat.WithVersion(version),
		compat.WithModulePath(a.modulePath),
		compat.WithLogger(a.logger),
	)

	if report := a.layer.CheckCompatibility(); !report.Compatible {
		return core.NewBridgeError(core.ErrCodeTransform,
			"wrapped framework version is incompatible", core.ErrTransform).
			WithDetails("errors", report.Errors)
	}

	cfg = a.layer.TransformConfig(cfg)

	// Built-ins are seeded before the first ProcessConfig pass so the
	// error handler and header middlewares participate from the start.
	a.stack.Initialize(cfg)

	a.wrapper = NewWrapper(a.layer, a.stack, a.extensions, a.logger)
	if err := a.wrapper.Initialize(ctx, cfg); err != nil {
		a.rollback(ctx)
		return err
	}

	if err := a.plugins.LoadAll(cfg.Plugins); err != nil {
		a.rollback(ctx)
		return err
	}
	if err := a.plugins.Initialize(ctx, a.wrapper.Instance()); err != nil {
		a.rollback(ctx)
		return err
	}

	for _, ext := range a.pendingExts {
		if err := a.extensions.Register(ctx, ext); err != nil {
			a.rollback(ctx)
			return err
		}
	}
	if cfg.Extensions != nil && cfg.Extensions.EnableBuiltins {
		if err := extension.EnableBuiltins(ctx, a.extensions, cfg); err != nil {
			a.rollback(ctx)
			return err
		}
	}

	a.cfg = cfg
	a.initialized = true
	a.logger.Info("adapter initialized", "plugins", len(a.plugins.Plugins()))
	return nil
}

// rollback disposes partially constructed sub-resources so a failed
// Initialize leaves the adapter observably uninitialized.
func (a *Adapter) rollback(ctx context.Context) {
	if a.wrapper != nil {
		if err := a.wrapper.Shutdown(ctx); err != nil {
			a.logger.Warn("rollback: wrapper shutdown failed", "error", err)
		}
		a.wrapper = nil
	}
	a.plugins.Shutdown(ctx)
	a.extensions.Clear()
	a.layer = nil
	a.cfg = nil
	a.initialized = false
	a.logger.Warn("initialization rolled back")
}

// Initialized reports whether Initialize has completed.
func (a *Adapter) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Instance returns the wrapped framework instance, or nil before
// initialization.
func (a *Adapter) Instance() core.Framework {
	if a.wrapper == nil {
		return nil
	}
	return a.wrapper.Instance()
}

// ConfigManager returns the configuration manager.
func (a *Adapter) ConfigManager() *config.Manager { return a.configMgr }

// CompatibilityLayer returns the compatibility layer. It is nil before
// Initialize because version detection depends on the loaded config.
func (a *Adapter) CompatibilityLayer() *compat.Layer { return a.layer }

// MiddlewareStack returns the middleware stack.
func (a *Adapter) MiddlewareStack() *middleware.Stack { return a.stack }

// PluginAdapter returns the plugin adapter.
func (a *Adapter) PluginAdapter() *plugin.Adapter { return a.plugins }

// ExtensionManager returns the extension manager.
func (a *Adapter) ExtensionManager() *extension.Manager { return a.extensions }

// Wrapper returns the auth wrapper, or nil before Initialize.
func (a *Adapter) Wrapper() *Wrapper { return a.wrapper }

// RegisterPlugin loads and initializes a plugin at runtime. It fails with
// core.ErrNotInitialized before Initialize completes. Registrations are
// serialized; concurrent callers queue on the adapter lock.
func (a *Adapter) RegisterPlugin(ctx context.Context, submitted interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return core.ErrNotInitialized
	}
	return a.plugins.Register(ctx, submitted, a.wrapper.Instance())
}

// RegisterExtension registers an extension at runtime. It fails with
// core.ErrNotInitialized before Initialize completes.
func (a *Adapter) RegisterExtension(ctx context.Context, ext *extension.Extension) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return core.ErrNotInitialized
	}
	return a.extensions.Register(ctx, ext)
}

// AddMiddleware adds a middleware entry. Allowed at any time, before or
// after Initialize.
func (a *Adapter) AddMiddleware(m middleware.Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stack.Add(m)
}

// Shutdown tears down the wrapper, then plugins, then extensions, then the
// middleware stack, and marks the adapter uninitialized.
func (a *Adapter) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return nil
	}

	var firstErr error
	if err := a.wrapper.Shutdown(ctx); err != nil {
		firstErr = err
	}
	a.plugins.Shutdown(ctx)
	a.extensions.Clear()
	a.stack.Cleanup(ctx)
	a.wrapper = nil
	a.layer = nil
	a.cfg = nil
	a.initialized = false
	a.logger.Info("adapter shut down")
	return firstErr
}
