// Package extension manages named extensions contributing lifecycle hooks
// invoked by name. Hook execution is resilient: a failing hook is logged
// and skipped, and the chain continues with the context from before that
// hook. Contrast with the middleware pipeline, which is strict.
package extension

import (
	"context"

	"github.com/lanternsoft/authbridge/core"
)

// Lifecycle hook names.
const (
	HookBeforeAuth    = "beforeAuth"
	HookAfterAuth     = "afterAuth"
	HookBeforeSignIn  = "beforeSignIn"
	HookAfterSignIn   = "afterSignIn"
	HookBeforeSignUp  = "beforeSignUp"
	HookAfterSignUp   = "afterSignUp"
	HookBeforeSignOut = "beforeSignOut"
	HookAfterSignOut  = "afterSignOut"
)

// Keys set on hook contexts by built-in extensions.
const (
	KeyBlocked     = "blocked"
	KeyBlockReason = "blockReason"
)

// HookContext is the payload threaded through a hook chain. Hooks return
// the (possibly replaced) context; returning the input unchanged is fine.
type HookContext map[string]interface{}

// HookFn is a lifecycle hook contributed by an extension.
type HookFn func(ctx context.Context, hc HookContext) (HookContext, error)

// Extension is a named unit contributing hook functions. Unlike plugins,
// extensions have no dependency graph: registration order is invocation
// order.
type Extension struct {
	Name    string
	Version string
	Init    func(ctx context.Context) error
	Hooks   map[string]HookFn
	Config  map[string]interface{}
}

// hookEntry ties a contributed hook back to its extension so removal is
// precise even when several extensions share a hook name.
type hookEntry struct {
	extension string
	fn        HookFn
}

// Manager owns the extension registry and the hook multimap.
type Manager struct {
	extensions map[string]*Extension
	order      []string
	hooks      map[string][]hookEntry
	logger     core.Logger
}

// NewManager creates an extension manager.
func NewManager(logger core.Logger) *Manager {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Manager{
		extensions: make(map[string]*Extension),
		hooks:      make(map[string][]hookEntry),
		logger:     logger,
	}
}

// Register registers an extension, invokes its Init once, and fans its
// hooks out into the hook multimap. Registering an already-registered name
// warns and no-ops.
func (m *Manager) Register(ctx context.Context, ext *Extension) error {
	if ext == nil || ext.Name == "" {
		return core.NewBridgeError(core.ErrCodeConfiguration, "extension requires a name", nil)
	}
	if _, exists := m.extensions[ext.Name]; exists {
		m.logger.Warn("extension already registered, skipping", "name", ext.Name)
		return nil
	}

	if ext.Init != nil {
		if err := ext.Init(ctx); err != nil {
			return core.NewBridgeError(core.ErrCodePluginInit, "extension init failed", err).
				WithDetails("extension", ext.Name)
		}
	}

	m.extensions[ext.Name] = ext
	m.order = append(m.order, ext.Name)
	for hookName, fn := range ext.Hooks {
		m.hooks[hookName] = append(m.hooks[hookName], hookEntry{extension: ext.Name, fn: fn})
	}
	m.logger.Info("extension registered", "name", ext.Name)
	return nil
}

// ExecuteHooks threads the context through every hook registered for the
// name, in registration order. A hook error is logged and that hook's
// contribution is skipped; the chain continues with the context from before
// the failing hook.
func (m *Manager) ExecuteHooks(ctx context.Context, hookName string, hc HookContext) HookContext {
	if hc == nil {
		hc = make(HookContext)
	}
	for _, entry := range m.hooks[hookName] {
		next, err := entry.fn(ctx, hc)
		if err != nil {
			m.logger.Warn("extension hook failed, skipping",
				"extension", entry.extension, "hook", hookName, "error", err)
			continue
		}
		if next != nil {
			hc = next
		}
	}
	return hc
}

// Remove deregisters an extension and removes only its own hook
// contributions, leaving other extensions' hooks under shared names intact.
func (m *Manager) Remove(name string) {
	ext, ok := m.extensions[name]
	if !ok {
		return
	}
	delete(m.extensions, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for hookName := range ext.Hooks {
		entries := m.hooks[hookName]
		kept := entries[:0]
		for _, e := range entries {
			if e.extension != name {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(m.hooks, hookName)
		} else {
			m.hooks[hookName] = kept
		}
	}
}

// Clear removes every registered extension and its hooks. The facade calls
// it when tearing down and when rolling back a failed initialization.
func (m *Manager) Clear() {
	if len(m.order) > 0 {
		m.logger.Info("extensions cleared", "count", len(m.order))
	}
	m.extensions = make(map[string]*Extension)
	m.order = nil
	m.hooks = make(map[string][]hookEntry)
}

// Get returns a registered extension by name, or nil.
func (m *Manager) Get(name string) *Extension {
	return m.extensions[name]
}

// Names returns registered extension names in registration order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// HookCount returns how many hooks are registered under a name.
func (m *Manager) HookCount(hookName string) int {
	return len(m.hooks[hookName])
}
