// Package config loads and merges adapter configuration from layered
// sources: built-in defaults, process environment, and caller overrides.
package config

import (
	"fmt"
	"time"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/crypto"
)

// Manager merges configuration sources into one canonical core.Config.
// Later sources override earlier ones; slice fields are replaced wholesale.
type Manager struct {
	overrides *core.Config
	merged    *core.Config
	logger    core.Logger
	debug     bool
	loaded    bool
}

// NewManager creates a configuration manager with caller overrides.
// Overrides may be nil when the environment supplies everything required.
func NewManager(overrides *core.Config, logger core.Logger) *Manager {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Manager{
		overrides: overrides,
		logger:    logger,
	}
}

// EnableDebug toggles verbose logging of merge steps.
func (m *Manager) EnableDebug() {
	m.debug = true
}

// Load merges defaults, environment values, and caller overrides, then
// validates the result. It is deterministic: loading twice with the same
// inputs yields the same config.
func (m *Manager) Load() (*core.Config, error) {
	cfg := defaultConfig()
	m.trace("applied built-in defaults")

	envCfg, err := fromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("%w: environment: %v", core.ErrConfiguration, err)
	}
	merge(cfg, envCfg)
	m.trace("applied environment values")

	if m.overrides != nil {
		merge(cfg, m.overrides)
		m.trace("applied caller overrides")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	m.merged = cfg
	m.loaded = true
	return cfg, nil
}

// Config returns the merged configuration. It is nil before Load succeeds.
// The returned config is shared, read-only by convention.
func (m *Manager) Config() *core.Config {
	return m.merged
}

// Loaded reports whether Load has completed successfully.
func (m *Manager) Loaded() bool {
	return m.loaded
}

func (m *Manager) trace(msg string) {
	if m.debug {
		m.logger.Debug("config: " + msg)
	}
}

// defaultConfig returns the built-in defaults, the lowest-precedence layer.
func defaultConfig() *core.Config {
	return &core.Config{
		AppName:  "authbridge",
		BasePath: "/auth",
		Session: &core.SessionConfig{
			ExpiresIn:      7 * 24 * time.Hour,
			UpdateAge:      1 * time.Hour,
			CookieName:     "authbridge_session",
			CookieSecure:   core.Bool(true),
			CookieHTTPOnly: core.Bool(true),
			CookieSameSite: "lax",
			CookiePath:     "/",
		},
		Framework:  &core.FrameworkConfig{},
		Extensions: &core.ExtensionsConfig{},
		Advanced: &core.AdvancedConfig{
			GenerateID: crypto.GenerateID,
		},
	}
}

// validate checks that required fields survived the merge.
func validate(cfg *core.Config) error {
	if cfg.Secret == "" {
		return fmt.Errorf("%w: secret is required", core.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", core.ErrConfiguration)
	}
	if cfg.Database == nil || (cfg.Database.ConnectionString == "" && cfg.Database.Storage == nil) {
		return fmt.Errorf("%w: database descriptor is required", core.ErrConfiguration)
	}
	return nil
}
