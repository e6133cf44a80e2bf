package core

import (
	"time"
)

// Config is the canonical merged adapter configuration. Exactly one merged
// config exists per adapter instance; later merge sources override earlier
// ones (slices are replaced wholesale, never concatenated).
type Config struct {
	// Core settings
	AppName  string
	BaseURL  string
	BasePath string
	Secret   string

	// Database descriptor, opaque to the adapter beyond validation
	Database *DatabaseConfig

	// Email delivery
	Email *EmailConfig

	// Session policy forwarded to the wrapped framework
	Session *SessionConfig

	// Wrapped framework wiring
	Framework *FrameworkConfig

	// Plugins in any accepted shape (canonical, tagged spec, or loose map);
	// the plugin adapter normalizes them
	Plugins []interface{}

	// Extension settings
	Extensions *ExtensionsConfig

	// User schema extensions forwarded to the wrapped framework
	UserFields map[string]string

	// Rate limiting
	RateLimit *RateLimitConfig

	// Request hooks, including shims injected by the compatibility layer
	Hooks *HooksConfig

	// Version metadata stamped by the compatibility layer
	Metadata map[string]string

	// Advanced settings
	Advanced *AdvancedConfig
}

// DatabaseConfig describes the persistence backend.
type DatabaseConfig struct {
	Provider         string
	ConnectionString string
	Storage          Storage
}

// EmailConfig describes the email delivery collaborator.
type EmailConfig struct {
	From   string
	Mailer Mailer
}

// SessionConfig holds the session policy. Cookie flags are pointers so the
// merge can tell "unset" from an explicit false; an unset flag keeps the
// value from earlier layers.
type SessionConfig struct {
	ExpiresIn        time.Duration
	UpdateAge        time.Duration
	CookieName       string
	CookieSecure     *bool
	CookieHTTPOnly   *bool
	CookieSameSite   string
	CookieDomain     string
	CookiePath       string
	SecondaryStorage SecondaryStorage
}

// FrameworkConfig wires the wrapped framework in.
type FrameworkConfig struct {
	// Version pins the wrapped framework version; empty means detect.
	Version string
	// Factory constructs the framework instance from the final config.
	Factory FrameworkFactory
}

// ExtensionsConfig holds extension settings.
type ExtensionsConfig struct {
	EnableBuiltins bool
	AuditLog       bool
}

// RateLimitConfig holds rate limiting configuration. Enabled is a pointer
// for the same unset-versus-false distinction as the session cookie flags.
type RateLimitConfig struct {
	Enabled *bool
	Storage RateLimitStorage
	Limit   int
	Window  time.Duration
}

// Bool returns a pointer to v, for the optional boolean config fields.
func Bool(v bool) *bool {
	return &v
}

// HooksConfig holds request hook configuration.
type HooksConfig struct {
	BeforeRequest []Hook
	AfterRequest  []Hook
	OnError       []Hook
}

// AdvancedConfig holds advanced configuration options.
type AdvancedConfig struct {
	TrustedOrigins   []string
	DisableCSRFCheck bool
	GenerateID       func() string
	Debug            bool
	Logger           Logger
}

// Clone returns a deep-enough copy for non-destructive transformation:
// every nested struct is copied, slices and maps are duplicated. Interface
// values (storage, mailer, factory) are shared by reference.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Database != nil {
		db := *c.Database
		out.Database = &db
	}
	if c.Email != nil {
		em := *c.Email
		out.Email = &em
	}
	if c.Session != nil {
		s := *c.Session
		s.CookieSecure = cloneBool(c.Session.CookieSecure)
		s.CookieHTTPOnly = cloneBool(c.Session.CookieHTTPOnly)
		out.Session = &s
	}
	if c.Framework != nil {
		f := *c.Framework
		out.Framework = &f
	}
	if c.Extensions != nil {
		e := *c.Extensions
		out.Extensions = &e
	}
	if c.RateLimit != nil {
		r := *c.RateLimit
		r.Enabled = cloneBool(c.RateLimit.Enabled)
		out.RateLimit = &r
	}
	if c.Hooks != nil {
		h := HooksConfig{
			BeforeRequest: append([]Hook(nil), c.Hooks.BeforeRequest...),
			AfterRequest:  append([]Hook(nil), c.Hooks.AfterRequest...),
			OnError:       append([]Hook(nil), c.Hooks.OnError...),
		}
		out.Hooks = &h
	}
	if c.Advanced != nil {
		a := *c.Advanced
		a.TrustedOrigins = append([]string(nil), c.Advanced.TrustedOrigins...)
		out.Advanced = &a
	}
	out.Plugins = append([]interface{}(nil), c.Plugins...)
	if c.UserFields != nil {
		out.UserFields = make(map[string]string, len(c.UserFields))
		for k, v := range c.UserFields {
			out.UserFields[k] = v
		}
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Logger returns the configured logger, or a default one.
func (c *Config) LoggerOrDefault() Logger {
	if c != nil && c.Advanced != nil && c.Advanced.Logger != nil {
		return c.Advanced.Logger
	}
	return NewDefaultLogger()
}
