package config

import (
	"github.com/lanternsoft/authbridge/core"
)

// merge overlays src onto dst. Scalars override when non-zero, nested
// structs merge recursively, maps merge key-by-key, and slices replace
// wholesale when present in src.
func merge(dst, src *core.Config) {
	if src == nil {
		return
	}
	if src.AppName != "" {
		dst.AppName = src.AppName
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.BasePath != "" {
		dst.BasePath = src.BasePath
	}
	if src.Secret != "" {
		dst.Secret = src.Secret
	}

	if src.Database != nil {
		if dst.Database == nil {
			dst.Database = &core.DatabaseConfig{}
		}
		if src.Database.Provider != "" {
			dst.Database.Provider = src.Database.Provider
		}
		if src.Database.ConnectionString != "" {
			dst.Database.ConnectionString = src.Database.ConnectionString
		}
		if src.Database.Storage != nil {
			dst.Database.Storage = src.Database.Storage
		}
	}

	if src.Email != nil {
		if dst.Email == nil {
			dst.Email = &core.EmailConfig{}
		}
		if src.Email.From != "" {
			dst.Email.From = src.Email.From
		}
		if src.Email.Mailer != nil {
			dst.Email.Mailer = src.Email.Mailer
		}
	}

	if src.Session != nil {
		if dst.Session == nil {
			dst.Session = &core.SessionConfig{}
		}
		s, d := src.Session, dst.Session
		if s.ExpiresIn != 0 {
			d.ExpiresIn = s.ExpiresIn
		}
		if s.UpdateAge != 0 {
			d.UpdateAge = s.UpdateAge
		}
		if s.CookieName != "" {
			d.CookieName = s.CookieName
		}
		if s.CookieSameSite != "" {
			d.CookieSameSite = s.CookieSameSite
		}
		if s.CookieDomain != "" {
			d.CookieDomain = s.CookieDomain
		}
		if s.CookiePath != "" {
			d.CookiePath = s.CookiePath
		}
		if s.SecondaryStorage != nil {
			d.SecondaryStorage = s.SecondaryStorage
		}
		// Unset cookie flags keep the value from earlier layers.
		if s.CookieSecure != nil {
			d.CookieSecure = s.CookieSecure
		}
		if s.CookieHTTPOnly != nil {
			d.CookieHTTPOnly = s.CookieHTTPOnly
		}
	}

	if src.Framework != nil {
		if dst.Framework == nil {
			dst.Framework = &core.FrameworkConfig{}
		}
		if src.Framework.Version != "" {
			dst.Framework.Version = src.Framework.Version
		}
		if src.Framework.Factory != nil {
			dst.Framework.Factory = src.Framework.Factory
		}
	}

	if src.Plugins != nil {
		dst.Plugins = append([]interface{}(nil), src.Plugins...)
	}

	if src.Extensions != nil {
		if dst.Extensions == nil {
			dst.Extensions = &core.ExtensionsConfig{}
		}
		if src.Extensions.EnableBuiltins {
			dst.Extensions.EnableBuiltins = true
		}
		if src.Extensions.AuditLog {
			dst.Extensions.AuditLog = true
		}
	}

	if src.UserFields != nil {
		if dst.UserFields == nil {
			dst.UserFields = make(map[string]string, len(src.UserFields))
		}
		for k, v := range src.UserFields {
			dst.UserFields[k] = v
		}
	}

	if src.RateLimit != nil {
		if dst.RateLimit == nil {
			dst.RateLimit = &core.RateLimitConfig{}
		}
		r, d := src.RateLimit, dst.RateLimit
		if r.Enabled != nil {
			d.Enabled = r.Enabled
		}
		if r.Storage != nil {
			d.Storage = r.Storage
		}
		if r.Limit != 0 {
			d.Limit = r.Limit
		}
		if r.Window != 0 {
			d.Window = r.Window
		}
	}

	if src.Hooks != nil {
		if dst.Hooks == nil {
			dst.Hooks = &core.HooksConfig{}
		}
		if src.Hooks.BeforeRequest != nil {
			dst.Hooks.BeforeRequest = append([]core.Hook(nil), src.Hooks.BeforeRequest...)
		}
		if src.Hooks.AfterRequest != nil {
			dst.Hooks.AfterRequest = append([]core.Hook(nil), src.Hooks.AfterRequest...)
		}
		if src.Hooks.OnError != nil {
			dst.Hooks.OnError = append([]core.Hook(nil), src.Hooks.OnError...)
		}
	}

	if src.Metadata != nil {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]string, len(src.Metadata))
		}
		for k, v := range src.Metadata {
			dst.Metadata[k] = v
		}
	}

	if src.Advanced != nil {
		if dst.Advanced == nil {
			dst.Advanced = &core.AdvancedConfig{}
		}
		a, d := src.Advanced, dst.Advanced
		if a.TrustedOrigins != nil {
			d.TrustedOrigins = append([]string(nil), a.TrustedOrigins...)
		}
		if a.DisableCSRFCheck {
			d.DisableCSRFCheck = true
		}
		if a.GenerateID != nil {
			d.GenerateID = a.GenerateID
		}
		if a.Debug {
			d.Debug = true
		}
		if a.Logger != nil {
			d.Logger = a.Logger
		}
	}
}
