package extension

import (
	"context"
	"fmt"
	"time"

	"github.com/lanternsoft/authbridge/core"
)

// Built-in extension names.
const (
	NameSessionManagement = "session-management"
	NameAuditLogging      = "audit-logging"
	NameRateLimiting      = "rate-limiting"
)

// EnableBuiltins registers the built-in extensions. Opt-in: the facade
// calls this only when the extensions config asks for it.
func EnableBuiltins(ctx context.Context, m *Manager, cfg *core.Config) error {
	logger := cfg.LoggerOrDefault()

	if err := m.Register(ctx, sessionManagement(cfg)); err != nil {
		return err
	}
	if err := m.Register(ctx, auditLogging(logger)); err != nil {
		return err
	}
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled != nil && *cfg.RateLimit.Enabled {
		if err := m.Register(ctx, rateLimiting(cfg.RateLimit, logger)); err != nil {
			return err
		}
	}
	return nil
}

// sessionManagement stamps freshly issued sessions with creation/expiry
// timestamps and mirrors them into secondary storage when configured.
func sessionManagement(cfg *core.Config) *Extension {
	return &Extension{
		Name: NameSessionManagement,
		Hooks: map[string]HookFn{
			HookAfterSignIn: func(ctx context.Context, hc HookContext) (HookContext, error) {
				session, ok := hc["session"].(*core.Session)
				if !ok || session == nil {
					return hc, nil
				}
				now := time.Now().UTC()
				if session.CreatedAt.IsZero() {
					session.CreatedAt = now
				}
				if session.ExpiresAt.IsZero() && cfg.Session != nil && cfg.Session.ExpiresIn > 0 {
					session.ExpiresAt = now.Add(cfg.Session.ExpiresIn)
				}
				if cfg.Session != nil && cfg.Session.SecondaryStorage != nil {
					ttl := time.Until(session.ExpiresAt)
					if ttl > 0 {
						if err := cfg.Session.SecondaryStorage.Set(ctx, session.Token, session, ttl); err != nil {
							return hc, fmt.Errorf("secondary storage set: %w", err)
						}
					}
				}
				return hc, nil
			},
		},
	}
}

// auditLogging emits a structured audit line after each auth operation.
func auditLogging(logger core.Logger) *Extension {
	return &Extension{
		Name: NameAuditLogging,
		Hooks: map[string]HookFn{
			HookAfterAuth: func(ctx context.Context, hc HookContext) (HookContext, error) {
				logger.Info("audit",
					"event", hc["event"],
					"email", hc["email"],
					"userId", hc["userId"],
					"success", hc["success"],
					"ip", hc["ip"],
				)
				return hc, nil
			},
		},
	}
}

// rateLimiting enforces the configured rate limit before auth operations.
// It never fails the hook chain; when the limit is exceeded it marks the
// context blocked and the wrapper rejects the call.
func rateLimiting(rl *core.RateLimitConfig, logger core.Logger) *Extension {
	limit := rl.Limit
	if limit <= 0 {
		limit = 10
	}
	window := rl.Window
	if window <= 0 {
		window = time.Minute
	}
	return &Extension{
		Name: NameRateLimiting,
		Hooks: map[string]HookFn{
			HookBeforeAuth: func(ctx context.Context, hc HookContext) (HookContext, error) {
				if rl.Storage == nil {
					return hc, nil
				}
				key := rateLimitKey(hc)
				allowed, err := rl.Storage.Allow(ctx, key, limit, window)
				if err != nil {
					// Fail open: a broken limiter backend must not lock
					// everyone out.
					return hc, fmt.Errorf("rate limit check: %w", err)
				}
				if !allowed {
					logger.Warn("rate limit exceeded", "key", key)
					hc[KeyBlocked] = true
					hc[KeyBlockReason] = "rate_limited"
				}
				return hc, nil
			},
		},
	}
}

func rateLimitKey(hc HookContext) string {
	if ip, ok := hc["ip"].(string); ok && ip != "" {
		return "auth:" + ip
	}
	if email, ok := hc["email"].(string); ok && email != "" {
		return "auth:" + email
	}
	return "auth:anonymous"
}
