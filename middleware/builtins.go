package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lanternsoft/authbridge/core"
)

// Built-in middleware names.
const (
	NameRequestLogger   = "request-logger"
	NameCORS            = "cors"
	NameSecurityHeaders = "security-headers"
	NameErrorHandler    = "error-handler"
)

// seedBuiltins installs the built-in entries. Priorities leave room for
// caller middleware to run before or between them.
func seedBuiltins(s *Stack, cfg *core.Config) {
	logger := cfg.LoggerOrDefault()

	var origins []string
	if cfg.Advanced != nil {
		origins = cfg.Advanced.TrustedOrigins
	}

	s.Add(requestLogger(logger))
	s.Add(corsHeaders(origins))
	s.Add(securityHeaders())
	s.Add(errorHandler(logger))
}

func requestLogger(logger core.Logger) Middleware {
	return Middleware{
		Name:     NameRequestLogger,
		Priority: 0,
		Enabled:  true,
		Before: func(ctx context.Context, mc *Context) error {
			if mc.Type == TypeRequest {
				logger.Info("request", "method", mc.Request.Method, "path", mc.Request.Path)
			}
			return nil
		},
		After: func(ctx context.Context, mc *Context) error {
			if mc.Type == TypeResponse {
				logger.Info("response", "status", mc.Response.Status)
			}
			return nil
		},
	}
}

func corsHeaders(trustedOrigins []string) Middleware {
	allowed := "*"
	if len(trustedOrigins) > 0 {
		allowed = trustedOrigins[0]
	}
	return Middleware{
		Name:     NameCORS,
		Priority: 10,
		Enabled:  true,
		After: func(ctx context.Context, mc *Context) error {
			if mc.Type != TypeResponse {
				return nil
			}
			origin := allowed
			if len(trustedOrigins) > 0 && mc.Response.Original != nil && mc.Response.Original.Request != nil {
				reqOrigin := mc.Response.Original.Request.Header.Get("Origin")
				for _, o := range trustedOrigins {
					if o == reqOrigin {
						origin = reqOrigin
						break
					}
				}
			}
			mc.Response.SetHeader("Access-Control-Allow-Origin", origin)
			mc.Response.SetHeader("Access-Control-Allow-Credentials", "true")
			return nil
		},
	}
}

func securityHeaders() Middleware {
	return Middleware{
		Name:     NameSecurityHeaders,
		Priority: 20,
		Enabled:  true,
		After: func(ctx context.Context, mc *Context) error {
			if mc.Type != TypeResponse {
				return nil
			}
			mc.Response.SetHeader("X-Content-Type-Options", "nosniff")
			mc.Response.SetHeader("X-Frame-Options", "DENY")
			mc.Response.SetHeader("Referrer-Policy", "strict-origin-when-cross-origin")
			return nil
		},
	}
}

// errorHandler rewrites failed responses to a generic JSON payload so
// internal error details never leak past the error message.
func errorHandler(logger core.Logger) Middleware {
	return Middleware{
		Name:     NameErrorHandler,
		Priority: 100,
		Enabled:  true,
		After: func(ctx context.Context, mc *Context) error {
			if mc.Type != TypeResponse || mc.Err == nil {
				return nil
			}
			logger.Error("request failed", "error", mc.Err)
			body, _ := json.Marshal(map[string]string{
				"error":     "internal_server_error",
				"message":   mc.Err.Error(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			mc.Response.SetStatus(http.StatusInternalServerError)
			mc.Response.SetHeader("Content-Type", "application/json")
			mc.Response.SetBody(body)
			return nil
		},
	}
}
