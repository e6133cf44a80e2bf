// Package http mounts the bridge on standard net/http servers.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lanternsoft/authbridge/bridge"
	"github.com/lanternsoft/authbridge/core"
)

// Mount returns an http.Handler that forwards every request through the
// bridge's middleware stack to the wrapped framework's handler.
func Mount(a *bridge.Adapter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := a.Wrapper().HandleRequest(r.Context(), r)
		if err != nil {
			writeError(w, err)
			return
		}
		copyResponse(w, resp)
	})
}

// SessionMiddleware loads the session named by the configured cookie and
// stores it in the request context.
func SessionMiddleware(a *bridge.Adapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName(a))
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := a.Wrapper().GetSession(ctx, cookie.Value)
			if err != nil || session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(core.WithSession(ctx, session)))
		})
	}
}

// RequireAuth redirects unauthenticated requests to the sign-in page.
func RequireAuth(a *bridge.Adapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if core.GetSession(r.Context()) == nil {
				http.Redirect(w, r, "/auth/signin", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthJSON rejects unauthenticated requests with a JSON error.
func RequireAuthJSON(a *bridge.Adapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if core.GetSession(r.Context()) == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "Authentication required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cookieName(a *bridge.Adapter) string {
	cfg := a.Wrapper().Config()
	if cfg != nil && cfg.Session != nil && cfg.Session.CookieName != "" {
		return cfg.Session.CookieName
	}
	return "authbridge_session"
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(w, resp.Body)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	var be *core.BridgeError
	if errors.As(err, &be) {
		code = be.Code
	}
	switch {
	case errors.Is(err, core.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": err.Error(),
	})
}
