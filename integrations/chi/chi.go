// Package chi mounts the bridge on a Chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lanternsoft/authbridge/bridge"
	"github.com/lanternsoft/authbridge/core"
	bridgehttp "github.com/lanternsoft/authbridge/integrations/http"
)

// Handler exposes typed authentication endpoints and the catch-all
// framework route.
type Handler struct {
	adapter *bridge.Adapter
}

// NewHandler creates a Chi handler backed by the bridge.
func NewHandler(a *bridge.Adapter) *Handler {
	return &Handler{adapter: a}
}

// RegisterRoutes mounts the typed endpoints and forwards the remaining
// /auth/* paths through the bridge to the wrapped framework.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/signout", h.SignOut)
	r.Get("/auth/session", h.Session)
	r.Handle("/auth/*", bridgehttp.Mount(h.adapter))
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"rememberMe"`
}

// SignUp handles user registration.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	result, err := h.adapter.Wrapper().SignUp(r.Context(), &core.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "signup_failed",
			"message": err.Error(),
		})
		return
	}
	setSessionCookie(w, h.adapter, result.Session)
	writeJSON(w, http.StatusOK, result)
}

// SignIn handles user authentication.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	result, err := h.adapter.Wrapper().SignIn(r.Context(), &core.SignInParams{
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.Remember,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, core.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]string{
			"error":   "signin_failed",
			"message": err.Error(),
		})
		return
	}
	setSessionCookie(w, h.adapter, result.Session)
	writeJSON(w, http.StatusOK, result)
}

// SignOut revokes the current session.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(cookieName(h.adapter))
	if err == nil && cookie.Value != "" {
		_ = h.adapter.Wrapper().SignOut(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(h.adapter),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session returns the current session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	session := core.GetSession(r.Context())
	if session == nil {
		cookie, err := r.Cookie(cookieName(h.adapter))
		if err == nil && cookie.Value != "" {
			session, _ = h.adapter.Wrapper().GetSession(r.Context(), cookie.Value)
		}
	}
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "no_session",
			"message": "No active session",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"user":    core.GetUser(r.Context()),
	})
}

func setSessionCookie(w http.ResponseWriter, a *bridge.Adapter, session *core.Session) {
	if session == nil || session.Token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(a),
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieName(a *bridge.Adapter) string {
	cfg := a.Wrapper().Config()
	if cfg != nil && cfg.Session != nil && cfg.Session.CookieName != "" {
		return cfg.Session.CookieName
	}
	return "authbridge_session"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
