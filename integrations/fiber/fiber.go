// Package fiber mounts the bridge on a Fiber application. Fiber runs on
// fasthttp, so requests and responses are converted to their net/http
// shapes before crossing the bridge.
package fiber

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lanternsoft/authbridge/bridge"
	"github.com/lanternsoft/authbridge/core"
)

// Mount returns a Fiber handler that forwards requests through the
// bridge's middleware stack to the wrapped framework's handler.
func Mount(a *bridge.Adapter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := newRequestAdapter(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_request",
				"message": err.Error(),
			})
		}

		resp, err := a.Wrapper().HandleRequest(c.Context(), req)
		if err != nil {
			return writeError(c, err)
		}
		return writeResponse(c, resp)
	}
}

// RegisterRoutes mounts the forwarding handler on the /auth prefix.
func RegisterRoutes(app *fiber.App, a *bridge.Adapter) {
	app.All("/auth/*", Mount(a))
}

// SessionMiddleware loads the session named by the configured cookie and
// stores it in Fiber locals.
func SessionMiddleware(a *bridge.Adapter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName(a))
		if token == "" {
			return c.Next()
		}

		session, err := a.Wrapper().GetSession(c.Context(), token)
		if err != nil || session == nil {
			return c.Next()
		}

		c.Locals("session", session)
		return c.Next()
	}
}

// RequireAuth redirects unauthenticated requests to the sign-in page.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetSession(c) == nil {
			return c.Redirect("/auth/signin", fiber.StatusFound)
		}
		return c.Next()
	}
}

// RequireAuthJSON rejects unauthenticated requests with a JSON error.
func RequireAuthJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetSession(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
		}
		return c.Next()
	}
}

// GetSession retrieves the session from Fiber locals.
func GetSession(c *fiber.Ctx) *core.Session {
	session, ok := c.Locals("session").(*core.Session)
	if !ok {
		return nil
	}
	return session
}

func cookieName(a *bridge.Adapter) string {
	cfg := a.Wrapper().Config()
	if cfg != nil && cfg.Session != nil && cfg.Session.CookieName != "" {
		return cfg.Session.CookieName
	}
	return "authbridge_session"
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "INTERNAL"
	var be *core.BridgeError
	if errors.As(err, &be) {
		code = be.Code
	}
	switch {
	case errors.Is(err, core.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, core.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
