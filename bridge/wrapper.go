// Package bridge composes the configuration, compatibility, middleware,
// plugin, and extension layers into a single adapter facade over the
// wrapped authentication framework.
package bridge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lanternsoft/authbridge/compat"
	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/extension"
	"github.com/lanternsoft/authbridge/middleware"
)

// Wrapper owns the constructed wrapped framework instance and exposes
// pass-through auth methods. Every method guards on a constructed instance
// and fails with core.ErrNotInitialized otherwise.
type Wrapper struct {
	compat     *compat.Layer
	stack      *middleware.Stack
	extensions *extension.Manager
	instance   core.Framework
	cfg        *core.Config
	logger     core.Logger
}

// NewWrapper creates an auth wrapper. The instance is constructed later,
// by Initialize.
func NewWrapper(layer *compat.Layer, stack *middleware.Stack, extensions *extension.Manager, logger core.Logger) *Wrapper {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Wrapper{
		compat:     layer,
		stack:      stack,
		extensions: extensions,
		logger:     logger,
	}
}

// Initialize wraps the config with compatibility shims, threads it through
// the middleware pipeline, constructs the wrapped framework instance, and
// fires post-init middleware hooks.
func (w *Wrapper) Initialize(ctx context.Context, cfg *core.Config) error {
	if w.instance != nil {
		return core.ErrAlreadyInit
	}
	if cfg.Framework == nil || cfg.Framework.Factory == nil {
		return fmt.Errorf("%w: framework factory is required", core.ErrConfiguration)
	}

	wrapped := w.compat.WrapConfig(cfg)

	processed, err := w.stack.ProcessConfig(ctx, wrapped)
	if err != nil {
		return err
	}

	instance, err := cfg.Framework.Factory(processed)
	if err != nil {
		return fmt.Errorf("framework construction: %w", err)
	}

	if err := w.stack.PostInitialize(ctx, instance); err != nil {
		instance.Close()
		return err
	}

	w.instance = instance
	w.cfg = processed
	w.logger.Info("auth wrapper initialized",
		"frameworkVersion", w.compat.WrappedVersion())
	return nil
}

// Instance returns the wrapped framework instance by reference, or nil
// before initialization.
func (w *Wrapper) Instance() core.Framework {
	return w.instance
}

// Config returns the final processed configuration.
func (w *Wrapper) Config() *core.Config {
	return w.cfg
}

func (w *Wrapper) guard() error {
	if w.instance == nil {
		return core.ErrNotInitialized
	}
	return nil
}

// runRequestHooks executes the config's before-request hooks (including the
// compatibility layer's payload normalizer) against the payload.
func (w *Wrapper) runRequestHooks(ctx context.Context, hooks []core.Hook, data interface{}) error {
	for _, h := range hooks {
		if err := h.Execute(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

// SignIn delegates an email sign-in to the wrapped framework, surrounded by
// before/after lifecycle hooks. A rate-limiting extension can block the
// call by marking the hook context.
func (w *Wrapper) SignIn(ctx context.Context, params *core.SignInParams) (*core.AuthResult, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}
	if w.cfg.Hooks != nil {
		if err := w.runRequestHooks(ctx, w.cfg.Hooks.BeforeRequest, params); err != nil {
			return nil, err
		}
	}

	hc := extension.HookContext{"event": "signIn", "email": params.Email, "ip": params.IPAddress}
	hc = w.extensions.ExecuteHooks(ctx, extension.HookBeforeAuth, hc)
	if blocked, _ := hc[extension.KeyBlocked].(bool); blocked {
		return nil, core.ErrRateLimited
	}
	w.extensions.ExecuteHooks(ctx, extension.HookBeforeSignIn, hc)

	result, err := w.instance.SignInEmail(ctx, params)

	after := extension.HookContext{"event": "signIn", "email": params.Email, "ip": params.IPAddress, "success": err == nil}
	if result != nil {
		after["session"] = result.Session
		if result.User != nil {
			after["userId"] = result.User.ID
		}
	}
	w.extensions.ExecuteHooks(ctx, extension.HookAfterSignIn, after)
	w.extensions.ExecuteHooks(ctx, extension.HookAfterAuth, after)
	return result, err
}

// SignUp delegates an email sign-up to the wrapped framework.
func (w *Wrapper) SignUp(ctx context.Context, params *core.SignUpParams) (*core.AuthResult, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}
	if w.cfg.Hooks != nil {
		if err := w.runRequestHooks(ctx, w.cfg.Hooks.BeforeRequest, params); err != nil {
			return nil, err
		}
	}

	hc := extension.HookContext{"event": "signUp", "email": params.Email}
	hc = w.extensions.ExecuteHooks(ctx, extension.HookBeforeAuth, hc)
	if blocked, _ := hc[extension.KeyBlocked].(bool); blocked {
		return nil, core.ErrRateLimited
	}
	w.extensions.ExecuteHooks(ctx, extension.HookBeforeSignUp, hc)

	result, err := w.instance.SignUpEmail(ctx, params)

	after := extension.HookContext{"event": "signUp", "email": params.Email, "success": err == nil}
	if result != nil && result.User != nil {
		after["userId"] = result.User.ID
	}
	w.extensions.ExecuteHooks(ctx, extension.HookAfterSignUp, after)
	w.extensions.ExecuteHooks(ctx, extension.HookAfterAuth, after)
	return result, err
}

// SignOut revokes a session through the wrapped framework.
func (w *Wrapper) SignOut(ctx context.Context, token string) error {
	if err := w.guard(); err != nil {
		return err
	}
	w.extensions.ExecuteHooks(ctx, extension.HookBeforeSignOut, extension.HookContext{"token": token})
	err := w.instance.SignOut(ctx, token)
	w.extensions.ExecuteHooks(ctx, extension.HookAfterSignOut, extension.HookContext{"token": token, "success": err == nil})
	return err
}

// GetSession retrieves a session through the wrapped framework.
func (w *Wrapper) GetSession(ctx context.Context, token string) (*core.Session, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}
	return w.instance.GetSession(ctx, token)
}

// VerifyEmail forwards an email verification token.
func (w *Wrapper) VerifyEmail(ctx context.Context, token string) error {
	if err := w.guard(); err != nil {
		return err
	}
	return w.instance.VerifyEmail(ctx, token)
}

// ResetPassword forwards a password reset.
func (w *Wrapper) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := w.guard(); err != nil {
		return err
	}
	return w.instance.ResetPassword(ctx, token, newPassword)
}

// ForgetPassword starts a password reset flow.
func (w *Wrapper) ForgetPassword(ctx context.Context, email string) error {
	if err := w.guard(); err != nil {
		return err
	}
	return w.instance.ForgetPassword(ctx, email)
}

// UpdatePassword forwards a password change for a signed-in user.
func (w *Wrapper) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := w.guard(); err != nil {
		return err
	}
	return w.instance.UpdatePassword(ctx, userID, currentPassword, newPassword)
}

// HandleRequest threads an HTTP request through the middleware pipeline,
// delegates to the wrapped framework's handler, and threads the response
// back out. A handler error reaching the error-handler middleware is
// rewritten into a generic 500 response.
func (w *Wrapper) HandleRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}

	processed, err := w.stack.ProcessRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, handlerErr := w.instance.Handler(ctx, processed)

	out, err := w.stack.ProcessResponse(ctx, resp, handlerErr)
	if err != nil {
		return nil, err
	}
	if out != nil {
		return out, nil
	}
	return nil, handlerErr
}

// Shutdown closes the wrapped framework instance and clears it.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	if w.instance == nil {
		return nil
	}
	err := w.instance.Close()
	w.instance = nil
	w.cfg = nil
	return err
}
