package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/extension"
	"github.com/lanternsoft/authbridge/middleware"
	"github.com/lanternsoft/authbridge/plugin"
	"github.com/lanternsoft/authbridge/storage/memory"
)

// fakeFramework is a hand-rolled core.Framework double recording calls.
type fakeFramework struct {
	cfg        *core.Config
	signIns    []*core.SignInParams
	closed     bool
	handler    func(ctx context.Context, req *http.Request) (*http.Response, error)
	signInErr  error
	sessions   map[string]*core.Session
	signOutTok string
}

func newFakeFramework(cfg *core.Config) *fakeFramework {
	return &fakeFramework{cfg: cfg, sessions: make(map[string]*core.Session)}
}

func (f *fakeFramework) Handler(ctx context.Context, req *http.Request) (*http.Response, error) {
	if f.handler != nil {
		return f.handler(ctx, req)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte("ok"))),
		Request:    req,
	}, nil
}

func (f *fakeFramework) SignInEmail(ctx context.Context, params *core.SignInParams) (*core.AuthResult, error) {
	f.signIns = append(f.signIns, params)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	session := &core.Session{ID: "sess-1", UserID: "user-1", Token: "tok-1"}
	f.sessions[session.Token] = session
	return &core.AuthResult{
		User:    &core.User{ID: "user-1", Email: params.Email},
		Session: session,
		Token:   session.Token,
	}, nil
}

func (f *fakeFramework) SignUpEmail(ctx context.Context, params *core.SignUpParams) (*core.AuthResult, error) {
	return &core.AuthResult{User: &core.User{ID: "user-2", Email: params.Email}}, nil
}

func (f *fakeFramework) SignOut(ctx context.Context, token string) error {
	f.signOutTok = token
	delete(f.sessions, token)
	return nil
}

func (f *fakeFramework) GetSession(ctx context.Context, token string) (*core.Session, error) {
	return f.sessions[token], nil
}

func (f *fakeFramework) VerifyEmail(ctx context.Context, token string) error { return nil }

func (f *fakeFramework) ForgetPassword(ctx context.Context, email string) error { return nil }

func (f *fakeFramework) ResetPassword(ctx context.Context, token, pw string) error { return nil }

func (f *fakeFramework) UpdatePassword(ctx context.Context, id, cur, nw string) error { return nil }

func (f *fakeFramework) Close() error {
	f.closed = true
	return nil
}

func testConfig() *core.Config {
	return &core.Config{
		Secret:  "test-secret",
		BaseURL: "https://example.com",
		Database: &core.DatabaseConfig{
			Provider: "memory",
			Storage:  memory.New(),
		},
		Advanced: &core.AdvancedConfig{Logger: core.NewNoopLogger()},
	}
}

func newTestAdapter(t *testing.T, opts ...Option) *Adapter {
	t.Helper()
	base := []Option{
		WithConfig(testConfig()),
		WithFactory(func(cfg *core.Config) (core.Framework, error) {
			return newFakeFramework(cfg), nil
		}),
		WithFrameworkVersion("1.2.0"),
		WithLogger(core.NewNoopLogger()),
	}
	return New(append(base, opts...)...)
}

func TestInitializeWithoutPlugins(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if !a.Initialized() {
		t.Error("expected initialized adapter")
	}
	if a.Instance() == nil {
		t.Error("expected a constructed framework instance")
	}
	if got := len(a.PluginAdapter().Plugins()); got != 0 {
		t.Errorf("expected no plugins, got %d", got)
	}
	if a.CompatibilityLayer() == nil {
		t.Error("expected compatibility layer after init")
	}
}

func TestInitializeTwiceIsNoop(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	first := a.Instance()

	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if a.Instance() != first {
		t.Error("second Initialize replaced the instance")
	}
}

func TestInitializeRequiresFactory(t *testing.T) {
	a := New(
		WithConfig(testConfig()),
		WithLogger(core.NewNoopLogger()),
	)
	err := a.Initialize(context.Background())
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error without factory, got %v", err)
	}
	if a.Initialized() {
		t.Error("adapter must stay uninitialized after failure")
	}
}

func TestInitializePluginDependencyOrder(t *testing.T) {
	var order []string
	mk := func(name string, deps []string) *plugin.Plugin {
		return &plugin.Plugin{
			Name:         name,
			Dependencies: deps,
			Init: func(ctx context.Context, fw core.Framework) error {
				order = append(order, name)
				return nil
			},
		}
	}

	cfg := testConfig()
	cfg.Plugins = []interface{}{mk("b", []string{"a"}), mk("a", nil)}

	a := newTestAdapter(t, WithConfig(cfg))
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("expected a before b, got %v", order)
	}
}

func TestInitializeRollsBackOnPluginFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Plugins = []interface{}{&plugin.Plugin{
		Name: "broken",
		Init: func(ctx context.Context, fw core.Framework) error {
			return errors.New("refused")
		},
	}}

	a := newTestAdapter(t, WithConfig(cfg))
	err := a.Initialize(context.Background())
	if !errors.Is(err, core.ErrPluginInit) {
		t.Fatalf("expected plugin init error, got %v", err)
	}
	if a.Initialized() {
		t.Error("adapter must roll back to uninitialized")
	}
	if a.Instance() != nil {
		t.Error("rolled-back adapter still exposes an instance")
	}
}

func TestSignInNormalizesUsernameAlias(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	fw := a.Instance().(*fakeFramework)

	_, err := a.Wrapper().SignIn(context.Background(), &core.SignInParams{
		Username: "user@example.com",
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if len(fw.signIns) != 1 {
		t.Fatalf("expected one framework sign-in, got %d", len(fw.signIns))
	}
	if fw.signIns[0].Email != "user@example.com" {
		t.Errorf("username alias not normalized, framework saw %q", fw.signIns[0].Email)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}
func (denyAllLimiter) Reset(ctx context.Context, key string) error { return nil }

func TestSignInRejectedWhenRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Extensions = &core.ExtensionsConfig{EnableBuiltins: true}
	cfg.RateLimit = &core.RateLimitConfig{Enabled: core.Bool(true), Storage: denyAllLimiter{}}

	a := newTestAdapter(t, WithConfig(cfg))
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	fw := a.Instance().(*fakeFramework)

	_, err := a.Wrapper().SignIn(context.Background(), &core.SignInParams{
		Email:    "a@b.c",
		Password: "pw",
	})
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("expected rate limit rejection, got %v", err)
	}
	if len(fw.signIns) != 0 {
		t.Error("framework sign-in must not run for blocked requests")
	}
}

func TestHandleRequestAppliesResponseMiddleware(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	resp, err := a.Wrapper().HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers middleware did not run")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("cors middleware did not run")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("response body lost through the pipeline: %q", body)
	}
}

func TestHandleRequestCustomBeforeMiddleware(t *testing.T) {
	a := newTestAdapter(t)
	a.AddMiddleware(middleware.Middleware{
		Name:     "origin-stamp",
		Priority: 1,
		Enabled:  true,
		Before: func(ctx context.Context, mc *middleware.Context) error {
			if mc.Type == middleware.TypeRequest {
				mc.Request.SetHeader("Access-Control-Allow-Origin", "https://app.example.com")
			}
			return nil
		},
	})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var seen string
	a.Instance().(*fakeFramework).handler = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("Access-Control-Allow-Origin")
		return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	if _, err := a.Wrapper().HandleRequest(context.Background(), req); err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if seen != "https://app.example.com" {
		t.Errorf("framework did not see the stamped header, got %q", seen)
	}
}

func TestHandleRequestErrorRewrittenTo500(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	a.Instance().(*fakeFramework).handler = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, errors.New("backend exploded")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
	resp, err := a.Wrapper().HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("expected rewritten response, got error %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestRegisterPluginBeforeInitializeFails(t *testing.T) {
	a := newTestAdapter(t)
	err := a.RegisterPlugin(context.Background(), &plugin.Plugin{
		Name: "late",
		Init: func(ctx context.Context, fw core.Framework) error { return nil },
	})
	if !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}

func TestRegisterPluginAndExtensionAfterInitialize(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	initCalled := false
	err := a.RegisterPlugin(context.Background(), &plugin.Plugin{
		Name: "late",
		Init: func(ctx context.Context, fw core.Framework) error {
			initCalled = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RegisterPlugin failed: %v", err)
	}
	if !initCalled {
		t.Error("runtime plugin not initialized")
	}

	err = a.RegisterExtension(context.Background(), &extension.Extension{
		Name: "late-ext",
		Hooks: map[string]extension.HookFn{
			extension.HookAfterAuth: func(ctx context.Context, hc extension.HookContext) (extension.HookContext, error) {
				return hc, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("RegisterExtension failed: %v", err)
	}
	if a.ExtensionManager().Get("late-ext") == nil {
		t.Error("runtime extension not registered")
	}
}

func TestShutdown(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	fw := a.Instance().(*fakeFramework)

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !fw.closed {
		t.Error("framework instance not closed")
	}
	if a.Initialized() {
		t.Error("adapter still initialized after shutdown")
	}
	if a.Instance() != nil {
		t.Error("instance still exposed after shutdown")
	}

	// Shutting down twice is harmless.
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown failed: %v", err)
	}
}

func TestInitializeRollbackClearsExtensions(t *testing.T) {
	ok := &extension.Extension{
		Name: "ok-ext",
		Hooks: map[string]extension.HookFn{
			extension.HookAfterAuth: func(ctx context.Context, hc extension.HookContext) (extension.HookContext, error) {
				return hc, nil
			},
		},
	}
	bad := &extension.Extension{
		Name: "bad-ext",
		Init: func(ctx context.Context) error { return errors.New("refused") },
	}

	a := newTestAdapter(t, WithExtensions(ok, bad))
	if err := a.Initialize(context.Background()); err == nil {
		t.Fatal("expected Initialize to fail on the broken extension")
	}
	if a.Initialized() {
		t.Error("adapter must roll back to uninitialized")
	}
	if a.ExtensionManager().Get("ok-ext") != nil {
		t.Error("extension registered before the failure survived the rollback")
	}
	if got := a.ExtensionManager().HookCount(extension.HookAfterAuth); got != 0 {
		t.Errorf("expected no hooks after rollback, got %d", got)
	}
	if a.CompatibilityLayer() != nil {
		t.Error("compatibility layer still exposed after rollback")
	}
}

func TestShutdownClearsExtensions(t *testing.T) {
	ext := &extension.Extension{
		Name: "audit",
		Hooks: map[string]extension.HookFn{
			extension.HookAfterAuth: func(ctx context.Context, hc extension.HookContext) (extension.HookContext, error) {
				return hc, nil
			},
		},
	}

	a := newTestAdapter(t, WithExtensions(ext))
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if a.ExtensionManager().Get("audit") == nil {
		t.Fatal("extension not registered during Initialize")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if a.ExtensionManager().Get("audit") != nil {
		t.Error("extension still registered after Shutdown")
	}
	if got := a.ExtensionManager().HookCount(extension.HookAfterAuth); got != 0 {
		t.Errorf("expected no hooks after Shutdown, got %d", got)
	}
	if a.CompatibilityLayer() != nil {
		t.Error("compatibility layer still exposed after Shutdown")
	}
}

func TestWrapperMethodsGuardUninitialized(t *testing.T) {
	w := NewWrapper(nil, middleware.NewStack(core.NewNoopLogger()), extension.NewManager(core.NewNoopLogger()), core.NewNoopLogger())

	if _, err := w.GetSession(context.Background(), "tok"); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("GetSession: expected guard error, got %v", err)
	}
	if err := w.SignOut(context.Background(), "tok"); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("SignOut: expected guard error, got %v", err)
	}
	if _, err := w.SignIn(context.Background(), &core.SignInParams{}); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("SignIn: expected guard error, got %v", err)
	}
}

func TestConfigMetadataStampedByCompatLayer(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cfg := a.Wrapper().Config()
	if cfg.Metadata["compat.frameworkVersion"] != "1.2.0" {
		t.Errorf("expected framework version stamp, got %q", cfg.Metadata["compat.frameworkVersion"])
	}
	if cfg.Metadata["compat.adapterVersion"] == "" {
		t.Error("expected adapter version stamp")
	}
}
