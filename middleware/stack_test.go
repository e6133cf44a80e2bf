package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lanternsoft/authbridge/core"
)

func newTestStack() *Stack {
	return NewStack(core.NewNoopLogger())
}

func named(name string, priority int, before, after HookFn) Middleware {
	return Middleware{Name: name, Priority: priority, Enabled: true, Before: before, After: after}
}

func TestBeforeHooksRunInAscendingPriority(t *testing.T) {
	s := newTestStack()
	var order []string
	record := func(name string) HookFn {
		return func(ctx context.Context, mc *Context) error {
			order = append(order, name)
			return nil
		}
	}

	// Added out of order on purpose.
	s.Add(named("five", 5, record("five"), nil))
	s.Add(named("one", 1, record("one"), nil))
	s.Add(named("ten", 10, record("ten"), nil))

	if _, err := s.ProcessConfig(context.Background(), &core.Config{}); err != nil {
		t.Fatalf("ProcessConfig failed: %v", err)
	}

	want := []string{"one", "five", "ten"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestAfterHooksRunInDescendingPriority(t *testing.T) {
	s := newTestStack()
	var order []string
	record := func(name string) HookFn {
		return func(ctx context.Context, mc *Context) error {
			order = append(order, name)
			return nil
		}
	}

	s.Add(named("five", 5, nil, record("five")))
	s.Add(named("one", 1, nil, record("one")))
	s.Add(named("ten", 10, nil, record("ten")))

	if _, err := s.ProcessResponse(context.Background(), nil, nil); err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}

	want := []string{"ten", "five", "one"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestEqualPriorityKeepsInsertionOrder(t *testing.T) {
	s := newTestStack()
	var order []string
	record := func(name string) HookFn {
		return func(ctx context.Context, mc *Context) error {
			order = append(order, name)
			return nil
		}
	}

	s.Add(named("a", 5, record("a"), nil))
	s.Add(named("b", 5, record("b"), nil))

	if _, err := s.ProcessConfig(context.Background(), &core.Config{}); err != nil {
		t.Fatalf("ProcessConfig failed: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("expected stable insertion order, got %v", order)
	}
}

func TestConfigHookErrorAborts(t *testing.T) {
	s := newTestStack()
	boom := errors.New("boom")
	var ran []string

	s.Add(named("first", 1, func(ctx context.Context, mc *Context) error {
		ran = append(ran, "first")
		return boom
	}, nil))
	s.Add(named("second", 2, func(ctx context.Context, mc *Context) error {
		ran = append(ran, "second")
		return nil
	}, nil))

	_, err := s.ProcessConfig(context.Background(), &core.Config{})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
	if !strings.Contains(err.Error(), "first") {
		t.Errorf("error should name the middleware, got %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("expected fail-fast, but ran %v", ran)
	}
}

func TestDisabledMiddlewareSkipped(t *testing.T) {
	s := newTestStack()
	called := false
	s.Add(Middleware{
		Name:    "off",
		Enabled: false,
		Before: func(ctx context.Context, mc *Context) error {
			called = true
			return nil
		},
	})

	if _, err := s.ProcessConfig(context.Background(), &core.Config{}); err != nil {
		t.Fatalf("ProcessConfig failed: %v", err)
	}
	if called {
		t.Error("disabled middleware was invoked")
	}
}

func TestProcessRequestUnmodifiedReturnsOriginal(t *testing.T) {
	s := newTestStack()
	s.Add(named("peek", 1, func(ctx context.Context, mc *Context) error {
		_ = mc.Request.Headers.Get("X-Anything")
		return nil
	}, nil))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	out, err := s.ProcessRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}
	if out != req {
		t.Error("expected the original request back when no hook mutated it")
	}
}

func TestProcessRequestRebuildsOnHeaderMutation(t *testing.T) {
	s := newTestStack()
	s.Add(named("cors", 1, func(ctx context.Context, mc *Context) error {
		mc.Request.SetHeader("Access-Control-Allow-Origin", "https://app.example.com")
		return nil
	}, nil))

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"a@b.c"}`))
	out, err := s.ProcessRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}
	if out == req {
		t.Fatal("expected a rebuilt request")
	}
	if got := out.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("rebuilt request missing header, got %q", got)
	}
	body, _ := io.ReadAll(out.Body)
	if string(body) != `{"email":"a@b.c"}` {
		t.Errorf("rebuilt request lost body: %q", body)
	}
}

func TestProcessRequestRebuildsOnBodyMutation(t *testing.T) {
	s := newTestStack()
	s.Add(named("rewrite", 1, func(ctx context.Context, mc *Context) error {
		mc.Request.SetBody([]byte(`{"rewritten":true}`))
		return nil
	}, nil))

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader("{}"))
	out, err := s.ProcessRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}
	body, _ := io.ReadAll(out.Body)
	if string(body) != `{"rewritten":true}` {
		t.Errorf("expected rewritten body, got %q", body)
	}
	if out.ContentLength != int64(len(`{"rewritten":true}`)) {
		t.Errorf("content length not updated: %d", out.ContentLength)
	}
}

func TestProcessResponseErrorHandlerRewrite(t *testing.T) {
	s := newTestStack()
	cfg := &core.Config{Advanced: &core.AdvancedConfig{Logger: core.NewNoopLogger()}}
	s.Initialize(cfg)

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte("partial"))),
	}
	out, err := s.ProcessResponse(context.Background(), resp, errors.New("backend exploded"))
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	if out.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 rewrite, got %d", out.StatusCode)
	}
	if ct := out.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	body, _ := io.ReadAll(out.Body)
	if !strings.Contains(string(body), "internal_server_error") {
		t.Errorf("expected generic error body, got %q", body)
	}
}

func TestInitializeSeedsBuiltinsOnce(t *testing.T) {
	s := newTestStack()
	cfg := &core.Config{Advanced: &core.AdvancedConfig{Logger: core.NewNoopLogger()}}

	s.Initialize(cfg)
	first := len(s.Names())
	s.Initialize(cfg)

	if len(s.Names()) != first {
		t.Errorf("second Initialize duplicated built-ins: %v", s.Names())
	}
	if s.Get(NameErrorHandler) == nil {
		t.Error("expected error handler built-in")
	}
	if s.Get(NameCORS) == nil {
		t.Error("expected cors built-in")
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := newTestStack()
	s.Add(named("only", 1, nil, nil))
	s.Remove("missing")
	if len(s.Names()) != 1 {
		t.Errorf("remove of absent name changed the stack: %v", s.Names())
	}
	s.Remove("only")
	if len(s.Names()) != 0 {
		t.Errorf("expected empty stack, got %v", s.Names())
	}
}

func TestCleanupClearsStack(t *testing.T) {
	s := newTestStack()
	var cleaned []string
	s.Add(named("a", 1, nil, func(ctx context.Context, mc *Context) error {
		if mc.Type == TypeCleanup {
			cleaned = append(cleaned, "a")
		}
		return nil
	}))
	s.Add(named("b", 2, nil, func(ctx context.Context, mc *Context) error {
		if mc.Type == TypeCleanup {
			cleaned = append(cleaned, "b")
		}
		return nil
	}))

	s.Cleanup(context.Background())

	if len(cleaned) != 2 || cleaned[0] != "b" || cleaned[1] != "a" {
		t.Errorf("expected reverse-order cleanup, got %v", cleaned)
	}
	if len(s.Names()) != 0 {
		t.Errorf("expected empty stack after cleanup, got %v", s.Names())
	}
}
