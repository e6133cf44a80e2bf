// Package middleware provides the priority-ordered before/after pipeline
// applied around configuration building and request/response handling.
//
// The pipeline is strict: a hook error aborts the in-flight operation and
// propagates to the caller. Contrast with extension hook chains, which are
// resilient by design.
package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/lanternsoft/authbridge/core"
)

// Context type markers threaded through hooks.
const (
	TypeConfig   = "config"
	TypeRequest  = "request"
	TypeResponse = "response"
	TypePostInit = "post-init"
	TypeCleanup  = "cleanup"
)

// Context is the mutable payload threaded through middleware hooks. Which
// fields are set depends on Type.
type Context struct {
	Type     string
	Config   *core.Config
	Request  *RequestContext
	Response *ResponseContext
	Instance core.Framework
	Err      error
}

// RequestContext is the mutable view of an inbound request.
type RequestContext struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Original *http.Request

	modified bool
}

// SetHeader sets a request header and marks the request modified.
func (rc *RequestContext) SetHeader(key, value string) {
	rc.Headers.Set(key, value)
	rc.modified = true
}

// SetBody replaces the request body and marks the request modified.
func (rc *RequestContext) SetBody(body []byte) {
	rc.Body = body
	rc.modified = true
}

// Modified reports whether a hook mutated headers or body.
func (rc *RequestContext) Modified() bool {
	return rc.modified
}

// ResponseContext is the mutable view of an outbound response.
type ResponseContext struct {
	Status   int
	Headers  http.Header
	Body     []byte
	Original *http.Response

	modified bool
}

// SetHeader sets a response header and marks the response modified.
func (rc *ResponseContext) SetHeader(key, value string) {
	rc.Headers.Set(key, value)
	rc.modified = true
}

// SetStatus replaces the response status and marks the response modified.
func (rc *ResponseContext) SetStatus(status int) {
	rc.Status = status
	rc.modified = true
}

// SetBody replaces the response body and marks the response modified.
func (rc *ResponseContext) SetBody(body []byte) {
	rc.Body = body
	rc.modified = true
}

// Modified reports whether a hook mutated the response.
func (rc *ResponseContext) Modified() bool {
	return rc.modified
}

// HookFn is a middleware hook. Returning an error aborts the pipeline.
type HookFn func(ctx context.Context, mc *Context) error

// Middleware is a named pipeline entry. Before hooks run in ascending
// priority order; After hooks run in descending order (stack unwind).
type Middleware struct {
	Name     string
	Priority int
	Enabled  bool
	Before   HookFn
	After    HookFn
}

// Stack is the ordered middleware pipeline.
type Stack struct {
	entries     []Middleware
	logger      core.Logger
	initialized bool
}

// NewStack creates an empty middleware stack.
func NewStack(logger core.Logger) *Stack {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Stack{logger: logger}
}

// Add inserts a middleware and re-sorts by ascending priority. The sort is
// stable, so entries with equal priority keep insertion order.
func (s *Stack) Add(m Middleware) {
	s.entries = append(s.entries, m)
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Priority < s.entries[j].Priority
	})
}

// Remove removes a middleware by name. Removing an absent name is a no-op.
func (s *Stack) Remove(name string) {
	for i, m := range s.entries {
		if m.Name == name {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Get returns the named middleware, or nil.
func (s *Stack) Get(name string) *Middleware {
	for i := range s.entries {
		if s.entries[i].Name == name {
			return &s.entries[i]
		}
	}
	return nil
}

// Names returns middleware names in pipeline (ascending priority) order.
func (s *Stack) Names() []string {
	names := make([]string, len(s.entries))
	for i, m := range s.entries {
		names[i] = m.Name
	}
	return names
}

// Initialize seeds the built-in middlewares (CORS, security headers,
// request logger, error handler) alongside any caller-added entries.
// Calling it twice is a no-op; built-ins are never duplicated.
func (s *Stack) Initialize(cfg *core.Config) {
	if s.initialized {
		s.logger.Debug("middleware: already initialized, skipping built-in seed")
		return
	}
	seedBuiltins(s, cfg)
	s.initialized = true
}

// Initialized reports whether built-ins were seeded.
func (s *Stack) Initialized() bool {
	return s.initialized
}

// ProcessConfig threads the config through every enabled Before hook in
// ascending priority order and returns the final config.
func (s *Stack) ProcessConfig(ctx context.Context, cfg *core.Config) (*core.Config, error) {
	mc := &Context{Type: TypeConfig, Config: cfg}
	for _, m := range s.entries {
		if !m.Enabled || m.Before == nil {
			continue
		}
		if err := m.Before(ctx, mc); err != nil {
			return nil, fmt.Errorf("middleware %q config hook: %w", m.Name, err)
		}
	}
	return mc.Config, nil
}

// ProcessRequest runs Before hooks in ascending priority order over a
// mutable request context. A new request is constructed only when a hook
// mutated headers or body; otherwise the original is returned untouched.
func (s *Stack) ProcessRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	rc := &RequestContext{
		Method:   req.Method,
		Path:     req.URL.Path,
		Headers:  req.Header.Clone(),
		Original: req,
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("middleware: read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		rc.Body = body
	}

	mc := &Context{Type: TypeRequest, Request: rc}
	for _, m := range s.entries {
		if !m.Enabled || m.Before == nil {
			continue
		}
		if err := m.Before(ctx, mc); err != nil {
			return nil, fmt.Errorf("middleware %q request hook: %w", m.Name, err)
		}
	}

	if !rc.modified {
		return req, nil
	}

	out := req.Clone(ctx)
	out.Header = rc.Headers
	if rc.Body != nil {
		out.Body = io.NopCloser(bytes.NewReader(rc.Body))
		out.ContentLength = int64(len(rc.Body))
	}
	return out, nil
}

// ProcessResponse runs After hooks in descending priority order (stack
// unwind) over a mutable response context. handlerErr, when non-nil, is
// surfaced to hooks via the context so an error-handler entry can rewrite
// the response.
func (s *Stack) ProcessResponse(ctx context.Context, resp *http.Response, handlerErr error) (*http.Response, error) {
	rc := &ResponseContext{Original: resp}
	if resp != nil {
		rc.Status = resp.StatusCode
		rc.Headers = resp.Header.Clone()
		if resp.Body != nil {
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("middleware: read response body: %w", err)
			}
			resp.Body = io.NopCloser(bytes.NewReader(body))
			rc.Body = body
		}
	} else {
		rc.Headers = make(http.Header)
	}

	mc := &Context{Type: TypeResponse, Response: rc, Err: handlerErr}
	for i := len(s.entries) - 1; i >= 0; i-- {
		m := s.entries[i]
		if !m.Enabled || m.After == nil {
			continue
		}
		if err := m.After(ctx, mc); err != nil {
			return nil, fmt.Errorf("middleware %q response hook: %w", m.Name, err)
		}
	}

	if !rc.modified {
		return resp, nil
	}

	out := &http.Response{
		StatusCode: rc.Status,
		Status:     http.StatusText(rc.Status),
		Header:     rc.Headers,
		Body:       io.NopCloser(bytes.NewReader(rc.Body)),
	}
	if resp != nil {
		out.Proto = resp.Proto
		out.ProtoMajor = resp.ProtoMajor
		out.ProtoMinor = resp.ProtoMinor
		out.Request = resp.Request
	}
	out.ContentLength = int64(len(rc.Body))
	return out, nil
}

// PostInitialize fires After hooks once, in descending priority order,
// after the wrapped framework instance is constructed.
func (s *Stack) PostInitialize(ctx context.Context, instance core.Framework) error {
	mc := &Context{Type: TypePostInit, Instance: instance}
	for i := len(s.entries) - 1; i >= 0; i-- {
		m := s.entries[i]
		if !m.Enabled || m.After == nil {
			continue
		}
		if err := m.After(ctx, mc); err != nil {
			return fmt.Errorf("middleware %q post-init hook: %w", m.Name, err)
		}
	}
	return nil
}

// Cleanup fires every middleware's After hook with a cleanup context, then
// clears the list entirely. The stack is empty afterward; this is the
// shutdown path.
func (s *Stack) Cleanup(ctx context.Context) {
	mc := &Context{Type: TypeCleanup}
	for i := len(s.entries) - 1; i >= 0; i-- {
		m := s.entries[i]
		if !m.Enabled || m.After == nil {
			continue
		}
		if err := m.After(ctx, mc); err != nil {
			s.logger.Warn("middleware cleanup hook failed", "middleware", m.Name, "error", err)
		}
	}
	s.entries = nil
	s.initialized = false
}
