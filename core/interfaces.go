package core

import (
	"context"
	"net/http"
	"time"
)

// Framework is the contract of the wrapped authentication framework. All
// credential verification, session issuance, and token cryptography live
// behind this interface; the adapter only forwards to it.
type Framework interface {
	// Handler processes an auth HTTP request and produces a response.
	Handler(ctx context.Context, req *http.Request) (*http.Response, error)

	SignInEmail(ctx context.Context, params *SignInParams) (*AuthResult, error)
	SignUpEmail(ctx context.Context, params *SignUpParams) (*AuthResult, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*Session, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// Close releases framework resources.
	Close() error
}

// FrameworkFactory constructs a wrapped framework instance from the final,
// transformed configuration.
type FrameworkFactory func(cfg *Config) (Framework, error)

// Storage defines the opaque persistence contract handed to the wrapped
// framework through the database descriptor.
type Storage interface {
	// CRUD operations
	Create(ctx context.Context, model string, data map[string]interface{}) (map[string]interface{}, error)
	FindOne(ctx context.Context, query *Query) (map[string]interface{}, error)
	FindMany(ctx context.Context, query *Query) ([]map[string]interface{}, error)
	Update(ctx context.Context, query *Query, data map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, query *Query) error
	Count(ctx context.Context, query *Query) (int64, error)

	// Connection management
	Ping(ctx context.Context) error
	Close() error

	// Metadata
	ID() string
}

// Operator type
type Operator string

const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "!="
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpIn          Operator = "IN"
)

// Query represents a storage query
type Query struct {
	Model   string
	Where   []WhereClause
	Limit   int
	Offset  int
	OrderBy []OrderBy
}

// WhereClause represents a where condition
type WhereClause struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// OrderBy represents an order by clause
type OrderBy struct {
	Field string
	Desc  bool
}

// Mailer defines the interface for sending emails. Delivery providers are
// external collaborators wired by the caller into plugin configs.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SecondaryStorage defines the interface for session secondary storage
// (Redis, etc.) used by the session-management extension.
type SecondaryStorage interface {
	Get(ctx context.Context, key string) (*Session, error)
	Set(ctx context.Context, key string, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RateLimitStorage defines the interface for rate limit counters.
type RateLimitStorage interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Hook is a function that runs before or after a request. Data is the
// payload being processed (for example *SignInParams on the sign-in path).
type Hook interface {
	Execute(ctx context.Context, data interface{}) error
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx context.Context, data interface{}) error

// Execute implements Hook.
func (f HookFunc) Execute(ctx context.Context, data interface{}) error {
	return f(ctx, data)
}
