package core

import (
	"time"
)

// User represents an authenticated user as surfaced by the wrapped framework.
type User struct {
	ID            string                 `json:"id"`
	Email         string                 `json:"email"`
	EmailVerified bool                   `json:"emailVerified"`
	Name          string                 `json:"name,omitempty"`
	Image         string                 `json:"image,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Fields        map[string]interface{} `json:"-"` // Custom fields from plugins
}

// Session represents a user session issued by the wrapped framework.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account represents an authentication account (email, OAuth, etc.)
type Account struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	AccountID    string     `json:"accountId"`
	Provider     string     `json:"provider"`
	ProviderType string     `json:"providerType"` // "oauth", "email", "credential"
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// SignInParams holds sign-in arguments forwarded to the wrapped framework.
// Username is accepted as an alias for Email; the compatibility layer
// injects a hook that normalizes it before the framework sees the payload.
type SignInParams struct {
	Email      string `json:"email"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// SignUpParams holds sign-up arguments forwarded to the wrapped framework.
type SignUpParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResult is the outcome of a sign-in or sign-up call.
type AuthResult struct {
	User    *User    `json:"user,omitempty"`
	Session *Session `json:"session,omitempty"`
	Token   string   `json:"token,omitempty"`
}
