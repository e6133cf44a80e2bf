// Package session builds the session-tuning plugin descriptor.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/plugin"
)

// Options tunes the wrapped framework's session behavior.
type Options struct {
	ExpiresIn      time.Duration
	UpdateAge      time.Duration
	CookieName     string
	FreshnessCheck bool
	SingleSession  bool // sign-in revokes other sessions for the user
}

// New builds the tagged plugin spec.
func New(opts Options) *plugin.Spec {
	return &plugin.Spec{
		Kind: plugin.KindSession,
		Name: "session",
		Config: map[string]interface{}{
			"sessionOptions": map[string]interface{}{
				"expiresIn":      opts.ExpiresIn,
				"updateAge":      opts.UpdateAge,
				"cookieName":     opts.CookieName,
				"freshnessCheck": opts.FreshnessCheck,
				"singleSession":  opts.SingleSession,
			},
		},
		Init: func(ctx context.Context, fw core.Framework) error {
			if opts.UpdateAge > opts.ExpiresIn && opts.ExpiresIn > 0 {
				return fmt.Errorf("session: update age %s exceeds expiry %s", opts.UpdateAge, opts.ExpiresIn)
			}
			return nil
		},
	}
}

// Loose builds the legacy loose-map shape for the structural-sniffing
// ingestion path.
func Loose(opts Options) map[string]interface{} {
	spec := New(opts)
	return map[string]interface{}{
		"name":           spec.Name,
		"sessionOptions": spec.Config["sessionOptions"],
	}
}
