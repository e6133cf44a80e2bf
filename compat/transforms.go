package compat

import (
	"context"

	"github.com/lanternsoft/authbridge/core"
)

const appliedMarker = "applied"

// registerBuiltinTransforms installs the version migrations shipped with
// the adapter. Each transform stamps a metadata marker and no-ops when it
// finds its own marker, so re-running the table over an already-transformed
// config is safe.
func registerBuiltinTransforms(l *Layer) {
	l.RegisterTransform(Transform{
		Name: "session-policy-split",
		From: "<1.0.0",
		To:   ">=1.0.0",
		// 1.x split session max-age into ExpiresIn/UpdateAge; configs
		// carrying only ExpiresIn get the framework's update-age default.
		Apply: func(cfg *core.Config) *core.Config {
			if marked(cfg, "session-policy-split") {
				return cfg
			}
			out := cfg.Clone()
			if out.Session != nil && out.Session.UpdateAge == 0 && out.Session.ExpiresIn != 0 {
				out.Session.UpdateAge = out.Session.ExpiresIn / 24
			}
			mark(out, "session-policy-split")
			return out
		},
	})

	l.RegisterTransform(Transform{
		Name: "trusted-origins-dedupe",
		From: "<2.0.0",
		To:   ">=2.0.0",
		// 2.x rejects duplicate trusted origins instead of ignoring them.
		Apply: func(cfg *core.Config) *core.Config {
			if marked(cfg, "trusted-origins-dedupe") {
				return cfg
			}
			out := cfg.Clone()
			if out.Advanced != nil && len(out.Advanced.TrustedOrigins) > 1 {
				seen := make(map[string]bool, len(out.Advanced.TrustedOrigins))
				deduped := out.Advanced.TrustedOrigins[:0]
				for _, origin := range out.Advanced.TrustedOrigins {
					if !seen[origin] {
						seen[origin] = true
						deduped = append(deduped, origin)
					}
				}
				out.Advanced.TrustedOrigins = deduped
			}
			mark(out, "trusted-origins-dedupe")
			return out
		},
	})
}

func marked(cfg *core.Config, name string) bool {
	return cfg.Metadata != nil && cfg.Metadata["compat.transform."+name] == appliedMarker
}

func mark(cfg *core.Config, name string) {
	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]string)
	}
	cfg.Metadata["compat.transform."+name] = appliedMarker
}

// signInNormalizer returns the synthetic before-request hook injected by
// WrapConfig. It treats a username field as an email alias when the email
// is absent, matching older client payload shapes.
func signInNormalizer() core.Hook {
	return core.HookFunc(func(ctx context.Context, data interface{}) error {
		params, ok := data.(*core.SignInParams)
		if !ok {
			return nil
		}
		if params.Email == "" && params.Username != "" {
			params.Email = params.Username
		}
		return nil
	})
}
