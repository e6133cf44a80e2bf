// Package oauth builds OAuth plugin descriptors for the plugin adapter.
// The descriptors carry provider configuration only; authorization-code
// exchange and token handling are performed by the wrapped framework.
package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/plugin"
)

// Provider describes one OAuth provider handed to the wrapped framework.
type Provider struct {
	ID     string
	Name   string
	Config *oauth2.Config
}

// Google returns a Google provider descriptor.
func Google(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		ID:   "google",
		Name: "Google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// GitHub returns a GitHub provider descriptor.
func GitHub(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		ID:   "github",
		Name: "GitHub",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

// Discord returns a Discord provider descriptor.
func Discord(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		ID:   "discord",
		Name: "Discord",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
			Scopes: []string{"identify", "email"},
		},
	}
}

// New builds the tagged plugin spec from provider descriptors.
func New(providers ...Provider) *plugin.Spec {
	return &plugin.Spec{
		Kind: plugin.KindOAuth,
		Name: "oauth",
		Config: map[string]interface{}{
			"providers": providers,
		},
		Init: func(ctx context.Context, fw core.Framework) error {
			for _, p := range providers {
				if p.Config == nil || p.Config.ClientID == "" {
					return fmt.Errorf("oauth provider %q missing client credentials", p.ID)
				}
			}
			return nil
		},
	}
}

// Loose builds the legacy loose-map shape for the structural-sniffing
// ingestion path.
func Loose(providers ...Provider) map[string]interface{} {
	return map[string]interface{}{
		"name":      "oauth",
		"providers": providers,
	}
}
