package oauth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lanternsoft/authbridge/plugin"
)

func TestProviderConstructors(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
	}{
		{"google", Google("cid", "secret", "https://app/callback")},
		{"github", GitHub("cid", "secret", "https://app/callback")},
		{"discord", Discord("cid", "secret", "https://app/callback")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.provider.ID != tt.name {
				t.Errorf("expected id %q, got %q", tt.name, tt.provider.ID)
			}
			if tt.provider.Config.ClientID != "cid" {
				t.Errorf("client id not set")
			}
			if tt.provider.Config.Endpoint.AuthURL == "" || tt.provider.Config.Endpoint.TokenURL == "" {
				t.Error("endpoint not configured")
			}
			if len(tt.provider.Config.Scopes) == 0 {
				t.Error("expected default scopes")
			}
		})
	}
}

func TestNewSpec(t *testing.T) {
	spec := New(Google("cid", "secret", "https://app/callback"))
	if spec.Kind != plugin.KindOAuth {
		t.Errorf("expected oauth kind, got %s", spec.Kind)
	}
	if err := spec.Init(context.Background(), nil); err != nil {
		t.Errorf("valid spec init failed: %v", err)
	}

	bad := New(Provider{ID: "empty"})
	if err := bad.Init(context.Background(), nil); err == nil {
		t.Error("expected init error for provider without credentials")
	}
}

func TestLooseShapeIsSniffable(t *testing.T) {
	loose := Loose(GitHub("cid", "secret", "https://app/callback"))
	a := plugin.NewAdapter(plugin.DependencySoft, nil)
	p, err := a.Load(loose)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name != "oauth" {
		t.Errorf("expected oauth plugin, got %q", p.Name)
	}
}

func testAppleKey(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func TestAppleClientSecret(t *testing.T) {
	opts := AppleOptions{
		ClientID:   "com.example.app",
		TeamID:     "TEAM123",
		KeyID:      "KEY456",
		PrivateKey: testAppleKey(t),
	}

	now := time.Now()
	secret, err := AppleClientSecret(opts, now)
	if err != nil {
		t.Fatalf("AppleClientSecret failed: %v", err)
	}

	token, _, err := jwt.NewParser().ParseUnverified(secret, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("parse secret: %v", err)
	}
	if token.Header["kid"] != "KEY456" {
		t.Errorf("expected key id header, got %v", token.Header["kid"])
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["iss"] != "TEAM123" {
		t.Errorf("expected team id issuer, got %v", claims["iss"])
	}
	if claims["sub"] != "com.example.app" {
		t.Errorf("expected client id subject, got %v", claims["sub"])
	}
	if claims["aud"] != "https://appleid.apple.com" {
		t.Errorf("unexpected audience %v", claims["aud"])
	}
}

func TestAppleClientSecretRequiresCredentials(t *testing.T) {
	_, err := AppleClientSecret(AppleOptions{ClientID: "only-client"}, time.Now())
	if err == nil {
		t.Error("expected error without team id, key id and key")
	}
}

func TestAppleProvider(t *testing.T) {
	p, err := Apple(AppleOptions{
		ClientID:    "com.example.app",
		TeamID:      "TEAM123",
		KeyID:       "KEY456",
		PrivateKey:  testAppleKey(t),
		RedirectURL: "https://app/callback",
	})
	if err != nil {
		t.Fatalf("Apple failed: %v", err)
	}
	if p.ID != "apple" || p.Config.ClientSecret == "" {
		t.Errorf("expected apple provider with generated secret, got %+v", p)
	}
}
