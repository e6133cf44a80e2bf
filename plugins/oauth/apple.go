package oauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// AppleOptions carries the Sign in with Apple credentials. Apple does not
// issue static client secrets; the secret is a short-lived ES256 JWT signed
// with the developer's private key.
type AppleOptions struct {
	ClientID    string // services identifier
	TeamID      string
	KeyID       string
	PrivateKey  string // PEM-encoded EC private key
	RedirectURL string
}

// appleSecretTTL is the maximum lifetime Apple accepts for a client secret.
const appleSecretTTL = 180 * 24 * time.Hour

// Apple returns an Apple provider descriptor with a freshly generated
// client secret.
func Apple(opts AppleOptions) (Provider, error) {
	secret, err := AppleClientSecret(opts, time.Now())
	if err != nil {
		return Provider{}, err
	}
	return Provider{
		ID:   "apple",
		Name: "Apple",
		Config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: secret,
			RedirectURL:  opts.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://appleid.apple.com/auth/authorize",
				TokenURL: "https://appleid.apple.com/auth/token",
			},
			Scopes: []string{"name", "email"},
		},
	}, nil
}

// AppleClientSecret signs the client secret JWT Apple requires for token
// exchange.
func AppleClientSecret(opts AppleOptions, now time.Time) (string, error) {
	if opts.TeamID == "" || opts.KeyID == "" || opts.PrivateKey == "" {
		return "", fmt.Errorf("apple provider requires team id, key id and private key")
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(opts.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse apple private key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": opts.TeamID,
		"iat": now.Unix(),
		"exp": now.Add(appleSecretTTL).Unix(),
		"aud": "https://appleid.apple.com",
		"sub": opts.ClientID,
	})
	token.Header["kid"] = opts.KeyID

	secret, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign apple client secret: %w", err)
	}
	return secret, nil
}
