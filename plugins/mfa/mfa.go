// Package mfa builds the TOTP multi-factor plugin descriptor and provides
// the enrollment and verification helpers backing it.
package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/plugin"
)

// Options configures the TOTP plugin.
type Options struct {
	Issuer      string
	Period      uint          // seconds per code, defaults to 30
	Digits      int           // defaults to 6
	Skew        uint          // accepted periods of clock drift either side
	GracePeriod time.Duration // window after sign-in before MFA is demanded
}

// New builds the tagged plugin spec.
func New(opts Options) *plugin.Spec {
	if opts.Issuer == "" {
		opts.Issuer = "authbridge"
	}
	if opts.Period == 0 {
		opts.Period = 30
	}
	if opts.Digits == 0 {
		opts.Digits = 6
	}
	return &plugin.Spec{
		Kind: plugin.KindMFA,
		Name: "mfa",
		Config: map[string]interface{}{
			"totpOptions": map[string]interface{}{
				"issuer":      opts.Issuer,
				"period":      opts.Period,
				"digits":      opts.Digits,
				"skew":        opts.Skew,
				"gracePeriod": opts.GracePeriod,
			},
		},
		Init: func(ctx context.Context, fw core.Framework) error {
			if opts.Digits != 6 && opts.Digits != 8 {
				return fmt.Errorf("mfa: digits must be 6 or 8, got %d", opts.Digits)
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
		"name":        spec.Name,
		"totpOptions": spec.Config["totpOptions"],
	}
}

// Enroll generates a new TOTP key for the account. The returned key exposes
// the secret and the otpauth:// provisioning URL for QR rendering.
func Enroll(opts Options, accountName string) (*otp.Key, error) {
	if accountName == "" {
		return nil, fmt.Errorf("mfa enroll: account name required")
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = "authbridge"
	}
	period := opts.Period
	if period == 0 {
		period = 30
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      period,
		Digits:      digits(opts.Digits),
	})
	if err != nil {
		return nil, fmt.Errorf("mfa enroll: %w", err)
	}
	return key, nil
}

// Verify checks a TOTP code against the stored secret.
func Verify(opts Options, code, secret string) (bool, error) {
	period := opts.Period
	if period == 0 {
		period = 30
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period: period,
		Skew:   opts.Skew,
		Digits: digits(opts.Digits),
	})
	if err != nil {
		return false, fmt.Errorf("mfa verify: %w", err)
	}
	return ok, nil
}

func digits(n int) otp.Digits {
	if n == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}
