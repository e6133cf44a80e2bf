package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lanternsoft/authbridge/core"
)

// environment is the flat shape parsed from process environment variables.
type environment struct {
	Secret           string   `env:"AUTHBRIDGE_SECRET"`
	BaseURL          string   `env:"AUTHBRIDGE_BASE_URL"`
	BasePath         string   `env:"AUTHBRIDGE_BASE_PATH"`
	AppName          string   `env:"AUTHBRIDGE_APP_NAME"`
	DatabaseProvider string   `env:"AUTHBRIDGE_DATABASE_PROVIDER"`
	DatabaseURL      string   `env:"AUTHBRIDGE_DATABASE_URL"`
	FrameworkVersion string   `env:"AUTHBRIDGE_FRAMEWORK_VERSION"`
	TrustedOrigins   []string `env:"AUTHBRIDGE_TRUSTED_ORIGINS" envSeparator:","`
	DisableCSRF      bool     `env:"AUTHBRIDGE_DISABLE_CSRF" envDefault:"false"`
	EnableBuiltins   bool     `env:"AUTHBRIDGE_ENABLE_BUILTINS" envDefault:"false"`
	Debug            bool     `env:"AUTHBRIDGE_DEBUG" envDefault:"false"`
}

// fromEnvironment builds the environment config layer. A .env file in the
// working directory is loaded first when present; a missing file is fine.
func fromEnvironment() (*core.Config, error) {
	_ = godotenv.Load()

	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, err
	}

	cfg := &core.Config{
		AppName:  e.AppName,
		BaseURL:  e.BaseURL,
		BasePath: e.BasePath,
		Secret:   e.Secret,
	}
	if e.DatabaseProvider != "" || e.DatabaseURL != "" {
		cfg.Database = &core.DatabaseConfig{
			Provider:         e.DatabaseProvider,
			ConnectionString: e.DatabaseURL,
		}
	}
	if e.FrameworkVersion != "" {
		cfg.Framework = &core.FrameworkConfig{Version: e.FrameworkVersion}
	}
	if e.EnableBuiltins {
		cfg.Extensions = &core.ExtensionsConfig{EnableBuiltins: true}
	}
	if len(e.TrustedOrigins) > 0 || e.DisableCSRF || e.Debug {
		cfg.Advanced = &core.AdvancedConfig{
			TrustedOrigins:   e.TrustedOrigins,
			DisableCSRFCheck: e.DisableCSRF,
			Debug:            e.Debug,
		}
	}
	return cfg, nil
}
