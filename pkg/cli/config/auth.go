package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for credential verification
type Auth struct {
	jwtSecret string `masq:"secret"`
}

// Flags returns CLI flags for auth configuration
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC signing key for issued tokens (required)",
			Sources:     cli.EnvVars("TEAMCTX_JWT_SECRET"),
			Destination: &a.jwtSecret,
		},
	}
}

// LogValue implements slog.LogValuer and never exposes the secret
func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("jwt_secret_configured", a.jwtSecret != ""),
	)
}

// Secret returns the signing key
func (a *Auth) Secret() ([]byte, error) {
	if a.jwtSecret == "" {
		return nil, goerr.Wrap(types.ErrConfiguration, "jwt-secret is required")
	}
	return []byte(a.jwtSecret), nil
}
