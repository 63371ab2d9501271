package bootstrap

import (
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
)

// TokenService builds the JWT service from key files. The private key is
// preferred since it can both sign and validate. It returns nil when
// authentication is disabled.
func TokenService(cfg config.AuthConfig, expiration time.Duration) (*auth.JWTService, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.Issuer,
		Expiration: expiration,
		Leeway:     cfg.Leeway,
	}
	switch {
	case cfg.PrivateKeyFile != "":
		pem, err := auth.LoadKeyFromFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PrivateKeyPEM = string(pem)
	case cfg.PublicKeyFile != "":
		pem, err := auth.LoadKeyFromFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(pem)
	}
	return auth.NewJWTService(jwtCfg)
}
