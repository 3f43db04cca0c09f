package providers

import (
	"github.com/samber/do/v2"

	"github.com/docmarkapp/docmark-server/internal/auth"
	"github.com/docmarkapp/docmark-server/internal/config"
	"github.com/docmarkapp/docmark-server/internal/logger"
)

// TokenKey is the hex-encoded PASETO session key.
type TokenKey string

// ProvideTokenKey provides the session token key: TOKEN_KEY when set,
// otherwise a key persisted under the data path.
func ProvideTokenKey(i do.Injector) (TokenKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.TokenKeyHex != "" {
		return TokenKey(cfg.Auth.TokenKeyHex), nil
	}

	keyHex, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return "", err
	}
	log.Info("Session key loaded from data path")
	return TokenKey(keyHex), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[TokenKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.SessionDuration)
}
