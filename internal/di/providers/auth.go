package providers

import (
	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/auth"
	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO symmetric key.
type AuthKey string

// ProvideAuthKey resolves the token key: an explicitly configured key
// wins, otherwise one is loaded from or generated under the data path.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.TokenKeyHex != "" {
		return AuthKey(cfg.Auth.TokenKeyHex), nil
	}

	keyHex, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return "", err
	}
	cfg.Auth.TokenKeyHex = keyHex

	log.Info("Token key loaded", "token_duration", cfg.Auth.TokenDuration)

	return AuthKey(keyHex), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.TokenDuration)
}
