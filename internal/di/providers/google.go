package providers

import (
	"github.com/samber/do/v2"

	"github.com/docmarkapp/docmark-server/internal/config"
	"github.com/docmarkapp/docmark-server/internal/logger"
	"github.com/docmarkapp/docmark-server/internal/provider/gdocs"
)

// ProvideGoogleClient provides the rate-limited Google Docs/Drive
// client. One instance serves every user.
func ProvideGoogleClient(i do.Injector) (*gdocs.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := gdocs.New(gdocs.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
	}, cfg.Sync.RequestsPerSecond, cfg.Sync.Burst, log.Logger)

	log.Info("Google client configured",
		"rps", cfg.Sync.RequestsPerSecond,
		"burst", cfg.Sync.Burst,
	)

	return client, nil
}
