package nakama

import (
	"context"
	"database/sql"

	"jhitster/internal/packs"
	"jhitster/internal/ports"
	"jhitster/internal/preview"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	catalog, err := packs.LoadDir(envOr(env, EnvPacksDir, defaultPacksDir))
	if err != nil {
		logger.Warn("InitModule: Could not load song packs: %v", err)
		catalog = packs.NewCatalog()
	}

	var resolver ports.PreviewResolver
	if envOr(env, EnvPreviewLookup, "true") == "true" {
		resolver = preview.NewITunes(envOr(env, EnvPreviewURL, preview.DefaultSearchURL), nil, logger)
	}

	if err := RegisterRPCs(initializer, catalog); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameJHitster, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(catalog, resolver), nil
	}); err != nil {
		return err
	}

	logger.Info("JHitster Go module loaded with %d song packs.", len(catalog.Packs()))
	return nil
}
