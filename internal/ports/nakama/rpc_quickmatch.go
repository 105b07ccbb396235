package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"jhitster/internal/config"
	"jhitster/internal/packs"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchRequest is the optional payload of quick_match.
type QuickMatchRequest struct {
	Packs []string `json:"packs"`
}

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, catalog *packs.Catalog) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcListPacks, newRpcListPacks(catalog))
}

// rpcQuickMatch joins the first open lobby, or creates a match. Asking for specific packs always
// creates a new match dealing from them.
func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req QuickMatchRequest
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			logger.Warn("QuickMatch: Invalid payload: %v", err)
			return "", runtime.NewError("invalid payload", 3)
		}
	}

	if len(req.Packs) == 0 {
		query := fmt.Sprintf("+label.game:%s +label.phase:lobby +label.open:>=1", MatchLabelGame)

		limit := 10
		authoritative := true
		minSize := 1
		maxSize := config.GetGameConfig().MaxPlayers - 1

		matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
		if err != nil {
			logger.Error("MatchList error: %v", err)
			return "", err
		}
		if len(matches) > 0 {
			return quickMatchResponse(matches[0].MatchId, false)
		}
	}

	params := map[string]interface{}{}
	if len(req.Packs) > 0 {
		params["packs"] = strings.Join(req.Packs, ",")
	}
	matchID, err := nk.MatchCreate(ctx, MatchNameJHitster, params)
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}
	return quickMatchResponse(matchID, true)
}

func quickMatchResponse(matchID string, isNew bool) (string, error) {
	b, err := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: isNew})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// newRpcListPacks returns the pack metadata as a JSON array.
func newRpcListPacks(catalog *packs.Catalog) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		b, err := json.Marshal(catalog.Packs())
		if err != nil {
			logger.Error("ListPacks: Failed to marshal packs: %v", err)
			return "", err
		}
		return string(b), nil
	}
}
