package nakama

import "jhitster/internal/protocol"

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcListPacks returns the metadata of every song pack the server can deal from.
	RpcListPacks = "list_packs"

	// MatchNameJHitster is the authoritative match handler name registered with Nakama.
	MatchNameJHitster = "jhitster_match"

	// MatchLabelGame is the "game" value of every label this module publishes.
	MatchLabelGame = "jhitster"
)

// Runtime env keys.
const (
	EnvGameConfig    = "jhitster_game_config"
	EnvPacksDir      = "jhitster_packs_dir"
	EnvPreviewLookup = "jhitster_preview_lookup"
	EnvPreviewURL    = "jhitster_preview_url"

	defaultGameConfigPath = "data/game_config.json"
	defaultPacksDir       = "data/packs"
)

// Op codes for client messages and server events. Payloads are the protocol JSON messages.
const (
	// Client -> Server
	OpConfirmPlacement int64 = 1
	OpCancelPlacement  int64 = 2
	OpUseToken         int64 = 3
	OpSkipSong         int64 = 4
	OpJoin             int64 = 5
	OpPendingPosition  int64 = 6
	OpStartGame        int64 = 7
	OpRequestState     int64 = 8

	// Server -> Client events
	OpGameState        int64 = 101
	OpYourTurn         int64 = 102 // sent privately
	OpTokenWindow      int64 = 103
	OpTurnResult       int64 = 104
	OpGameOver         int64 = 105
	OpPlayerAssignment int64 = 106 // sent privately
	OpAudioSync        int64 = 107
	OpPendingPlacement int64 = 108
	OpGameError        int64 = 109 // sent privately
)

var guestOpTypes = map[int64]protocol.MessageType{
	OpConfirmPlacement: protocol.TypeConfirmPlacement,
	OpCancelPlacement:  protocol.TypeCancelPlacement,
	OpUseToken:         protocol.TypeUseToken,
	OpSkipSong:         protocol.TypeSkipSong,
	OpJoin:             protocol.TypeJoin,
	OpPendingPosition:  protocol.TypePendingPosition,
	OpStartGame:        protocol.TypeStartGame,
	OpRequestState:     protocol.TypeRequestState,
}

var hostTypeOps = map[protocol.MessageType]int64{
	protocol.TypeGameState:        OpGameState,
	protocol.TypeYourTurn:         OpYourTurn,
	protocol.TypeTokenWindow:      OpTokenWindow,
	protocol.TypeTurnResult:       OpTurnResult,
	protocol.TypeGameOver:         OpGameOver,
	protocol.TypePlayerAssignment: OpPlayerAssignment,
	protocol.TypeAudioSync:        OpAudioSync,
	protocol.TypePendingPlacement: OpPendingPlacement,
	protocol.TypeError:            OpGameError,
}
