// Package protocol defines the messages exchanged between a host and its guests.
//
// Every message travels as a JSON object whose "type" field names the variant
// (GAME_STATE, USE_TOKEN, ...) followed by the variant's fields in camelCase.
package protocol

import "jhitster/internal/domain"

// MessageType is the wire discriminator of a message.
type MessageType string

// Host → guest.
const (
	TypeGameState        MessageType = "GAME_STATE"
	TypeYourTurn         MessageType = "YOUR_TURN"
	TypeTokenWindow      MessageType = "TOKEN_WINDOW"
	TypeTurnResult       MessageType = "TURN_RESULT"
	TypeGameOver         MessageType = "GAME_OVER"
	TypePlayerAssignment MessageType = "PLAYER_ASSIGNMENT"
	TypeAudioSync        MessageType = "AUDIO_SYNC"
	TypePendingPlacement MessageType = "PENDING_PLACEMENT"
	TypeError            MessageType = "ERROR"
)

// Guest → host.
const (
	TypeConfirmPlacement MessageType = "CONFIRM_PLACEMENT"
	TypeCancelPlacement  MessageType = "CANCEL_PLACEMENT"
	TypeUseToken         MessageType = "USE_TOKEN"
	TypeSkipSong         MessageType = "SKIP_SONG"
	TypeJoin             MessageType = "JOIN"
	TypePendingPosition  MessageType = "PENDING_POSITION"
	TypeStartGame        MessageType = "START_GAME"
	TypeRequestState     MessageType = "REQUEST_STATE"
)

// Message is implemented by every wire message.
type Message interface {
	MessageType() MessageType
}

// HostMessage is a message only the host sends.
type HostMessage interface {
	Message
	hostMessage()
}

// GuestMessage is a message only a guest sends.
type GuestMessage interface {
	Message
	guestMessage()
}

// GameState is the waiting-room snapshot every guest renders.
type GameState struct {
	Players              []domain.Player `json:"players"`
	CurrentPlayerIndex   int             `json:"currentPlayerIndex"`
	Phase                domain.Phase    `json:"phase"`
	TargetTimelineLength int             `json:"targetTimelineLength"`
	DeckSize             int             `json:"deckSize"`
}

// YourTurn authorizes a guest to place the current card.
type YourTurn struct {
	Timeline    []domain.Song `json:"timeline"`
	CurrentCard *domain.Song  `json:"currentCard"`
	Tokens      int           `json:"tokens"`
}

// TokenWindow opens or refreshes the steal window. TimeRemaining is in whole seconds.
type TokenWindow struct {
	Timeline       []domain.Song `json:"timeline"`
	Card           domain.Song   `json:"card"`
	TimeRemaining  int           `json:"timeRemaining"`
	TakenPositions []int         `json:"takenPositions"`
}

// StealResult names the player who took the card.
type StealResult struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
}

// TurnResult announces how a turn resolved.
type TurnResult struct {
	WasCorrect  bool         `json:"wasCorrect"`
	Card        domain.Song  `json:"card"`
	StealResult *StealResult `json:"stealResult"`
}

// GameOver ends the session. An empty winner is a draw.
type GameOver struct {
	Winner string `json:"winner"`
}

// PlayerAssignment answers a JOIN with the seat the guest now owns.
type PlayerAssignment struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
}

// AudioSync tells guests which preview is playing.
type AudioSync struct {
	PreviewURL *string `json:"previewUrl"`
	Playing    bool    `json:"playing"`
}

// PendingPlacement shares the active player's tentative slot.
type PendingPlacement struct {
	Position *int          `json:"position"`
	Timeline []domain.Song `json:"timeline"`
}

// Error is a targeted rejection of a guest intent.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConfirmPlacement commits the active player's slot.
type ConfirmPlacement struct {
	Position int `json:"position"`
}

type CancelPlacement struct{}

// UseToken spends a token on a steal guess during the window.
type UseToken struct {
	Position int `json:"position"`
}

type SkipSong struct{}

// Join asks for a seat.
type Join struct {
	RequestedName string `json:"requestedName"`
}

// PendingPosition moves (or clears, when nil) the active player's ghost cursor.
type PendingPosition struct {
	Position *int `json:"position"`
}

// StartGame is sent by the room owner when no local player drives the host.
type StartGame struct{}

// RequestState asks the host to resend everything the guest needs to render.
type RequestState struct{}

func (GameState) MessageType() MessageType        { return TypeGameState }
func (YourTurn) MessageType() MessageType         { return TypeYourTurn }
func (TokenWindow) MessageType() MessageType      { return TypeTokenWindow }
func (TurnResult) MessageType() MessageType       { return TypeTurnResult }
func (GameOver) MessageType() MessageType         { return TypeGameOver }
func (PlayerAssignment) MessageType() MessageType { return TypePlayerAssignment }
func (AudioSync) MessageType() MessageType        { return TypeAudioSync }
func (PendingPlacement) MessageType() MessageType { return TypePendingPlacement }
func (Error) MessageType() MessageType            { return TypeError }

func (ConfirmPlacement) MessageType() MessageType { return TypeConfirmPlacement }
func (CancelPlacement) MessageType() MessageType  { return TypeCancelPlacement }
func (UseToken) MessageType() MessageType         { return TypeUseToken }
func (SkipSong) MessageType() MessageType         { return TypeSkipSong }
func (Join) MessageType() MessageType             { return TypeJoin }
func (PendingPosition) MessageType() MessageType  { return TypePendingPosition }
func (StartGame) MessageType() MessageType        { return TypeStartGame }
func (RequestState) MessageType() MessageType     { return TypeRequestState }

func (GameState) hostMessage()        {}
func (YourTurn) hostMessage()         {}
func (TokenWindow) hostMessage()      {}
func (TurnResult) hostMessage()       {}
func (GameOver) hostMessage()         {}
func (PlayerAssignment) hostMessage() {}
func (AudioSync) hostMessage()        {}
func (PendingPlacement) hostMessage() {}
func (Error) hostMessage()            {}

func (ConfirmPlacement) guestMessage() {}
func (CancelPlacement) guestMessage()  {}
func (UseToken) guestMessage()         {}
func (SkipSong) guestMessage()         {}
func (Join) guestMessage()             {}
func (PendingPosition) guestMessage()  {}
func (StartGame) guestMessage()        {}
func (RequestState) guestMessage()     {}

// Position returns a pointer for the nullable position fields.
func Position(p int) *int {
	return &p
}
