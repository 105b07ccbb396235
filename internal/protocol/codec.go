package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when the "type" field names no known message of the expected direction.
var ErrUnknownType = errors.New("unknown message type")

type envelope struct {
	Type MessageType `json:"type"`
}

// Encode serializes m with its "type" discriminator as the first field.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	typ, err := json.Marshal(m.MessageType())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}

	out := make([]byte, 0, len(body)+len(typ)+9)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// PeekType returns the discriminator of a raw message without decoding the rest.
func PeekType(data []byte) (MessageType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("decode envelope: %w", ErrUnknownType)
	}
	return env.Type, nil
}

// DecodeHost parses a host → guest message.
func DecodeHost(data []byte) (HostMessage, error) {
	typ, err := PeekType(data)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeGameState:
		return decodeAs[GameState](data)
	case TypeYourTurn:
		return decodeAs[YourTurn](data)
	case TypeTokenWindow:
		return decodeAs[TokenWindow](data)
	case TypeTurnResult:
		return decodeAs[TurnResult](data)
	case TypeGameOver:
		return decodeAs[GameOver](data)
	case TypePlayerAssignment:
		return decodeAs[PlayerAssignment](data)
	case TypeAudioSync:
		return decodeAs[AudioSync](data)
	case TypePendingPlacement:
		return decodeAs[PendingPlacement](data)
	case TypeError:
		return decodeAs[Error](data)
	default:
		return nil, fmt.Errorf("host message %q: %w", typ, ErrUnknownType)
	}
}

// DecodeGuest parses a guest → host message.
func DecodeGuest(data []byte) (GuestMessage, error) {
	typ, err := PeekType(data)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeConfirmPlacement:
		return decodeAs[ConfirmPlacement](data)
	case TypeCancelPlacement:
		return CancelPlacement{}, nil
	case TypeUseToken:
		return decodeAs[UseToken](data)
	case TypeSkipSong:
		return SkipSong{}, nil
	case TypeJoin:
		return decodeAs[Join](data)
	case TypePendingPosition:
		return decodeAs[PendingPosition](data)
	case TypeStartGame:
		return StartGame{}, nil
	case TypeRequestState:
		return RequestState{}, nil
	default:
		return nil, fmt.Errorf("guest message %q: %w", typ, ErrUnknownType)
	}
}

func decodeAs[T Message](data []byte) (T, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode %s: %w", m.MessageType(), err)
	}
	return m, nil
}
