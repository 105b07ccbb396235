package nakama

import (
	"errors"
	"fmt"

	"jhitster/internal/protocol"
)

var errOpCodeMismatch = errors.New("payload type does not match op code")

// hostFrame maps a host message to its op code and JSON payload.
func hostFrame(msg protocol.HostMessage) (int64, []byte, error) {
	op, ok := hostTypeOps[msg.MessageType()]
	if !ok {
		return 0, nil, fmt.Errorf("host message %q: %w", msg.MessageType(), protocol.ErrUnknownType)
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return 0, nil, err
	}
	return op, data, nil
}

// guestMessage decodes a client frame. Messages without a body may be sent with an empty payload.
func guestMessage(op int64, data []byte) (protocol.GuestMessage, error) {
	typ, ok := guestOpTypes[op]
	if !ok {
		return nil, fmt.Errorf("op code %d: %w", op, protocol.ErrUnknownType)
	}
	if len(data) == 0 {
		data = []byte(`{"type":"` + string(typ) + `"}`)
	}
	msg, err := protocol.DecodeGuest(data)
	if err != nil {
		return nil, err
	}
	if msg.MessageType() != typ {
		return nil, fmt.Errorf("op code %d carried %s: %w", op, msg.MessageType(), errOpCodeMismatch)
	}
	return msg, nil
}
