package ports

import "jhitster/internal/protocol"

// Transport delivers host messages to guests. Implementations must keep per-peer order:
// a guest applies GAME_STATE before the YOUR_TURN that follows it.
type Transport interface {
	// Broadcast sends msg to every connected guest.
	Broadcast(msg protocol.HostMessage) error

	// SendTo sends msg to a single guest identified by peerID.
	SendTo(peerID string, msg protocol.HostMessage) error
}

// HostLink carries a guest's intents to the host.
type HostLink interface {
	Send(msg protocol.GuestMessage) error
}
