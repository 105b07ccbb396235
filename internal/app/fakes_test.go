package app

import (
	"sync"

	"jhitster/internal/domain"
	"jhitster/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// recordingTransport records everything the host sends.
type recordingTransport struct {
	mu         sync.Mutex
	broadcasts []protocol.HostMessage
	sent       map[string][]protocol.HostMessage
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{sent: make(map[string][]protocol.HostMessage)}
}

func (rt *recordingTransport) Broadcast(msg protocol.HostMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.broadcasts = append(rt.broadcasts, msg)
	return nil
}

func (rt *recordingTransport) SendTo(peerID string, msg protocol.HostMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.sent[peerID] = append(rt.sent[peerID], msg)
	return nil
}

func (rt *recordingTransport) reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.broadcasts = nil
	rt.sent = make(map[string][]protocol.HostMessage)
}

// lastBroadcast returns the most recent broadcast of the given type.
func (rt *recordingTransport) lastBroadcast(typ protocol.MessageType) (protocol.HostMessage, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for i := len(rt.broadcasts) - 1; i >= 0; i-- {
		if rt.broadcasts[i].MessageType() == typ {
			return rt.broadcasts[i], true
		}
	}
	return nil, false
}

// lastSent returns the most recent message of the given type sent to peerID.
func (rt *recordingTransport) lastSent(peerID string, typ protocol.MessageType) (protocol.HostMessage, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	msgs := rt.sent[peerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].MessageType() == typ {
			return msgs[i], true
		}
	}
	return nil, false
}

func (rt *recordingTransport) broadcastTypes() []protocol.MessageType {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]protocol.MessageType, 0, len(rt.broadcasts))
	for _, m := range rt.broadcasts {
		out = append(out, m.MessageType())
	}
	return out
}

func (rt *recordingTransport) sentTypes(peerID string) []protocol.MessageType {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]protocol.MessageType, 0, len(rt.sent[peerID]))
	for _, m := range rt.sent[peerID] {
		out = append(out, m.MessageType())
	}
	return out
}

// recordingLink records guest intents.
type recordingLink struct {
	sent []protocol.GuestMessage
}

func (l *recordingLink) Send(msg protocol.GuestMessage) error {
	l.sent = append(l.sent, msg)
	return nil
}

func (l *recordingLink) last() protocol.GuestMessage {
	if len(l.sent) == 0 {
		return nil
	}
	return l.sent[len(l.sent)-1]
}

// recordingRequester records preview lookups started by the host.
type recordingRequester struct {
	requested []domain.Song
}

func (r *recordingRequester) RequestPreview(song domain.Song) {
	r.requested = append(r.requested, song)
}

// testSongs returns n songs with distinct, increasing years.
func testSongs(n int) []domain.Song {
	songs := make([]domain.Song, n)
	for i := range songs {
		songs[i] = domain.Song{ID: i + 1, Title: "Track", Artist: "Band", Year: 1950 + 3*i}
	}
	return songs
}

func song(id, year int) domain.Song {
	return domain.Song{ID: id, Title: "Track", Artist: "Band", Year: year}
}
