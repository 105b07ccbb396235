package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jhitster/internal/protocol"

	"github.com/coder/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	peerQueueSize = 64
	writeTimeout  = 5 * time.Second
)

var (
	ErrPeerNotFound = errors.New("peer not connected")
	ErrBackpressure = errors.New("peer send queue is full")
)

// peer is one websocket connection. Frames queued on send are written by writeLoop.
type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans host messages out to the connections of one room. It implements ports.Transport.
type Hub struct {
	logger runtime.Logger

	mu    sync.RWMutex
	peers map[string]*peer
}

// NewHub returns an empty hub.
func NewHub(logger runtime.Logger) *Hub {
	return &Hub{logger: logger, peers: make(map[string]*peer)}
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.id] = p
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, id)
}

// Len is the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast queues msg for every connection. Slow peers are skipped rather than blocking the host.
func (h *Hub) Broadcast(msg protocol.HostMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	var dropped int
	for _, p := range h.peers {
		if !p.enqueue(data) {
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("%s dropped for %d peers: %w", msg.MessageType(), dropped, ErrBackpressure)
	}
	return nil
}

// SendTo queues msg for a single connection.
func (h *Hub) SendTo(peerID string, msg protocol.HostMessage) error {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("peer %s: %w", peerID, ErrPeerNotFound)
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if !p.enqueue(data) {
		return fmt.Errorf("peer %s: %w", peerID, ErrBackpressure)
	}
	return nil
}

func (p *peer) enqueue(data []byte) bool {
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

func (p *peer) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-p.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := p.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return fmt.Errorf("write to %s: %w", p.id, err)
			}
		}
	}
}
