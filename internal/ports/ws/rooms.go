package ws

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"jhitster/internal/app"
	"jhitster/internal/config"
	"jhitster/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNoPacks      = errors.New("no packs selected")
)

// Room is one hosted game: a Runner owning the Host plus the hub of its connections.
type Room struct {
	Code   string
	Runner *app.Runner
	Hub    *Hub

	cancel context.CancelFunc

	mu       sync.Mutex
	idleFrom time.Time // zero while a peer is connected
}

func (r *Room) touch(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Hub.Len() > 0 {
		r.idleFrom = time.Time{}
	} else if r.idleFrom.IsZero() {
		r.idleFrom = now
	}
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idleFrom
}

// RoomOptions configures the rooms created by a Manager.
type RoomOptions struct {
	Game           config.GameConfig
	DefaultPacks   []string
	PreviewTimeout time.Duration
	IdleTTL        time.Duration
	Tick           time.Duration
}

// Manager creates rooms, finds them by code and closes the ones nobody is connected to.
type Manager struct {
	packs    ports.PackSource
	resolver ports.PreviewResolver
	logger   runtime.Logger
	opts     RoomOptions

	mu    sync.RWMutex
	rooms map[string]*Room
	ctx   context.Context
}

// NewManager returns a manager whose rooms live until ctx is cancelled. resolver may be nil.
func NewManager(ctx context.Context, source ports.PackSource, resolver ports.PreviewResolver, logger runtime.Logger, opts RoomOptions) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &Manager{
		packs:    source,
		resolver: resolver,
		logger:   logger,
		opts:     opts,
		rooms:    make(map[string]*Room),
		ctx:      ctx,
	}
}

// Create deals a song pool from packIDs (the configured defaults when empty) and starts a room.
func (m *Manager) Create(ctx context.Context, packIDs []string) (*Room, error) {
	if len(packIDs) == 0 {
		packIDs = m.opts.DefaultPacks
	}
	if len(packIDs) == 0 {
		return nil, ErrNoPacks
	}
	songs, err := m.packs.LoadSongs(ctx, packIDs)
	if err != nil {
		return nil, fmt.Errorf("load packs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.newCode()
	logger := m.logger.WithField("room", code)
	hub := NewHub(logger)
	host := app.NewHost(m.opts.Game, hub, logger, nil)
	if err := host.SetPacks(packIDs, songs); err != nil {
		return nil, err
	}

	roomCtx, cancel := context.WithCancel(m.ctx)
	room := &Room{
		Code:     code,
		Runner:   app.NewRunner(host, m.resolver, logger, m.opts.Tick, m.opts.PreviewTimeout),
		Hub:      hub,
		cancel:   cancel,
		idleFrom: time.Now(),
	}
	m.rooms[code] = room
	go func() {
		if err := room.Runner.Run(roomCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Room: runner stopped: %v", err)
		}
	}()

	logger.Info("Room: created with %d songs from %v.", len(songs), packIDs)
	return room, nil
}

// newCode picks an unused room code. m.mu must be held.
func (m *Manager) newCode() string {
	b := make([]byte, codeLength)
	for {
		for i := range b {
			b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
		}
		if _, taken := m.rooms[string(b)]; !taken {
			return string(b)
		}
	}
}

// Get looks a room up by code.
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", code, ErrRoomNotFound)
	}
	return room, nil
}

// Len is the number of open rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Sweep closes rooms that have had no connection for the idle TTL.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	closed := 0
	for code, room := range m.rooms {
		room.touch(now)
		since := room.idleSince()
		if since.IsZero() || now.Sub(since) < m.opts.IdleTTL {
			continue
		}
		room.cancel()
		delete(m.rooms, code)
		closed++
		m.logger.Info("Sweep: closed room %s, idle since %s.", code, since.Format(time.RFC3339))
	}
	return closed
}

// Run sweeps idle rooms every interval until ctx is cancelled, then closes every room.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, room := range m.rooms {
		room.cancel()
		delete(m.rooms, code)
	}
}
