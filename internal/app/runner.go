package app

import (
	"context"
	"sync"
	"time"

	"jhitster/internal/domain"
	"jhitster/internal/ports"
	"jhitster/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// DefaultInboxSize bounds the number of queued intents per host.
const DefaultInboxSize = 64

// Runner is the actor that owns a Host outside Nakama: every intent, preview result and clock
// tick goes through one inbox and is applied on the Run goroutine.
type Runner struct {
	host     *Host
	logger   runtime.Logger
	resolver ports.PreviewResolver
	timeout  time.Duration
	interval time.Duration

	inbox chan func(*Host)
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	mu  sync.Mutex
	ctx context.Context
}

// NewRunner wraps host. When resolver is non-nil the runner becomes the host's preview
// requester, running lookups with the given timeout.
func NewRunner(host *Host, resolver ports.PreviewResolver, logger runtime.Logger, tick, timeout time.Duration) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Runner{
		host:     host,
		logger:   logger,
		resolver: resolver,
		timeout:  timeout,
		interval: tick,
		inbox:    make(chan func(*Host), DefaultInboxSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
	}
	if resolver != nil {
		host.SetPreviewRequester(r)
	}
	return r
}

// Run applies queued work until ctx is cancelled. It must be called exactly once.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	defer r.stop()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return ctx.Err()
		case fn := <-r.inbox:
			fn(r.host)
		case now := <-ticker.C:
			r.host.Tick(now.Sub(last))
			last = now
		}
	}
}

// Submit queues fn to run on the host goroutine.
func (r *Runner) Submit(fn func(*Host)) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.inbox <- fn:
		return nil
	case <-r.done:
		return ErrStopped
	default:
		return ErrInboxFull
	}
}

// Do runs fn on the host goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Host)) error {
	finished := make(chan struct{})
	if err := r.Submit(func(h *Host) {
		defer close(finished)
		fn(h)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PeerMessage queues an intent from a connected guest.
func (r *Runner) PeerMessage(peerID string, msg protocol.GuestMessage) error {
	return r.Submit(func(h *Host) { h.HandlePeerMessage(peerID, msg) })
}

// PeerLeft queues the disconnect of a guest.
func (r *Runner) PeerLeft(peerID string) error {
	return r.Submit(func(h *Host) { h.Leave(peerID) })
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// RequestPreview resolves the song in the background and hands the result back through the inbox.
func (r *Runner) RequestPreview(song domain.Song) {
	r.mu.Lock()
	parent := r.ctx
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(parent, r.timeout)
		defer cancel()

		url, err := r.resolver.Resolve(ctx, song)
		if err != nil {
			r.logger.Warn("RequestPreview: lookup for song %d failed: %v", song.ID, err)
			url = ""
		}
		if err := r.Submit(func(h *Host) { h.PreviewResolved(song.ID, url) }); err != nil {
			r.logger.Warn("RequestPreview: could not deliver preview for song %d: %v", song.ID, err)
		}
	}()
}

func (r *Runner) stop() {
	r.once.Do(func() { close(r.done) })
}
