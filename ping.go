package yamux

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	"github.com/flowmux/yamux/frame"
	"github.com/flowmux/yamux/log"
)

// maxKeepaliveMisses is how many consecutive keepalive pings may go
// unanswered before the session gives up on the peer and fails itself.
const maxKeepaliveMisses = 4

type pingWait struct {
	sentAt time.Time
	done   chan time.Duration
}

// pinger tracks in-flight RTT pings and, when configured, runs the
// background keepalive loop. Adapted from the teacher's heartbeat
// component, trimmed to the one thing this session needs from it: an RTT
// probe the caller can await, plus an unattended keepalive that backs off
// instead of hammering a slow peer.
type pinger struct {
	session *Session

	mu      sync.Mutex
	pending map[uint32]pingWait
	seq     uint32
}

func newPinger(s *Session) *pinger {
	return &pinger{session: s, pending: make(map[uint32]pingWait)}
}

// ping sends an ordinary keepalive/RTT Ping and blocks until the peer's
// ACK arrives, ctx is done, or the session dies.
func (p *pinger) ping(ctx context.Context) (time.Duration, error) {
	val := atomic.AddUint32(&p.seq, 1)
	done := make(chan time.Duration, 1)

	p.mu.Lock()
	p.pending[val] = pingWait{sentAt: time.Now(), done: done}
	p.mu.Unlock()

	cleanup := func() {
		p.mu.Lock()
		delete(p.pending, val)
		p.mu.Unlock()
	}

	if err := p.session.writeFrame(frame.NewPing(val)); err != nil {
		cleanup()
		return 0, err
	}

	select {
	case rtt, ok := <-done:
		if !ok {
			return 0, p.session.waitErr()
		}
		return rtt, nil
	case <-ctx.Done():
		cleanup()
		return 0, ctx.Err()
	case <-p.session.dead:
		cleanup()
		return 0, p.session.waitErr()
	}
}

// resolve completes a pending ping identified by its echoed value. Frames
// whose value matches nothing outstanding (or which are really the
// session-open ack) are ignored.
func (p *pinger) resolve(value uint32) {
	p.mu.Lock()
	w, ok := p.pending[value]
	if ok {
		delete(p.pending, value)
	}
	p.mu.Unlock()
	if ok {
		w.done <- time.Since(w.sentAt)
	}
}

// failAll unblocks every pending ping with the session's terminal error.
func (p *pinger) failAll() {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[uint32]pingWait)
	p.mu.Unlock()
	for _, w := range pending {
		close(w.done)
	}
}

// keepaliveLoop sends a Ping on the configured interval and fails the
// session if the peer stops answering. A failed round backs off instead
// of retrying at the configured cadence, so a briefly slow peer doesn't
// get hammered right up until it's declared dead.
func (p *pinger) keepaliveLoop(interval time.Duration) {
	b := &backoff.Backoff{Min: interval / 4, Max: interval * 4, Factor: 2, Jitter: true}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	misses := 0
	for {
		select {
		case <-p.session.dead:
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		_, err := p.ping(ctx)
		cancel()

		if err != nil {
			misses++
			p.session.cfg.Logger.Log(context.Background(), log.LogLevelWarn, "yamux: keepalive ping unanswered", map[string]interface{}{
				"misses": misses,
				"error":  err.Error(),
			})
			if misses >= maxKeepaliveMisses {
				p.session.fail(errf(KindTransportShutdown, "keepalive: peer unresponsive after %d pings", misses))
				return
			}
			timer.Reset(b.Duration())
			continue
		}

		misses = 0
		b.Reset()
		timer.Reset(interval)
	}
}
