package yamux

import (
	"bytes"
	"context"
	"sync"
)

// streamBuffer holds bytes delivered by the peer that the application
// hasn't read yet. Readers block until data arrives, the buffer is marked
// with a terminal error (EOF on a clean FIN, or a failure on reset/session
// teardown), or their deadline/context expires.
type streamBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	err     error
	changed chan struct{}
}

func newStreamBuffer() *streamBuffer {
	return &streamBuffer{changed: make(chan struct{})}
}

func (b *streamBuffer) notifyLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// write appends payload delivered from the wire. It never blocks; the
// session's flow-control accounting is what keeps a peer from sending more
// than this buffer can hold.
func (b *streamBuffer) write(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.buf.Write(p)
	b.notifyLocked()
	b.mu.Unlock()
}

// setError marks the buffer terminal: once set, Read drains whatever is
// already buffered and then always returns err.
func (b *streamBuffer) setError(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
		b.notifyLocked()
	}
	b.mu.Unlock()
}

func (b *streamBuffer) read(ctx context.Context, p []byte) (int, error) {
	for {
		b.mu.Lock()
		if b.buf.Len() > 0 {
			n, _ := b.buf.Read(p)
			b.mu.Unlock()
			return n, nil
		}
		if b.err != nil {
			err := b.err
			b.mu.Unlock()
			return 0, err
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// buffered reports how many unread bytes are currently queued.
func (b *streamBuffer) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
