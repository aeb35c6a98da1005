package yamux

import (
	"context"
	"math"
	"sync"
)

// outboundFlow tracks the sending credit a peer has granted one of our
// streams. Writes block in reserve until enough credit is available (or
// ctx ends), mirroring the blocking window decrement in the multiplexer
// this was adapted from; bufferedBytes additionally lets callers query
// writability without racing the blocking path.
type outboundFlow struct {
	mu            sync.Mutex
	changed       chan struct{}
	freeWindow    uint32
	bufferedBytes uint64
	err           error
}

func newOutboundFlow(initial uint32) *outboundFlow {
	return &outboundFlow{freeWindow: initial, changed: make(chan struct{})}
}

func (o *outboundFlow) notifyLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

// onBuffer records n additional bytes accepted from the caller but not yet
// handed to the framer.
func (o *outboundFlow) onBuffer(n uint64) {
	o.mu.Lock()
	o.bufferedBytes += n
	o.mu.Unlock()
}

// isWritable reports whether there is currently more granted credit than
// buffered, unsent data - the signal a caller should check before deciding
// whether a Write would block.
func (o *outboundFlow) isWritable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err == nil && uint64(o.freeWindow) > o.bufferedBytes
}

// reserve blocks until at least one byte of credit is available, the flow
// errors out, or ctx ends, then grants up to want bytes, decrementing both
// the free window and the buffered counter by the granted amount.
func (o *outboundFlow) reserve(ctx context.Context, want uint32) (uint32, error) {
	for {
		o.mu.Lock()
		if o.err != nil {
			err := o.err
			o.mu.Unlock()
			return 0, err
		}
		if o.freeWindow > 0 {
			grant := want
			if grant > o.freeWindow {
				grant = o.freeWindow
			}
			o.freeWindow -= grant
			if uint64(grant) > o.bufferedBytes {
				o.bufferedBytes = 0
			} else {
				o.bufferedBytes -= uint64(grant)
			}
			o.mu.Unlock()
			return grant, nil
		}
		ch := o.changed
		o.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// onWindowIncrement credits delta more bytes, per a received WindowUpdate.
// A grant that would overflow the wire's uint32 window is a protocol
// violation rather than a wraparound.
func (o *outboundFlow) onWindowIncrement(delta uint32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil // stream already gone; increment is moot
	}
	if uint64(o.freeWindow)+uint64(delta) > math.MaxUint32 {
		return errf(KindFlowControlViolation, "window increment of %d overflows free window %d", delta, o.freeWindow)
	}
	o.freeWindow += delta
	o.notifyLocked()
	return nil
}

// setError fails the flow; every blocked and future reserve call returns
// err immediately.
func (o *outboundFlow) setError(err error) {
	o.mu.Lock()
	if o.err == nil {
		o.err = err
		o.notifyLocked()
	}
	o.mu.Unlock()
}

// inboundFlow tracks how much of our advertised receive window a peer has
// used since we last replenished it, and decides when to emit a
// WindowUpdate. The threshold is a fraction of the initial window rather
// than a fixed byte count, per the "reasonable default: half the initial
// window" guidance.
type inboundFlow struct {
	mu        sync.Mutex
	initial   uint32
	consumed  uint32
	threshold uint32
}

func newInboundFlow(initial uint32, divisor uint32) *inboundFlow {
	if divisor == 0 {
		divisor = 2
	}
	return &inboundFlow{initial: initial, threshold: initial / divisor}
}

// onConsume records that the application has pulled n more bytes out of
// the stream's read buffer. If the accumulated total has crossed the
// threshold it returns the increment to advertise and resets the counter;
// otherwise ok is false and the caller sends nothing yet.
func (i *inboundFlow) onConsume(n uint32) (increment uint32, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.consumed += n
	if i.consumed >= i.threshold {
		increment = i.consumed
		i.consumed = 0
		return increment, true
	}
	return 0, false
}
