package yamux

import (
	"context"
	"sync"
	"time"

	"github.com/flowmux/yamux/frame"
)

// Stream is one logical, flow-controlled byte pipe multiplexed over a
// Session. A Stream is safe for concurrent Read and Write, and safe for
// concurrent use alongside Close/Reset, but only one Write is ever
// in flight at a time: writes are serialized so a large write can't be
// interleaved with another caller's frames on the same stream.
type Stream struct {
	id      uint32
	local   bool // true if we opened it; false if the peer did
	session *Session

	fsm *streamFSM
	out *outboundFlow
	in  *inboundFlow
	buf *streamBuffer

	writeMu sync.Mutex

	mu            sync.Mutex
	readDeadline  time.Time
	writeDeadline time.Time

	// openResult receives the outcome of a locally initiated open (nil on
	// ACK, an error on RST/refusal/session failure). Only read once, by
	// whichever goroutine is blocked in the open call.
	openResult chan error
	resultOnce sync.Once

	doneCh   chan struct{}
	doneOnce sync.Once
}

func newStream(sess *Session, id uint32, local bool, initial streamState) *Stream {
	return &Stream{
		id:      id,
		local:   local,
		session: sess,
		fsm:     newStreamFSM(initial),
		out:     newOutboundFlow(sess.cfg.InitialStreamWindowBytes),
		in:      newInboundFlow(sess.cfg.InitialStreamWindowBytes, sess.cfg.inboundWindowDivisor),
		buf:        newStreamBuffer(),
		doneCh:     make(chan struct{}),
		openResult: make(chan error, 1),
	}
}

// markDone closes doneCh exactly once; called whenever the stream reaches
// Closed or Reset so Session.Close's drain can wait on it.
func (s *Stream) markDone() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// ID is this stream's 32-bit identifier, unique within its session for the
// stream's lifetime.
func (s *Stream) ID() uint32 { return s.id }

// IsLocal reports whether this side opened the stream (odd ids for the
// initiator, even for the listener).
func (s *Stream) IsLocal() bool { return s.local }

// State returns the stream's current position in its lifecycle; useful
// for diagnostics and tests, not meant to be polled for control flow.
func (s *Stream) State() string { return s.fsm.current().String() }

// MaxFramePayload is the largest Data payload this session will place in a
// single frame when writing to this stream.
func (s *Stream) MaxFramePayload() uint32 { return s.session.cfg.MaxFramePayloadBytes }

func (s *Stream) resolveOpen(err error) {
	s.resultOnce.Do(func() {
		s.openResult <- err
		close(s.openResult)
	})
}

// Read implements io.Reader. It returns io.EOF once the peer has sent FIN
// and all buffered bytes have been consumed, or the stream/session error
// if the stream was reset or the session failed.
func (s *Stream) Read(p []byte) (int, error) {
	ctx := context.Background()
	s.mu.Lock()
	dl := s.readDeadline
	s.mu.Unlock()
	var cancel context.CancelFunc
	if !dl.IsZero() {
		ctx, cancel = context.WithDeadline(ctx, dl)
		defer cancel()
	}

	n, err := s.buf.read(ctx, p)
	if n > 0 {
		if inc, ok := s.in.onConsume(uint32(n)); ok {
			s.session.writeFrameAsync(frame.NewWindowUpdate(frame.StreamID(s.id), inc))
		}
	}
	return n, err
}

// Write implements io.Writer. A write larger than the session's configured
// max frame payload is split across multiple Data frames; it blocks until
// enough peer-granted window is available to send each chunk.
func (s *Stream) Write(p []byte) (int, error) {
	ctx := context.Background()
	s.mu.Lock()
	dl := s.writeDeadline
	s.mu.Unlock()
	var cancel context.CancelFunc
	if !dl.IsZero() {
		ctx, cancel = context.WithDeadline(ctx, dl)
		defer cancel()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.fsm.sendData(); err != nil {
		return 0, errStreamNotWritable
	}

	s.out.onBuffer(uint64(len(p)))

	maxFrame := s.session.cfg.MaxFramePayloadBytes
	var n int
	for n < len(p) {
		chunkLen := len(p) - n
		if uint32(chunkLen) > maxFrame {
			chunkLen = int(maxFrame)
		}
		grant, err := s.out.reserve(ctx, uint32(chunkLen))
		if err != nil {
			return n, err
		}
		if grant == 0 {
			continue
		}
		f := frame.NewData(frame.StreamID(s.id), p[n:n+int(grant)], false, false)
		if err := s.session.writeFrame(f); err != nil {
			return n, err
		}
		n += int(grant)
	}
	return n, nil
}

// Close half-closes the stream: it sends FIN and stops accepting further
// writes, but the stream isn't removed from the session until the peer's
// side closes too (or it's reset). Calling Close again is a no-op.
func (s *Stream) Close() error {
	if s.fsm.alreadyHalfClosedLocally() {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.fsm.sendFIN(); err != nil {
		return err
	}
	if s.fsm.current() == streamClosed {
		s.markDone()
		s.session.removeStream(s.id)
	}
	f := frame.NewData(frame.StreamID(s.id), nil, false, true)
	return s.session.writeFrame(f)
}

// Reset aborts the stream unilaterally: it sends RST, fails any blocked
// Read/Write immediately, and removes the stream from the session at once;
// its id is kept for a short grace period so trailing frames from the peer
// are dropped silently.
func (s *Stream) Reset() error {
	already := s.fsm.current().terminal()
	_ = s.fsm.sendRST()
	s.out.setError(errStreamNotWritable)
	s.buf.setError(errStreamNotWritable)
	s.resolveOpen(errStreamNotWritable)
	s.markDone()
	if already {
		return nil
	}
	s.session.retireStream(s.id)
	return s.session.writeFrame(frame.NewReset(frame.StreamID(s.id)))
}

// SetReadDeadline sets the deadline for subsequent Read calls: a Read
// started after it fails with a deadline error once t arrives. A Read
// already blocked keeps the deadline it started with. A zero value
// disables the deadline.
func (s *Stream) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	s.readDeadline = t
	s.mu.Unlock()
	return nil
}

// SetWriteDeadline sets the deadline for subsequent Write calls: a Write
// started after it fails with a deadline error once t arrives. A Write
// already blocked keeps the deadline it started with. A zero value
// disables the deadline.
func (s *Stream) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	s.writeDeadline = t
	s.mu.Unlock()
	return nil
}

// --- inbound dispatch, called only from the session's reader goroutine ---

func (s *Stream) onOpenAck() {
	if err := s.fsm.recvACK(); err != nil {
		s.session.fail(err)
		return
	}
	s.resolveOpen(nil)
}

func (s *Stream) onData(payload []byte) error {
	if err := s.fsm.recvData(); err != nil {
		return err
	}
	s.buf.write(payload)
	return nil
}

func (s *Stream) onWindowUpdate(delta uint32) error {
	if err := s.fsm.recvWindowUpdate(); err != nil {
		return err
	}
	return s.out.onWindowIncrement(delta)
}

func (s *Stream) onRemoteFIN() error {
	if err := s.fsm.recvFIN(); err != nil {
		return err
	}
	s.buf.setError(errEOF)
	if s.fsm.current() == streamClosed {
		s.markDone()
		s.session.removeStream(s.id)
	}
	return nil
}

func (s *Stream) onRemoteRST() {
	_ = s.fsm.recvRST()
	s.out.setError(errStreamReset)
	s.buf.setError(errStreamReset)
	s.resolveOpen(errStreamReset)
	s.markDone()
	s.session.retireStream(s.id)
}

// onSessionGone fails every pending and future operation on the stream
// because the session itself is no longer usable.
func (s *Stream) onSessionGone(err error) {
	_ = s.fsm.sendRST()
	s.out.setError(err)
	s.buf.setError(err)
	s.resolveOpen(err)
	s.markDone()
}
