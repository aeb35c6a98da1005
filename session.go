package yamux

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/flowmux/yamux/frame"
	"github.com/flowmux/yamux/log"
)

// maxStreamID leaves headroom below the wire's 2^32-1 ceiling; reaching it
// is treated as exhaustion of the local id space rather than risking a
// wraparound collision with an id this session has already used.
const maxStreamID = 0xFFFFFFF0

// erroredIDGrace is how long a terminated stream's id is kept in the
// errored set so trailing frames already in flight from the peer are
// dropped silently instead of tripping "unknown stream".
const erroredIDGrace = 5 * time.Second

// quiesceGrace bounds how long Close waits for in-flight streams to drain
// before sending GoAway anyway.
const quiesceGrace = 30 * time.Second

// goAwayWriteTimeout bounds how long fail waits for its terminal GoAway to
// reach the transport before tearing down anyway, so a wedged peer can't
// hang session teardown forever.
const goAwayWriteTimeout = 2 * time.Second

// Session is one Yamux multiplexer instance over a single underlying
// connection. Its reader and writer run on their own goroutines, and every
// outbound frame reaches the writer over the writeReqs channel. The stream
// table, the session state and each stream's state machine are guarded by
// their own locks and are also read and changed directly by exported
// methods on the caller's goroutine; events are ordered only by those
// locks, not by a single executor.
type Session struct {
	cfg    *Config
	conn   io.ReadWriteCloser
	bufw   *bufio.Writer
	framer frame.Framer
	client bool

	state *sessionFSM

	streams   *streamMap
	acceptCh  chan *Stream
	writeReqs chan writeRequest
	pinger    *pinger

	newStreamMu sync.Mutex
	nextID      uint32

	erroredMu sync.Mutex
	errored   map[uint32]*time.Timer

	dieOnce sync.Once
	dead    chan struct{}
	dieErr  error
}

type writeRequest struct {
	frame  *frame.Frame
	result chan error
}

func newSession(conn io.ReadWriteCloser, client bool, cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.initDefaults()

	bufw := bufio.NewWriterSize(conn, 4096)
	s := &Session{
		cfg:       cfg,
		conn:      conn,
		bufw:      bufw,
		framer:    cfg.NewFramer(conn, bufw),
		client:    client,
		state:     &sessionFSM{},
		streams:   newStreamMap(),
		acceptCh:  make(chan *Stream, int(cfg.AcceptBacklog)),
		writeReqs: make(chan writeRequest, cfg.writeQueueDepth),
		errored:   make(map[uint32]*time.Timer),
		dead:      make(chan struct{}),
	}
	s.pinger = newPinger(s)
	if client {
		s.nextID = 1
	} else {
		s.nextID = 2
	}

	go s.readLoop()
	go s.writeLoop()

	if !client {
		// The listener kicks off the session-open handshake; see §4.2.
		s.writeFrameAsync(frame.NewSessionOpen())
	}
	if cfg.SessionPingInterval > 0 {
		go s.pinger.keepaliveLoop(cfg.SessionPingInterval)
	}
	return s
}

// Client builds a Session that plays the initiator role over conn: its
// locally opened streams use odd ids, and it waits for the listener's
// session-open handshake before the session is considered Open.
func Client(conn io.ReadWriteCloser, cfg *Config) *Session {
	return newSession(conn, true, cfg)
}

// Server builds a Session that plays the listener role over conn: its
// locally opened streams use even ids, and it sends the session-open
// handshake as soon as it attaches.
func Server(conn io.ReadWriteCloser, cfg *Config) *Session {
	return newSession(conn, false, cfg)
}

// OpenStream allocates a new outbound stream and blocks until the peer
// ACKs it, refuses it with RST, ctx is done, or the session ends.
func (s *Session) OpenStream(ctx context.Context) (*Stream, error) {
	select {
	case <-s.dead:
		return nil, s.waitErr()
	default:
	}
	if !s.state.canOpenStream() {
		return nil, errRemoteGoneAway
	}

	s.newStreamMu.Lock()
	id := s.nextID
	if id > maxStreamID {
		s.newStreamMu.Unlock()
		s.fail(errStreamsExhausted)
		return nil, errStreamsExhausted
	}
	s.nextID += 2

	str := newStream(s, id, true, streamIdle)
	if err := str.fsm.sendSYN(); err != nil {
		s.newStreamMu.Unlock()
		return nil, err
	}
	s.streams.set(id, str)

	err := s.writeFrame(frame.NewData(frame.StreamID(id), nil, true, false))
	s.newStreamMu.Unlock()
	if err != nil {
		s.streams.delete(id)
		return nil, err
	}

	select {
	case err := <-str.openResult:
		if err != nil {
			return nil, err
		}
		return str, nil
	case <-ctx.Done():
		_ = str.Reset()
		return nil, ctx.Err()
	case <-s.dead:
		return nil, s.waitErr()
	}
}

// AcceptStream blocks until the peer opens a stream we accept, or the
// session ends.
func (s *Session) AcceptStream() (*Stream, error) {
	select {
	case str, ok := <-s.acceptCh:
		if !ok {
			return nil, s.waitErr()
		}
		return str, nil
	case <-s.dead:
		return nil, s.waitErr()
	}
}

// Ping sends a keepalive/RTT probe and returns the round-trip time once
// the peer acknowledges it.
func (s *Session) Ping(ctx context.Context) (time.Duration, error) {
	return s.pinger.ping(ctx)
}

// NumStreams returns the number of streams currently tracked by the
// session (neither fully closed nor reset).
func (s *Session) NumStreams() int { return s.streams.len() }

// IsClosed reports whether the session has torn down.
func (s *Session) IsClosed() bool {
	select {
	case <-s.dead:
		return true
	default:
		return false
	}
}

// Wait blocks until the session ends and returns the error that ended it
// (nil for a graceful Close).
func (s *Session) Wait() error {
	<-s.dead
	return s.dieErr
}

func (s *Session) waitErr() error {
	if s.dieErr != nil {
		return s.dieErr
	}
	return errSessionClosed
}

// Close quiesces the session: it stops accepting new streams, half-closes
// every stream still open and waits (up to a grace period) for them to
// finish, then sends a graceful GoAway and tears down the transport.
func (s *Session) Close() error {
	select {
	case <-s.dead:
		return nil
	default:
	}
	s.state.set(sessionGoAwaySent)

	var wg sync.WaitGroup
	s.streams.each(func(id uint32, str *Stream) {
		wg.Add(1)
		go func(st *Stream) {
			defer wg.Done()
			_ = st.Close()
			select {
			case <-st.doneCh:
			case <-time.After(quiesceGrace):
			case <-s.dead:
			}
		}(str)
	})
	drained := make(chan struct{})
	go func() { wg.Wait(); close(drained) }()

	select {
	case <-drained:
	case <-time.After(quiesceGrace):
	case <-s.dead:
	}

	_ = s.writeFrame(frame.NewGoAway(frame.ErrorNone))
	s.finish(nil)
	return nil
}

// fail tears the session down after WE detect something fatal: a
// malformed frame, a state-machine or flow-control violation by the peer,
// or a broken transport. It tells the peer why via GoAway (unless the
// transport is already known to be gone) before finishing. The GoAway is
// written synchronously, like the write path in Close, so finish can't
// close s.dead out from under the writer goroutine before the frame has
// actually reached the transport.
func (s *Session) fail(err error) {
	s.state.set(sessionGoAwaySent)
	if GetErrorKind(err) != KindTransportShutdown {
		_ = s.writeFrameTimeout(frame.NewGoAway(goAwayCode(GetErrorKind(err))), goAwayWriteTimeout)
	}
	s.cfg.Logger.Log(context.Background(), log.LogLevelError, "yamux: session failing", map[string]interface{}{
		"error": err.Error(),
	})
	s.finish(err)
}

// finish performs the actual, one-time teardown: mark dead, release every
// stream and pending ping, and close the transport.
func (s *Session) finish(err error) {
	s.dieOnce.Do(func() {
		s.dieErr = err
		s.state.set(sessionClosed)
		close(s.dead)
		close(s.acceptCh)
		s.pinger.failAll()

		cause := err
		if cause == nil {
			cause = errSessionClosed
		}
		s.streams.each(func(id uint32, str *Stream) {
			str.onSessionGone(cause)
		})
		_ = s.conn.Close()
	})
}

// removeStream drops a cleanly terminated (both sides FIN'd) stream from
// the table immediately; no grace period is needed because both ends
// agreed the stream was done.
func (s *Session) removeStream(id uint32) {
	s.streams.delete(id)
}

// retireStream drops a stream that ended abruptly (reset, or a session
// failure) and remembers its id for a grace period so trailing frames
// already in flight from the peer don't look like protocol violations.
func (s *Session) retireStream(id uint32) {
	s.streams.delete(id)
	s.trackErrored(id)
}

func (s *Session) trackErrored(id uint32) {
	s.erroredMu.Lock()
	defer s.erroredMu.Unlock()
	if _, exists := s.errored[id]; exists {
		return
	}
	s.errored[id] = time.AfterFunc(erroredIDGrace, func() { s.untrackErrored(id) })
}

func (s *Session) untrackErrored(id uint32) {
	s.erroredMu.Lock()
	defer s.erroredMu.Unlock()
	if t, ok := s.errored[id]; ok {
		t.Stop()
		delete(s.errored, id)
	}
}

func (s *Session) isErrored(id uint32) bool {
	s.erroredMu.Lock()
	defer s.erroredMu.Unlock()
	_, ok := s.errored[id]
	return ok
}

// remoteParityOK reports whether id has the polarity the peer's role is
// entitled to use.
func (s *Session) remoteParityOK(id uint32) bool {
	remoteIsOdd := !s.client
	if remoteIsOdd {
		return id%2 == 1
	}
	return id%2 == 0
}

type yamuxAddr struct{ locality string }

func (a yamuxAddr) Network() string { return "yamux" }
func (a yamuxAddr) String() string  { return "yamux:" + a.locality }

// LocalAddr returns the underlying transport's local address, if it has
// one.
func (s *Session) LocalAddr() net.Addr {
	if a, ok := s.conn.(interface{ LocalAddr() net.Addr }); ok {
		return a.LocalAddr()
	}
	return yamuxAddr{"local"}
}

// RemoteAddr returns the underlying transport's remote address, if it has
// one.
func (s *Session) RemoteAddr() net.Addr {
	if a, ok := s.conn.(interface{ RemoteAddr() net.Addr }); ok {
		return a.RemoteAddr()
	}
	return yamuxAddr{"remote"}
}

// --- outbound frame plumbing ---

// writeFrame enqueues f and blocks until it has been handed to the
// transport (or the session ends).
func (s *Session) writeFrame(f *frame.Frame) error {
	req := writeRequest{frame: f, result: make(chan error, 1)}
	select {
	case s.writeReqs <- req:
	case <-s.dead:
		return s.waitErr()
	}
	select {
	case err := <-req.result:
		return err
	case <-s.dead:
		return s.waitErr()
	}
}

// writeFrameTimeout behaves like writeFrame but gives up after d if the
// frame can't be enqueued or written in time, so a stalled peer or a
// wedged writer goroutine can't block teardown (fail) indefinitely.
func (s *Session) writeFrameTimeout(f *frame.Frame, d time.Duration) error {
	req := writeRequest{frame: f, result: make(chan error, 1)}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case s.writeReqs <- req:
	case <-s.dead:
		return s.waitErr()
	case <-timer.C:
		return errf(KindTransportShutdown, "timed out enqueueing frame")
	}
	select {
	case err := <-req.result:
		return err
	case <-s.dead:
		return s.waitErr()
	case <-timer.C:
		return errf(KindTransportShutdown, "timed out writing frame")
	}
}

// writeFrameAsync enqueues f without waiting for the result; used for
// control traffic (acks, window updates, resets) where the caller has
// nothing useful to do with a failure beyond what the session already
// does on a broken transport.
func (s *Session) writeFrameAsync(f *frame.Frame) {
	req := writeRequest{frame: f}
	select {
	case s.writeReqs <- req:
	case <-s.dead:
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case req := <-s.writeReqs:
			s.drainWrites(req)
		case <-s.dead:
			return
		}
	}
}

// drainWrites writes first and everything else already queued behind it
// in one pass, then flushes once - the write side's equivalent of the
// read loop's per-read-batch flush boundary. No req.result is signaled
// until the flush covering it has actually happened, so a caller blocked
// in writeFrame never observes success for bytes still sitting in bufw.
func (s *Session) drainWrites(first writeRequest) {
	pending := []writeRequest{first}
drain:
	for {
		select {
		case req := <-s.writeReqs:
			pending = append(pending, req)
		default:
			break drain
		}
	}

	var failErr error
	errs := make([]error, len(pending))
	for i, req := range pending {
		if failErr != nil {
			errs[i] = failErr
			continue
		}
		if err := fromFrameError(s.framer.WriteFrame(req.frame)); err != nil {
			failErr = err
			errs[i] = err
		}
	}
	if failErr == nil {
		if ferr := s.bufw.Flush(); ferr != nil {
			failErr = ferr
			for i := range errs {
				errs[i] = failErr
			}
		}
	}
	for i, req := range pending {
		if req.result != nil {
			req.result <- errs[i]
		}
	}
	if failErr != nil {
		s.fail(errf(KindTransportShutdown, "write: %v", failErr))
	}
}

// --- inbound frame plumbing ---

func (s *Session) readLoop() {
	for {
		f, err := s.framer.ReadFrame()
		if err != nil {
			if err == io.EOF {
				s.finish(errTransportShutdown)
			} else if perr := fromFrameError(err); perr != err {
				s.fail(perr)
			} else {
				s.fail(errf(KindTransportShutdown, "read: %v", err))
			}
			return
		}
		for _, msg := range frame.Messages(f) {
			if err := s.handleMessage(&msg); err != nil {
				s.fail(err)
				return
			}
		}
		select {
		case <-s.dead:
			return
		default:
		}
	}
}

func (s *Session) handleMessage(msg *frame.Message) error {
	if msg.StreamID == 0 {
		return s.handleSessionMessage(msg)
	}
	id := uint32(msg.StreamID)
	switch msg.Kind {
	case frame.KindChannelOpen:
		return s.handleChannelOpen(id)
	case frame.KindChannelOpenAck:
		str, ok, err := s.lookupStream(id)
		if err != nil || !ok {
			return err
		}
		str.onOpenAck()
		return nil
	case frame.KindChannelData:
		str, ok, err := s.lookupStream(id)
		if err != nil || !ok {
			return err
		}
		return str.onData(msg.Payload)
	case frame.KindChannelWindowAdjust:
		str, ok, err := s.lookupStream(id)
		if err != nil || !ok {
			return err
		}
		return str.onWindowUpdate(msg.WindowIncrement)
	case frame.KindChannelClose:
		str, ok, err := s.lookupStream(id)
		if err != nil {
			return err
		}
		if !ok {
			s.untrackErrored(id)
			return nil
		}
		return str.onRemoteFIN()
	case frame.KindChannelReset:
		str, ok, err := s.lookupStream(id)
		if err != nil {
			return err
		}
		if !ok {
			s.untrackErrored(id)
			return nil
		}
		str.onRemoteRST()
		return nil
	}
	return nil
}

// lookupStream resolves id to a live stream. A miss is either a silent
// drop (id is in its post-terminal grace period) or an UnknownStream
// protocol violation (id was never allocated).
func (s *Session) lookupStream(id uint32) (str *Stream, ok bool, err error) {
	if str, ok = s.streams.get(id); ok {
		return str, true, nil
	}
	if s.isErrored(id) {
		return nil, false, nil
	}
	return nil, false, errf(KindUnknownStream, "frame references unknown stream %d", id)
}

func (s *Session) handleChannelOpen(id uint32) error {
	if _, exists := s.streams.get(id); exists {
		// id collision: refuse the new request, the session stays up.
		s.writeFrameAsync(frame.NewReset(frame.StreamID(id)))
		return nil
	}
	if !s.remoteParityOK(id) {
		return errf(KindProtocolViolation, "peer opened stream %d with the wrong id parity", id)
	}
	if !s.state.canOpenStream() {
		s.writeFrameAsync(frame.NewReset(frame.StreamID(id)))
		return nil
	}

	str := newStream(s, id, false, streamSynReceived)
	accept := true
	if s.cfg.Acceptor != nil {
		accept = s.cfg.Acceptor(str)
	}
	if accept {
		s.streams.set(id, str)
		select {
		case s.acceptCh <- str:
		default:
			// accept backlog full
			s.streams.delete(id)
			accept = false
		}
	}
	if !accept {
		s.writeFrameAsync(frame.NewReset(frame.StreamID(id)))
		return nil
	}

	if err := str.fsm.sendACK(); err != nil {
		return err
	}
	s.writeFrameAsync(frame.NewChannelAck(frame.StreamID(id)))
	return nil
}

func (s *Session) handleSessionMessage(msg *frame.Message) error {
	switch msg.Kind {
	case frame.KindSessionOpen:
		s.writeFrameAsync(frame.NewSessionOpenAck())
		s.state.set(sessionOpen)
		return nil
	case frame.KindSessionOpenAck:
		if s.state.get() == sessionIdle {
			s.state.set(sessionOpen)
			return nil
		}
		s.pinger.resolve(msg.PingValue)
		return nil
	case frame.KindPing:
		s.writeFrameAsync(frame.NewPingAck(msg.PingValue))
		return nil
	case frame.KindGoAway:
		s.state.set(sessionGoAwayReceived)
		s.finish(errf(KindSessionClosed, "remote sent GoAway(code=%d)", msg.ErrorCode))
		return nil
	}
	return nil
}
