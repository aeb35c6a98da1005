package yamux

import "sync"

// streamState is a stream's position in the per-stream lifecycle described
// in the protocol notes (§4.3): every SYN, ACK, Data, WindowUpdate, FIN and
// RST either advances it along an allowed edge or is rejected.
type streamState uint8

const (
	streamIdle streamState = iota
	streamSynSent
	streamSynReceived
	streamEstablished
	streamLocalHalfClosed
	streamRemoteHalfClosed
	streamClosed
	streamReset
)

func (s streamState) String() string {
	switch s {
	case streamIdle:
		return "Idle"
	case streamSynSent:
		return "SynSent"
	case streamSynReceived:
		return "SynReceived"
	case streamEstablished:
		return "Established"
	case streamLocalHalfClosed:
		return "LocalHalfClosed"
	case streamRemoteHalfClosed:
		return "RemoteHalfClosed"
	case streamClosed:
		return "Closed"
	case streamReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

func (s streamState) terminal() bool {
	return s == streamClosed || s == streamReset
}

// streamFSM guards a single stream's state under one mutex. All of its
// methods either return the nil error having applied the transition, or
// leave the state untouched and return an error describing why the edge
// isn't allowed.
type streamFSM struct {
	mu    sync.Mutex
	state streamState
}

func newStreamFSM(initial streamState) *streamFSM {
	return &streamFSM{state: initial}
}

func (f *streamFSM) current() streamState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// violation builds the error returned for a disallowed edge.
func (f *streamFSM) violation(event string) error {
	return errf(KindProtocolViolation, "stream: cannot %s from state %s", event, f.state)
}

// --- local (send) transitions ---

func (f *streamFSM) sendSYN() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != streamIdle {
		return f.violation("send SYN")
	}
	f.state = streamSynSent
	return nil
}

// sendACK accepts a remotely opened stream (already SynReceived) and
// establishes it.
func (f *streamFSM) sendACK() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != streamSynReceived {
		return f.violation("send ACK")
	}
	f.state = streamEstablished
	return nil
}

func (f *streamFSM) sendData() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case streamEstablished, streamRemoteHalfClosed:
		return nil
	default:
		return f.violation("send data")
	}
}

func (f *streamFSM) sendWindowUpdate() error {
	return f.sendData()
}

func (f *streamFSM) sendFIN() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case streamEstablished:
		f.state = streamLocalHalfClosed
	case streamRemoteHalfClosed:
		f.state = streamClosed
	case streamLocalHalfClosed, streamClosed, streamReset:
		// already closed locally (or gone entirely): Close is idempotent.
	default:
		return f.violation("send FIN")
	}
	return nil
}

// alreadyHalfClosedLocally reports whether sendFIN would be a no-op,
// letting the caller skip re-sending a FIN frame.
func (f *streamFSM) alreadyHalfClosedLocally() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case streamLocalHalfClosed, streamClosed, streamReset:
		return true
	default:
		return false
	}
}

func (f *streamFSM) sendRST() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.terminal() {
		return nil // idempotent: already gone
	}
	f.state = streamReset
	return nil
}

// --- remote (receive) transitions ---

func (f *streamFSM) recvSYN() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != streamIdle {
		return f.violation("receive SYN")
	}
	f.state = streamSynReceived
	return nil
}

func (f *streamFSM) recvACK() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != streamSynSent {
		return f.violation("receive ACK")
	}
	f.state = streamEstablished
	return nil
}

func (f *streamFSM) recvData() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case streamEstablished, streamLocalHalfClosed:
		return nil
	default:
		return f.violation("receive data")
	}
}

func (f *streamFSM) recvWindowUpdate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.terminal() {
		return f.violation("receive window update")
	}
	return nil
}

func (f *streamFSM) recvFIN() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case streamEstablished:
		f.state = streamRemoteHalfClosed
	case streamLocalHalfClosed:
		f.state = streamClosed
	default:
		return f.violation("receive FIN")
	}
	return nil
}

func (f *streamFSM) recvRST() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.terminal() {
		return nil
	}
	f.state = streamReset
	return nil
}
