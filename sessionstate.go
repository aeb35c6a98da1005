package yamux

import "sync"

// sessionState is the session-level lifecycle (§4.2), driven entirely by
// traffic on stream 0: the session-open handshake, ordinary pings, and
// GoAway.
type sessionState uint8

const (
	sessionIdle sessionState = iota
	sessionOpen
	sessionGoAwaySent
	sessionGoAwayReceived
	sessionClosed
)

func (s sessionState) String() string {
	switch s {
	case sessionIdle:
		return "Idle"
	case sessionOpen:
		return "Open"
	case sessionGoAwaySent:
		return "GoAwaySent"
	case sessionGoAwayReceived:
		return "GoAwayReceived"
	case sessionClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

type sessionFSM struct {
	mu    sync.Mutex
	state sessionState
}

func (f *sessionFSM) get() sessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *sessionFSM) set(s sessionState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// canOpenStream reports whether a new local or remote stream may be
// created: once we've sent or received GoAway, or the session is closed,
// no further streams are accepted (existing ones may still drain).
func (f *sessionFSM) canOpenStream() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case sessionGoAwaySent, sessionGoAwayReceived, sessionClosed:
		return false
	default:
		return true
	}
}
