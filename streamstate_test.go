package yamux

import "testing"

func TestStreamFSMLocalOpenHandshake(t *testing.T) {
	f := newStreamFSM(streamIdle)
	if err := f.sendSYN(); err != nil {
		t.Fatalf("sendSYN: %v", err)
	}
	if got := f.current(); got != streamSynSent {
		t.Fatalf("got %s, want SynSent", got)
	}
	if err := f.recvACK(); err != nil {
		t.Fatalf("recvACK: %v", err)
	}
	if got := f.current(); got != streamEstablished {
		t.Fatalf("got %s, want Established", got)
	}
}

func TestStreamFSMRemoteOpenHandshake(t *testing.T) {
	f := newStreamFSM(streamIdle)
	if err := f.recvSYN(); err != nil {
		t.Fatalf("recvSYN: %v", err)
	}
	if err := f.sendACK(); err != nil {
		t.Fatalf("sendACK: %v", err)
	}
	if got := f.current(); got != streamEstablished {
		t.Fatalf("got %s, want Established", got)
	}
}

func TestStreamFSMDoubleCloseBothSides(t *testing.T) {
	f := newStreamFSM(streamEstablished)
	if err := f.sendFIN(); err != nil {
		t.Fatalf("sendFIN: %v", err)
	}
	if got := f.current(); got != streamLocalHalfClosed {
		t.Fatalf("got %s, want LocalHalfClosed", got)
	}
	if err := f.recvFIN(); err != nil {
		t.Fatalf("recvFIN: %v", err)
	}
	if got := f.current(); got != streamClosed {
		t.Fatalf("got %s, want Closed", got)
	}
	// Idempotent: closing an already-closed stream is a no-op, not an error.
	if err := f.sendFIN(); err != nil {
		t.Fatalf("second sendFIN should be idempotent, got %v", err)
	}
}

func TestStreamFSMRemoteFINFirst(t *testing.T) {
	f := newStreamFSM(streamEstablished)
	if err := f.recvFIN(); err != nil {
		t.Fatalf("recvFIN: %v", err)
	}
	if got := f.current(); got != streamRemoteHalfClosed {
		t.Fatalf("got %s, want RemoteHalfClosed", got)
	}
	// Data arriving after the peer's own FIN is a protocol violation.
	if err := f.recvData(); err == nil {
		t.Fatalf("expected data-after-remote-FIN to be rejected for this edge")
	}
	if err := f.sendFIN(); err != nil {
		t.Fatalf("sendFIN: %v", err)
	}
	if got := f.current(); got != streamClosed {
		t.Fatalf("got %s, want Closed", got)
	}
}

func TestStreamFSMDataBeforeEstablishedIsViolation(t *testing.T) {
	f := newStreamFSM(streamSynSent)
	if err := f.recvData(); err == nil {
		t.Fatalf("expected protocol violation receiving data before Established")
	}
}

func TestStreamFSMSendDataAfterLocalCloseIsViolation(t *testing.T) {
	f := newStreamFSM(streamLocalHalfClosed)
	if err := f.sendData(); err == nil {
		t.Fatalf("expected violation sending data after local half-close")
	}
}

func TestStreamFSMRSTFromAnyNonTerminalState(t *testing.T) {
	for _, st := range []streamState{streamIdle, streamSynSent, streamSynReceived, streamEstablished, streamLocalHalfClosed, streamRemoteHalfClosed} {
		f := newStreamFSM(st)
		if err := f.sendRST(); err != nil {
			t.Fatalf("sendRST from %s: %v", st, err)
		}
		if got := f.current(); got != streamReset {
			t.Fatalf("from %s: got %s, want Reset", st, got)
		}
	}
}

func TestStreamFSMRSTIsIdempotent(t *testing.T) {
	f := newStreamFSM(streamClosed)
	if err := f.sendRST(); err != nil {
		t.Fatalf("sendRST on already-terminal stream should be a no-op, got %v", err)
	}
	if got := f.current(); got != streamClosed {
		t.Fatalf("terminal state should not change, got %s", got)
	}
}

func TestStreamFSMACKOnEstablishedIsViolation(t *testing.T) {
	f := newStreamFSM(streamEstablished)
	if err := f.recvACK(); err == nil {
		t.Fatalf("expected violation receiving ACK on an already-Established stream")
	}
}
