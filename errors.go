package yamux

import (
	"errors"
	"fmt"
	"io"

	"github.com/flowmux/yamux/frame"
)

// ErrorKind classifies a yamux error without tying callers to a specific
// error value. Kinds are local only: a GoAway frame carries the wire code
// goAwayCode maps a kind to, and RST frames carry no code at all.
type ErrorKind uint32

const (
	// KindNone indicates a graceful close; no error occurred.
	KindNone ErrorKind = iota
	// KindInvalidPacketFormat: a header failed decode-time validation.
	KindInvalidPacketFormat
	// KindProtocolViolation: a peer broke a state machine or flow-control rule.
	KindProtocolViolation
	// KindUnsupportedVersion: the peer advertised a version other than 0.
	KindUnsupportedVersion
	// KindChannelSetupRejected: a stream could not be opened (collision,
	// quiesce, exhausted ID space, or acceptor refusal).
	KindChannelSetupRejected
	// KindFlowControlViolation: a peer exceeded its granted credit, or a
	// window increment would overflow.
	KindFlowControlViolation
	// KindStreamNotWritable: caller wrote to a half-closed/closed/reset stream.
	KindStreamNotWritable
	// KindTransportShutdown: the underlying transport ended.
	KindTransportShutdown
	// KindUnknownStream: a frame referenced a stream id we never allocated.
	KindUnknownStream
	// KindSessionClosed: the session is no longer usable.
	KindSessionClosed
	// KindInternal: a local invariant was violated; always a bug.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidPacketFormat:
		return "invalid packet format"
	case KindProtocolViolation:
		return "protocol violation"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindChannelSetupRejected:
		return "channel setup rejected"
	case KindFlowControlViolation:
		return "flow control violation"
	case KindStreamNotWritable:
		return "stream not writable"
	case KindTransportShutdown:
		return "transport shutdown"
	case KindUnknownStream:
		return "unknown stream"
	case KindSessionClosed:
		return "session closed"
	case KindInternal:
		return "internal error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint32(k))
	}
}

// Error wraps an underlying cause with the ErrorKind that determines how
// the session and callers should react to it.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("yamux: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("yamux: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func errf(kind ErrorKind, format string, args ...interface{}) *Error {
	return newErr(kind, fmt.Errorf(format, args...))
}

// GetErrorKind unwraps err (if it is, or wraps, a *yamux.Error) and returns
// its kind; a nil err gives KindNone, and any other error KindInternal.
func GetErrorKind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ye *Error
	if errors.As(err, &ye) {
		return ye.Kind
	}
	return KindInternal
}

// goAwayCode maps a local ErrorKind to the wire-level GoAway reason code
// advertised to the peer (§4.2 in the protocol notes): only "no error",
// "protocol error" and "internal error" travel on the wire, so every other
// kind collapses to the closest of those three.
func goAwayCode(kind ErrorKind) frame.ErrorCode {
	switch kind {
	case KindNone, KindSessionClosed:
		return frame.ErrorNone
	case KindInvalidPacketFormat, KindProtocolViolation, KindUnsupportedVersion, KindFlowControlViolation, KindUnknownStream:
		return frame.ErrorProtocol
	default:
		return frame.ErrorInternal
	}
}

func fromFrameError(err error) error {
	if err == nil {
		return nil
	}
	if ipe, ok := err.(*frame.InvalidPacketError); ok {
		return newErr(KindInvalidPacketFormat, ipe)
	}
	return err
}

var (
	errSessionClosed     = newErr(KindSessionClosed, errors.New("session closed"))
	errTransportShutdown = newErr(KindTransportShutdown, errors.New("transport shutdown"))
	errStreamNotWritable = newErr(KindStreamNotWritable, errors.New("stream is not writable"))
	errStreamsExhausted  = errf(KindChannelSetupRejected, "local stream id space exhausted")
	errRemoteGoneAway    = errf(KindChannelSetupRejected, "remote has sent GoAway; no new streams may be opened")
	errStreamReset       = newErr(KindStreamNotWritable, errors.New("stream was reset"))
	errEOF               = io.EOF
)
