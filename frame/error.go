package frame

// InvalidPacketError reports a header that fails the §4.1 validation rules.
// It is always fatal to the session: the caller should fail with
// GoAway(ProtocolError) and close the transport.
type InvalidPacketError struct {
	Reason string
}

func (e *InvalidPacketError) Error() string {
	return "frame: invalid packet: " + e.Reason
}
