package frame

// NewData builds a Data frame carrying payload, optionally tagged with the
// stream-open (syn) and/or half-close (fin) control bits. A zero-length
// Data frame is only legal when syn or fin is set.
func NewData(id StreamID, payload []byte, syn, fin bool) *Frame {
	var flags Flags
	if syn {
		flags |= FlagSYN
	}
	if fin {
		flags |= FlagFIN
	}
	return &Frame{
		Header: Header{
			Version:  Version,
			Type:     TypeData,
			Flags:    flags,
			StreamID: id,
			Length:   uint32(len(payload)),
		},
		Payload: payload,
	}
}

// NewChannelAck builds a zero-length WindowUpdate frame carrying ACK, used
// to accept an inbound stream-open request.
func NewChannelAck(id StreamID) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypeWindowUpdate, Flags: FlagACK, StreamID: id}}
}

// NewReset builds a WindowUpdate frame carrying RST, used to abort a
// stream unilaterally (e.g. a refused open, or a protocol violation local
// to one stream).
func NewReset(id StreamID) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypeWindowUpdate, Flags: FlagRST, StreamID: id}}
}

// NewWindowUpdate builds a WindowUpdate frame advertising delta additional
// bytes of receive credit for the stream.
func NewWindowUpdate(id StreamID, delta uint32) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypeWindowUpdate, StreamID: id, Length: delta}}
}

// NewSessionOpen builds the Ping|SYN frame a listener sends on attach to
// start the session handshake.
func NewSessionOpen() *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypePing, Flags: FlagSYN}}
}

// NewSessionOpenAck builds the Ping|ACK frame either side sends in
// response to SessionOpen.
func NewSessionOpenAck() *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypePing, Flags: FlagACK}}
}

// NewPing builds an ordinary keepalive/RTT Ping carrying an opaque echo
// value in the length field.
func NewPing(value uint32) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypePing, Length: value}}
}

// NewPingAck builds the Ping|ACK response echoing value back to the sender.
func NewPingAck(value uint32) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypePing, Flags: FlagACK, Length: value}}
}

// NewGoAway builds a GoAway frame announcing session termination with the
// given reason code.
func NewGoAway(code ErrorCode) *Frame {
	return &Frame{Header: Header{Version: Version, Type: TypeGoAway, Length: uint32(code)}}
}
