// Package frame implements the yamux wire codec: the 12-byte frame header,
// its four frame kinds, and the canonical "messages" view a session uses to
// process a frame's effects in a deterministic order.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

var order = binary.BigEndian

const (
	// Version is the only protocol version this codec understands.
	Version uint8 = 0

	// HeaderSize is the fixed size, in bytes, of every frame header.
	HeaderSize = 12
)

// Type identifies the kind of a frame.
type Type uint8

const (
	TypeData         Type = 0
	TypeWindowUpdate Type = 1
	TypePing         Type = 2
	TypeGoAway       Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "Data"
	case TypeWindowUpdate:
		return "WindowUpdate"
	case TypePing:
		return "Ping"
	case TypeGoAway:
		return "GoAway"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

func (t Type) valid() bool {
	return t <= TypeGoAway
}

// Flags is the bitset carried in every frame header.
type Flags uint16

const (
	FlagSYN Flags = 1 << 0
	FlagACK Flags = 1 << 1
	FlagFIN Flags = 1 << 2
	FlagRST Flags = 1 << 3
)

func (f Flags) Has(g Flags) bool { return f&g == g }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	s := ""
	add := func(name string, bit Flags) {
		if f.Has(bit) {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add("SYN", FlagSYN)
	add("ACK", FlagACK)
	add("FIN", FlagFIN)
	add("RST", FlagRST)
	return s
}

// StreamID is the 32-bit identifier of a stream within a session. 0 is
// reserved for session-level control frames.
type StreamID uint32

// ErrorCode is the GoAway reason code carried in the length field.
type ErrorCode uint32

const (
	ErrorNone     ErrorCode = 0
	ErrorProtocol ErrorCode = 1
	ErrorInternal ErrorCode = 2
)

// Header is the 12-byte fixed portion of a frame.
type Header struct {
	Version  uint8
	Type     Type
	Flags    Flags
	StreamID StreamID
	Length   uint32
}

// Frame is a decoded header plus, for Data frames, its payload.
type Frame struct {
	Header
	Payload []byte
}

// ErrNeedMoreData indicates the reader did not have enough bytes buffered to
// decode a complete frame; no bytes were consumed and the caller should
// retry once more data has arrived.
var ErrNeedMoreData = fmt.Errorf("frame: need more data")

// Encode writes the 12-byte header followed by the payload (Data frames
// only) to w.
func Encode(w io.Writer, f *Frame) error {
	var hdr [HeaderSize]byte
	hdr[0] = f.Version
	hdr[1] = uint8(f.Type)
	order.PutUint16(hdr[2:4], uint16(f.Flags))
	order.PutUint32(hdr[4:8], uint32(f.StreamID))
	order.PutUint32(hdr[8:12], f.Length)

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}
	if f.Type == TypeData && len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("frame: write payload: %w", err)
		}
	}
	return nil
}

// DecodeHeader parses exactly HeaderSize bytes into a Header, applying the
// §4.1 validation rules. It does not consume a Data payload.
func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrNeedMoreData
	}
	h.Version = b[0]
	h.Type = Type(b[1])
	h.Flags = Flags(order.Uint16(b[2:4]))
	h.StreamID = StreamID(order.Uint32(b[4:8]))
	h.Length = order.Uint32(b[8:12])

	if h.Version != Version {
		return h, &InvalidPacketError{fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if !h.Type.valid() {
		return h, &InvalidPacketError{fmt.Sprintf("unknown frame type %d", h.Type)}
	}
	switch h.Type {
	case TypePing, TypeGoAway:
		if h.StreamID != 0 {
			return h, &InvalidPacketError{fmt.Sprintf("%s frame must use stream 0, got %d", h.Type, h.StreamID)}
		}
	case TypeData, TypeWindowUpdate:
		if h.StreamID == 0 {
			return h, &InvalidPacketError{fmt.Sprintf("%s frame must not use stream 0", h.Type)}
		}
	}
	if h.Type == TypeData && h.Length == 0 && h.Flags == 0 {
		return h, &InvalidPacketError{"zero-length DATA frame carries no flags"}
	}
	return h, nil
}

// Decode attempts to parse a complete frame (header plus, for Data, its
// payload) from the front of b. It returns the number of bytes consumed. If
// there isn't enough data buffered yet it returns ErrNeedMoreData and
// consumes nothing; callers should retain any partially parsed header
// rather than re-parsing it on the next call (see Decoder).
func Decode(b []byte) (*Frame, int, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, 0, err
	}
	if h.Type != TypeData {
		return &Frame{Header: h}, HeaderSize, nil
	}
	total := HeaderSize + int(h.Length)
	if len(b) < total {
		return nil, 0, ErrNeedMoreData
	}
	payload := make([]byte, h.Length)
	copy(payload, b[HeaderSize:total])
	return &Frame{Header: h, Payload: payload}, total, nil
}

// Decoder incrementally reassembles frames out of a byte stream, buffering
// a parsed header across calls so that Decode never re-parses it while
// waiting on a split payload.
type Decoder struct {
	pending   *Header
	pendingAt int // bytes of payload already consumed into buf
	buf       []byte
}

// Feed appends newly read bytes and drains as many complete frames as
// possible, invoking emit for each one in arrival order.
func (d *Decoder) Feed(b []byte, emit func(*Frame) error) error {
	d.buf = append(d.buf, b...)
	for {
		if d.pending == nil {
			if len(d.buf) < HeaderSize {
				return nil
			}
			h, err := DecodeHeader(d.buf[:HeaderSize])
			if err != nil {
				return err
			}
			d.buf = d.buf[HeaderSize:]
			hCopy := h
			d.pending = &hCopy
		}

		h := d.pending
		if h.Type != TypeData {
			d.pending = nil
			if err := emit(&Frame{Header: *h}); err != nil {
				return err
			}
			continue
		}

		if uint32(len(d.buf)) < h.Length {
			return nil
		}
		payload := make([]byte, h.Length)
		copy(payload, d.buf[:h.Length])
		d.buf = d.buf[h.Length:]
		d.pending = nil
		if err := emit(&Frame{Header: *h, Payload: payload}); err != nil {
			return err
		}
	}
}
