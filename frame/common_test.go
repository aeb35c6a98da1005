package frame

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []Header{
		{Version: 0, Type: TypeData, Flags: FlagSYN | FlagFIN, StreamID: 1, Length: 12},
		{Version: 0, Type: TypeWindowUpdate, Flags: FlagRST, StreamID: 300},
		{Version: 0, Type: TypePing, Flags: FlagSYN},
		{Version: 0, Type: TypeGoAway, Length: uint32(ErrorProtocol)},
	}
	for _, h := range tests {
		f := &Frame{Header: h}
		if h.Type == TypeData {
			f.Payload = bytes.Repeat([]byte{0xAB}, int(h.Length))
		}
		var buf bytes.Buffer
		if err := Encode(&buf, f); err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, n, err := Decode(buf.Bytes())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n != buf.Len() {
			t.Fatalf("decode consumed %d bytes, want %d", n, buf.Len())
		}
		if got.Header != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got.Header, h)
		}
	}
}

func TestDecodeNeedsMoreData(t *testing.T) {
	t.Parallel()
	_, _, err := Decode([]byte{0, 0, 0, 1})
	if err != ErrNeedMoreData {
		t.Fatalf("expected ErrNeedMoreData, got %v", err)
	}

	f := NewData(1, []byte("hello world"), true, false)
	var buf bytes.Buffer
	Encode(&buf, f)
	_, _, err = Decode(buf.Bytes()[:HeaderSize+3])
	if err != ErrNeedMoreData {
		t.Fatalf("expected ErrNeedMoreData for split payload, got %v", err)
	}
}

func TestDecoderBuffersHeaderAcrossFeeds(t *testing.T) {
	t.Parallel()
	f := NewData(1, []byte("Hello World!"), true, true)
	var buf bytes.Buffer
	Encode(&buf, f)
	raw := buf.Bytes()

	var d Decoder
	var got []*Frame
	// Feed the header in two pieces, then the payload in two pieces.
	chunks := [][]byte{raw[:6], raw[6:HeaderSize], raw[HeaderSize : HeaderSize+4], raw[HeaderSize+4:]}
	for _, c := range chunks {
		if err := d.Feed(c, func(fr *Frame) error {
			got = append(got, fr)
			return nil
		}); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(got))
	}
	if string(got[0].Payload) != "Hello World!" {
		t.Fatalf("payload mismatch: %q", got[0].Payload)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	t.Parallel()
	b := []byte{1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}
	_, err := DecodeHeader(b)
	if _, ok := err.(*InvalidPacketError); !ok {
		t.Fatalf("expected InvalidPacketError, got %v", err)
	}
}

func TestDecodeRejectsWrongStreamZeroUse(t *testing.T) {
	t.Parallel()
	cases := []Header{
		{Type: TypePing, StreamID: 1},
		{Type: TypeGoAway, StreamID: 1},
		{Type: TypeData, StreamID: 0, Flags: FlagSYN},
		{Type: TypeWindowUpdate, StreamID: 0},
	}
	for _, h := range cases {
		f := &Frame{Header: h}
		var buf bytes.Buffer
		Encode(&buf, f)
		_, err := DecodeHeader(buf.Bytes())
		if _, ok := err.(*InvalidPacketError); !ok {
			t.Fatalf("case %+v: expected InvalidPacketError, got %v", h, err)
		}
	}
}

func TestDecodeRejectsEmptyDataWithNoFlags(t *testing.T) {
	t.Parallel()
	f := &Frame{Header: Header{Type: TypeData, StreamID: 1}}
	var buf bytes.Buffer
	Encode(&buf, f)
	_, err := DecodeHeader(buf.Bytes())
	if _, ok := err.(*InvalidPacketError); !ok {
		t.Fatalf("expected InvalidPacketError, got %v", err)
	}
}

func TestDecodeAllowsZeroLengthDataWithSynFin(t *testing.T) {
	t.Parallel()
	f := NewData(1, nil, true, true)
	var buf bytes.Buffer
	Encode(&buf, f)
	h, err := DecodeHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Flags.Has(FlagSYN) || !h.Flags.Has(FlagFIN) {
		t.Fatalf("flags lost: %v", h.Flags)
	}
}

func TestFlagBitsetIndependence(t *testing.T) {
	t.Parallel()
	all := []Flags{FlagSYN, FlagACK, FlagFIN, FlagRST}
	// iterate every subset of the four flags
	for mask := Flags(0); mask < 16; mask++ {
		var want Flags
		for _, f := range all {
			if mask&f != 0 {
				want |= f
			}
		}
		h := Header{Type: TypeWindowUpdate, StreamID: 7, Flags: want}
		var buf bytes.Buffer
		Encode(&buf, &Frame{Header: h})
		got, err := DecodeHeader(buf.Bytes())
		if err != nil {
			t.Fatalf("mask %x: %v", mask, err)
		}
		if got.Flags != want {
			t.Fatalf("mask %x: got flags %v, want %v", mask, got.Flags, want)
		}
	}
}

// Scenario 1 from the spec: listener session-open handshake.
func TestSessionOpenWireBytes(t *testing.T) {
	t.Parallel()
	f := NewSessionOpen()
	var buf bytes.Buffer
	Encode(&buf, f)
	want := []byte{0x00, 0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}

// Scenario 2 from the spec: ping echo.
func TestPingWireBytes(t *testing.T) {
	t.Parallel()
	f := NewPing(1234)
	var buf bytes.Buffer
	Encode(&buf, f)
	want := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0xD2}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}

	ack := NewPingAck(1234)
	buf.Reset()
	Encode(&buf, ack)
	wantAck := []byte{0x00, 0x02, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0xD2}
	if !bytes.Equal(buf.Bytes(), wantAck) {
		t.Fatalf("got % x, want % x", buf.Bytes(), wantAck)
	}
}

// Scenario 6 from the spec: graceful GoAway.
func TestGoAwayWireBytes(t *testing.T) {
	t.Parallel()
	raw := []byte{0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	h, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Type != TypeGoAway || ErrorCode(h.Length) != ErrorNone {
		t.Fatalf("unexpected header: %+v", h)
	}
}
