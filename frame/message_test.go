package frame

import (
	"bytes"
	"reflect"
	"testing"
)

// Scenario 3 from the spec: a single Data frame that opens a stream,
// delivers a payload, and half-closes it, in that order.
func TestMessagesDataOpenSendClose(t *testing.T) {
	t.Parallel()
	raw := []byte{
		0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0C,
	}
	raw = append(raw, []byte("Hello World!")...)

	got, n, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d bytes, want %d", n, len(raw))
	}

	msgs := Messages(got)
	want := []Kind{KindChannelOpen, KindChannelData, KindChannelClose}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(msgs), len(want), msgs)
	}
	for i, k := range want {
		if msgs[i].Kind != k {
			t.Fatalf("message %d: got %s, want %s", i, msgs[i].Kind, k)
		}
		if msgs[i].StreamID != 1 {
			t.Fatalf("message %d: got stream %d, want 1", i, msgs[i].StreamID)
		}
	}
	if !bytes.Equal(msgs[1].Payload, []byte("Hello World!")) {
		t.Fatalf("payload mismatch: %q", msgs[1].Payload)
	}
}

func TestMessagesWindowUpdateOrdering(t *testing.T) {
	t.Parallel()
	f := &Frame{Header: Header{Type: TypeWindowUpdate, StreamID: 5, Flags: FlagSYN | FlagFIN, Length: 1024}}
	msgs := Messages(f)
	want := []Kind{KindChannelOpen, KindChannelWindowAdjust, KindChannelClose}
	got := make([]Kind, len(msgs))
	for i, m := range msgs {
		got[i] = m.Kind
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if msgs[1].WindowIncrement != 1024 {
		t.Fatalf("window increment mismatch: %d", msgs[1].WindowIncrement)
	}
}

func TestMessagesPingVariants(t *testing.T) {
	t.Parallel()
	open := Messages(NewSessionOpen())
	if len(open) != 1 || open[0].Kind != KindSessionOpen {
		t.Fatalf("unexpected session-open messages: %+v", open)
	}
	ack := Messages(NewSessionOpenAck())
	if len(ack) != 1 || ack[0].Kind != KindSessionOpenAck {
		t.Fatalf("unexpected session-open-ack messages: %+v", ack)
	}
	ping := Messages(NewPing(42))
	if len(ping) != 1 || ping[0].Kind != KindPing || ping[0].PingValue != 42 {
		t.Fatalf("unexpected ping messages: %+v", ping)
	}
}

func TestMessagesGoAway(t *testing.T) {
	t.Parallel()
	msgs := Messages(NewGoAway(ErrorProtocol))
	if len(msgs) != 1 || msgs[0].Kind != KindGoAway || msgs[0].ErrorCode != ErrorProtocol {
		t.Fatalf("unexpected goaway messages: %+v", msgs)
	}
}

func TestMessagesZeroLengthDataOmitted(t *testing.T) {
	t.Parallel()
	f := NewData(3, nil, false, true)
	msgs := Messages(f)
	if len(msgs) != 1 || msgs[0].Kind != KindChannelClose {
		t.Fatalf("expected only ChannelClose for empty FIN-only data, got %+v", msgs)
	}
}
