package frame

import (
	"bytes"
	"testing"
)

func TestFramerRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fr := NewFramer(&buf, &buf)

	frames := []*Frame{
		NewSessionOpen(),
		NewData(1, []byte("payload"), true, false),
		NewWindowUpdate(1, 512),
		NewGoAway(ErrorNone),
	}
	for _, f := range frames {
		if err := fr.WriteFrame(f); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, want := range frames {
		got, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Type != want.Type || got.StreamID != want.StreamID || got.Flags != want.Flags || got.Length != want.Length {
			t.Fatalf("got %+v, want %+v", got.Header, want.Header)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("payload mismatch: got %q want %q", got.Payload, want.Payload)
		}
	}
}

func TestDebugFramerPassesThrough(t *testing.T) {
	t.Parallel()
	var wire bytes.Buffer
	var trace bytes.Buffer
	fr := NewDebugFramer("test", &trace, NewFramer(&wire, &wire))

	if err := fr.WriteFrame(NewPing(7)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Length != 7 {
		t.Fatalf("got length %d, want 7", got.Length)
	}
	if trace.Len() == 0 {
		t.Fatalf("expected debug trace output")
	}
}
