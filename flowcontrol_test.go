package yamux

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestOutboundFlowReserveGrantsUpToFreeWindow(t *testing.T) {
	o := newOutboundFlow(10)
	ctx := context.Background()

	got, err := o.reserve(ctx, 20)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got != 10 {
		t.Fatalf("got grant %d, want 10 (capped by free window)", got)
	}
	if o.isWritable() {
		t.Fatalf("expected not writable once free window is exhausted")
	}
}

func TestOutboundFlowReserveBlocksUntilWindowIncrement(t *testing.T) {
	o := newOutboundFlow(0)
	ctx := context.Background()

	done := make(chan uint32, 1)
	go func() {
		got, err := o.reserve(ctx, 5)
		if err != nil {
			t.Errorf("reserve: %v", err)
		}
		done <- got
	}()

	select {
	case <-done:
		t.Fatalf("reserve returned before any credit was granted")
	case <-time.After(20 * time.Millisecond):
	}

	if err := o.onWindowIncrement(5); err != nil {
		t.Fatalf("onWindowIncrement: %v", err)
	}

	select {
	case got := <-done:
		if got != 5 {
			t.Fatalf("got %d, want 5", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("reserve never unblocked after window increment")
	}
}

func TestOutboundFlowReserveRespectsContextCancellation(t *testing.T) {
	o := newOutboundFlow(0)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := o.reserve(ctx, 5)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("reserve did not observe context cancellation")
	}
}

func TestOutboundFlowWindowIncrementOverflowIsRejected(t *testing.T) {
	o := newOutboundFlow(math.MaxUint32 - 10)
	if err := o.onWindowIncrement(20); err == nil {
		t.Fatalf("expected overflow to be rejected")
	}
	if GetErrorKind(o.onWindowIncrement(20)) != KindFlowControlViolation {
		t.Fatalf("expected KindFlowControlViolation")
	}
}

func TestOutboundFlowSetErrorUnblocksReserve(t *testing.T) {
	o := newOutboundFlow(0)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := o.reserve(ctx, 5)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	o.setError(errStreamReset)

	select {
	case err := <-errCh:
		if GetErrorKind(err) != KindStreamNotWritable {
			t.Fatalf("got %v, want stream-reset error", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("reserve did not unblock on setError")
	}
}

func TestOutboundFlowIsWritableTracksBufferedBytes(t *testing.T) {
	o := newOutboundFlow(100)
	o.onBuffer(100)
	if o.isWritable() {
		t.Fatalf("expected not writable once buffered == free window")
	}
	o.onBuffer(1)
	if o.isWritable() {
		t.Fatalf("expected not writable once buffered exceeds free window")
	}
}

func TestInboundFlowEmitsIncrementOnceThresholdCrossed(t *testing.T) {
	i := newInboundFlow(100, 2) // threshold 50

	if _, ok := i.onConsume(30); ok {
		t.Fatalf("did not expect an increment before threshold")
	}
	inc, ok := i.onConsume(25)
	if !ok {
		t.Fatalf("expected an increment once 55 bytes were consumed")
	}
	if inc != 55 {
		t.Fatalf("got increment %d, want 55", inc)
	}

	if _, ok := i.onConsume(1); ok {
		t.Fatalf("counter should have reset after the increment was emitted")
	}
}

func TestInboundFlowDefaultsDivisorToTwo(t *testing.T) {
	i := newInboundFlow(200, 0)
	if i.threshold != 100 {
		t.Fatalf("got threshold %d, want 100", i.threshold)
	}
}
