package channel

import (
	"testing"
	"time"
)

func TestBufferedTrySend(t *testing.T) {
	b := NewBuffered[int](2)

	if !b.TrySend(1) {
		t.Error("TrySend should accept with buffer space free")
	}
	if !b.TrySend(2) {
		t.Error("TrySend should accept up to capacity")
	}
	if b.TrySend(3) {
		t.Error("TrySend should refuse when the buffer is full")
	}
	if b.Len() != 2 {
		t.Errorf("expected Len=2, got %d", b.Len())
	}

	// Draining one slot makes room again
	if got := <-b.Receive(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if !b.TrySend(3) {
		t.Error("TrySend should accept after a receive freed a slot")
	}
}

func TestUnbufferedTrySendWithoutReceiver(t *testing.T) {
	u := NewUnbuffered[string]()

	if u.TrySend("dropped") {
		t.Error("TrySend should refuse when no receiver is ready")
	}

	got := make(chan string, 1)
	go func() {
		got <- <-u.Receive()
	}()

	// The receiver goroutine may not be parked in Receive yet, so poll
	// rather than asserting the first attempt lands.
	deadline := time.Now().Add(2 * time.Second)
	delivered := false
	for !delivered && time.Now().Before(deadline) {
		delivered = u.TrySend("hello")
		if !delivered {
			time.Sleep(time.Millisecond)
		}
	}
	if !delivered {
		t.Fatal("TrySend never reached a waiting receiver")
	}
	if v := <-got; v != "hello" {
		t.Errorf("expected hello, got %q", v)
	}
}
