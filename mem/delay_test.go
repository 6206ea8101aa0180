package mem

import "testing"

func TestDelayQueueHoldsRequestsForTheConfiguredCycles(t *testing.T) {
	q := NewDelayQueue(3)
	req := NewLoadRequest("mem0", 0, 10, 4)
	q.Submit(req, 5) // ready at cycle 8

	for cycle := uint64(5); cycle < 8; cycle++ {
		if ready := q.Ready(cycle); len(ready) != 0 {
			t.Fatalf("cycle %d: expected nothing ready yet, got %v", cycle, ready)
		}
	}
	ready := q.Ready(8)
	if len(ready) != 1 || ready[0].Address != 10 || ready[0].Len != 4 {
		t.Fatalf("cycle 8: expected the request to be ready, got %v", ready)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after draining its only request")
	}
}

func TestDelayQueueZeroCyclesIsImmediatelyReady(t *testing.T) {
	q := NewDelayQueue(0)
	req := NewStoreRequest("mem0", 0, 20, []byte{1, 2, 3, 4})
	q.Submit(req, 10)

	ready := q.Ready(10)
	if len(ready) != 1 || ready[0].Address != 20 || ready[0].Kind != Store {
		t.Fatalf("expected the request to be ready the same cycle, got %v", ready)
	}
}

func TestDelayQueuePreservesSubmissionOrder(t *testing.T) {
	q := NewDelayQueue(1)
	first := NewLoadRequest("mem0", 0, 0, 4)
	second := NewLoadRequest("mem0", 1, 4, 4)
	q.Submit(first, 0)
	q.Submit(second, 0)

	ready := q.Ready(1)
	if len(ready) != 2 || ready[0].Slot != 0 || ready[1].Slot != 1 {
		t.Fatalf("expected [first, second] in submission order, got %v", ready)
	}
}
