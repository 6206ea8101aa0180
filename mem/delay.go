package mem

// DelayQueue staggers bus-request delivery by a fixed number of
// cycles so a driver can give a BusMemory a non-trivial access latency
// without the processor or memory-access unit ever seeing it — the
// delay lives entirely in the collaborator a driver wires up, per
// SPEC_FULL.md §12. A driver submits each popped request as it comes
// off the processor, then asks Ready for whatever has waited out its
// delay as of the current cycle before actually calling
// BusMemory.Service and delivering the response.
type DelayQueue struct {
	cycles  uint64
	pending []delayedRequest
}

type delayedRequest struct {
	req     Request
	readyAt uint64
}

// NewDelayQueue returns a queue that holds every submitted request for
// cycles cycles before it becomes Ready. A zero-cycle queue makes
// every submission immediately ready.
func NewDelayQueue(cycles uint64) *DelayQueue {
	return &DelayQueue{cycles: cycles}
}

// Submit enqueues req, to become ready at now+cycles.
func (q *DelayQueue) Submit(req Request, now uint64) {
	q.pending = append(q.pending, delayedRequest{req: req, readyAt: now + q.cycles})
}

// Ready removes and returns every request whose delay has elapsed as
// of now, in the order they were submitted.
func (q *DelayQueue) Ready(now uint64) []Request {
	var ready []Request
	remaining := q.pending[:0]
	for _, d := range q.pending {
		if d.readyAt <= now {
			ready = append(ready, d.req)
		} else {
			remaining = append(remaining, d)
		}
	}
	q.pending = remaining
	return ready
}

// Len reports the number of requests still waiting out their delay.
func (q *DelayQueue) Len() int { return len(q.pending) }
