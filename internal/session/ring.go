package session

import "sync"

// DefaultRingCapacity bounds how much recent terminal output is retained for
// suggestion context.
const DefaultRingCapacity = 2048

// Ring is a fixed-capacity byte buffer over the child shell's output stream.
// Appends evict from the front once full, so the contents are always the
// suffix of everything written, at most capacity bytes long. The output pump
// is the only writer; the orchestrator reads point-in-time snapshots.
type Ring struct {
	mu       sync.Mutex
	buf      []byte
	capacity int
	pos      int // next write position
	full     bool
}

// NewRing creates a ring with the given capacity. Non-positive capacities
// fall back to DefaultRingCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
}

// Append adds bytes to the tail, discarding from the head when full. Chunks
// larger than the capacity keep only their trailing capacity bytes.
func (r *Ring) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) >= r.capacity {
		copy(r.buf, p[len(p)-r.capacity:])
		r.pos = 0
		r.full = true
		return
	}

	n := copy(r.buf[r.pos:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
		r.full = true
	}
	r.pos = (r.pos + len(p)) % r.capacity
	if r.pos == 0 {
		r.full = true
	}
}

// Snapshot returns a copy of the current contents in write order. The copy is
// taken under the lock so a concurrent Append can never mutate a snapshot the
// caller already holds.
func (r *Ring) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]byte, r.pos)
		copy(out, r.buf[:r.pos])
		return out
	}

	out := make([]byte, r.capacity)
	copy(out, r.buf[r.pos:])
	copy(out[r.capacity-r.pos:], r.buf[:r.pos])
	return out
}

// Reset discards the contents. Called at each command boundary so context
// snapshots cover only the most recent command's output.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.full = false
}

// Len reports the number of retained bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return r.capacity
	}
	return r.pos
}
