package realtime

// ring is a bounded buffer of the most recent events on one channel.
// When full, appending evicts the oldest entry.
type ring struct {
	buf   []Event
	start int
	size  int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]Event, capacity)}
}

func (r *ring) append(e Event) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// tail returns up to limit of the most recent events, oldest first. A
// non-positive limit yields nothing; the result never exceeds limit.
// The returned slice is a copy; callers may hold it without locking.
func (r *ring) tail(limit int) []Event {
	if limit <= 0 {
		return nil
	}
	if limit > r.size {
		limit = r.size
	}
	out := make([]Event, 0, limit)
	for i := r.size - limit; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

func (r *ring) len() int {
	return r.size
}
