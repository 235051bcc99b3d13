package listops

// Queue is the ordered sequence of descriptors awaiting submission.
// Descriptors are removed from the front and never re-added. A queue belongs
// to exactly one dispatch invocation and is read from a single goroutine; it
// is not safe for concurrent use.
type Queue struct {
	items []Descriptor
}

// NewQueue builds a queue over a copy of descriptors, preserving their order.
func NewQueue(descriptors []Descriptor) *Queue {
	return &Queue{items: append([]Descriptor(nil), descriptors...)}
}

// Pull removes and returns up to n descriptors from the front, in original
// order. It returns fewer than n (possibly none) when the queue runs out.
func (q *Queue) Pull(n int) []Descriptor {
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	pulled := q.items[:n]
	q.items = q.items[n:]
	return pulled
}

// Len returns the number of descriptors still queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty reports whether any descriptors remain.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}
