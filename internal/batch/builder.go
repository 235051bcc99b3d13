package batch

import "github.com/bulklist/bulklist/internal/listops"

// Builder pulls size-limited batches off the front of an operation queue.
// Each call to Next drains the next chunk, so batches concatenated in build
// order reproduce the original queue exactly.
type Builder struct {
	queue   *listops.Queue
	size    int
	onError Directive
	built   int
}

// NewBuilder creates a builder over queue producing batches of up to size
// operations. The caller is responsible for validating size against the
// package bounds before constructing the builder.
func NewBuilder(queue *listops.Queue, size int, onError Directive) *Builder {
	return &Builder{queue: queue, size: size, onError: onError}
}

// Next builds the next batch and reports whether it was the last one, i.e.
// whether the queue is empty immediately after the pull. Next must not be
// called once the queue is exhausted; the dispatcher guarantees this
// precondition.
func (b *Builder) Next() (Batch, bool) {
	ops := b.queue.Pull(b.size)
	b.built++
	return Wrap(ops, b.onError, b.built), b.queue.IsEmpty()
}

// Exhausted reports whether the queue has been fully drained.
func (b *Builder) Exhausted() bool {
	return b.queue.IsEmpty()
}

// Built returns how many batches have been produced so far.
func (b *Builder) Built() int {
	return b.built
}

// Count calculates the number of batches needed for n operations at the
// given batch size.
func Count(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	batches := n / size
	if n%size > 0 {
		batches++
	}
	return batches
}

// Plan returns the size of each batch that Count predicts: all full except
// possibly a smaller trailing batch.
func Plan(n, size int) []int {
	total := Count(n, size)
	if total == 0 {
		return nil
	}
	sizes := make([]int, total)
	for i := range sizes {
		sizes[i] = size
	}
	if rem := n % size; rem > 0 {
		sizes[total-1] = rem
	}
	return sizes
}
