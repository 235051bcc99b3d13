// Package batch turns a queue of serialized operations into size-limited
// batch units carrying the error directive the remote service honors while
// processing them.
package batch

import (
	"errors"
	"fmt"

	"github.com/bulklist/bulklist/internal/listops"
)

// Batching configuration bounds.
const (
	// DefaultBatchSize is the default number of operations per batch.
	DefaultBatchSize = 100

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum batch size the service envelope accepts.
	MaxBatchSize = 1000

	// DefaultConcurrency is the default number of simultaneous batch
	// submissions.
	DefaultConcurrency = 2
)

// Common batching errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrInvalidDirective = errors.New(`error directive must be "continue" or "return"`)
)

// Directive tells the remote service what to do with the rest of a batch
// after one of its operations fails. It governs behavior within a single
// batch only; sibling batches are dispatched independently either way.
type Directive string

const (
	// Continue lets the service keep processing the remaining operations in
	// the batch after a failure.
	Continue Directive = "continue"

	// Return makes the service abort the remainder of the batch on the
	// first failure.
	Return Directive = "return"
)

// ParseDirective converts s into a Directive, rejecting unknown values.
func ParseDirective(s string) (Directive, error) {
	switch Directive(s) {
	case Continue, Return:
		return Directive(s), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidDirective, s)
	}
}

// Valid reports whether d is a known directive.
func (d Directive) Valid() bool {
	return d == Continue || d == Return
}

// Batch is one submittable group of operations. Built once by a Builder,
// consumed exactly once by a transport, not retained after submission.
type Batch struct {
	// Seq is the 1-based build order of the batch within one dispatch.
	Seq int

	// Ops holds the batch's descriptors in original queue order.
	Ops []listops.Descriptor

	// OnError is the intra-batch error directive for the remote service.
	OnError Directive
}

// Wrap assembles descriptors into a Batch. Purely structural; no validation,
// no network access.
func Wrap(ops []listops.Descriptor, onError Directive, seq int) Batch {
	return Batch{Seq: seq, Ops: ops, OnError: onError}
}

// Size returns the number of operations in the batch.
func (b Batch) Size() int {
	return len(b.Ops)
}
