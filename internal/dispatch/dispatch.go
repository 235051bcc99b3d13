// Package dispatch submits batched list operations as a bounded number of
// concurrently in-flight requests and aggregates every per-batch outcome
// into one result. Individual batch failures are absorbed into the result;
// the only errors returned to callers are configuration mistakes detected
// before any network activity.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bulklist/bulklist/internal/batch"
	"github.com/bulklist/bulklist/internal/listops"
	"github.com/bulklist/bulklist/internal/logging"
)

// Common configuration errors.
var (
	ErrNilTransport       = errors.New("transport cannot be nil")
	ErrNilQueue           = errors.New("operation queue cannot be nil")
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
)

// Transport sends one batch over the network. Submit yields exactly one
// outcome per call: a response or an error, never both. Ordinary remote
// failures come back as errors; timeout behavior is the transport's business
// and a timeout is treated like any other failure.
type Transport interface {
	Submit(ctx context.Context, b batch.Batch) (*listops.BatchResponse, error)
}

// ErrorInspector detects an application-level failure embedded in a
// delivered payload and extracts its human-readable message.
type ErrorInspector interface {
	HasError(p listops.Payload) bool
	Message(p listops.Payload) string
}

// Options configures one dispatch. The value is copied at construction and
// never shared or mutated afterwards, so concurrent dispatchers cannot
// interfere with each other's configuration.
type Options struct {
	// BatchSize caps the number of operations per network call. Zero means
	// batch.DefaultBatchSize.
	BatchSize int

	// Concurrency caps the number of simultaneous in-flight submissions.
	// Zero means batch.DefaultConcurrency.
	Concurrency int

	// OnError is the intra-batch directive sent to the service. Empty means
	// batch.Continue.
	OnError batch.Directive

	// Inspector classifies delivered payloads. Nil means PayloadInspector.
	Inspector ErrorInspector

	// OnProgress, when set, is invoked after every batch completion. It is
	// called from submission goroutines and must be safe for concurrent use.
	OnProgress batch.ProgressFunc
}

// withDefaults returns a copy of o with zero values filled in.
func (o Options) withDefaults() Options {
	if o.BatchSize == 0 {
		o.BatchSize = batch.DefaultBatchSize
	}
	if o.Concurrency == 0 {
		o.Concurrency = batch.DefaultConcurrency
	}
	if o.OnError == "" {
		o.OnError = batch.Continue
	}
	if o.Inspector == nil {
		o.Inspector = PayloadInspector{}
	}
	return o
}

// Validate checks the option values against the batching bounds.
func (o Options) Validate() error {
	if o.BatchSize < batch.MinBatchSize || o.BatchSize > batch.MaxBatchSize {
		return fmt.Errorf("%w: got %d", batch.ErrInvalidBatchSize, o.BatchSize)
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.Concurrency)
	}
	if !o.OnError.Valid() {
		return fmt.Errorf("%w: got %q", batch.ErrInvalidDirective, o.OnError)
	}
	return nil
}

// Dispatcher drives batched submissions against one transport.
type Dispatcher struct {
	transport Transport
	opts      Options
}

// New creates a dispatcher. Zero option values are defaulted before
// validation, so Options{} is a valid configuration.
func New(transport Transport, opts Options) (*Dispatcher, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{transport: transport, opts: opts}, nil
}

// Dispatch drains the queue into batches, submits them with at most
// Concurrency in flight, and aggregates all outcomes into one Result. The
// queue must be exclusively owned by this invocation.
//
// Every built batch is submitted and awaited: a failed submission never
// cancels, skips, or retries siblings, and ctx is only passed through to the
// transport (a transport that honors cancellation produces ordinary failure
// outcomes). An empty queue resolves immediately with a success result and
// no transport calls.
func (d *Dispatcher) Dispatch(ctx context.Context, queue *listops.Queue) (*Result, error) {
	if queue == nil {
		return nil, ErrNilQueue
	}

	log := logging.FromContext(ctx)
	dispatchID := logging.NewID()
	totalOps := queue.Len()
	totalBatches := batch.Count(totalOps, d.opts.BatchSize)
	start := time.Now()

	log.Debug().Ctx(ctx).
		Str("component", "dispatch").
		Str("operation", "dispatch").
		Str("dispatch_id", dispatchID).
		Int("operations", totalOps).
		Int("batches", totalBatches).
		Int("batch_size", d.opts.BatchSize).
		Int("concurrency", d.opts.Concurrency).
		Str("on_error", string(d.opts.OnError)).
		Msg("starting dispatch")

	if queue.IsEmpty() {
		result := aggregate(nil, d.opts.Inspector)
		result.Stats.Elapsed = time.Since(start)
		return result, nil
	}

	builder := batch.NewBuilder(queue, d.opts.BatchSize, d.opts.OnError)
	progress := batch.NewProgress(totalOps, totalBatches)

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)

	// g.Go blocks whenever Concurrency submissions are already in flight, so
	// this loop saturates the window up front and every completion
	// immediately frees a slot for the next launch. All queue pulls happen
	// here, in the producer goroutine.
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)

	for {
		b, last := builder.Next()
		g.Go(func() error {
			response, err := d.transport.Submit(ctx, b)
			if err != nil {
				log.Warn().Ctx(ctx).
					Str("component", "dispatch").
					Str("dispatch_id", dispatchID).
					Int("batch", b.Seq).
					Err(err).
					Msg("batch submission failed")
			}

			mu.Lock()
			outcomes = append(outcomes, Outcome{
				Seq:      b.Seq,
				Size:     b.Size(),
				Response: response,
				Err:      err,
			})
			mu.Unlock()

			progress.Add(b.Size())
			if d.opts.OnProgress != nil {
				d.opts.OnProgress(progress.Snapshot())
			}
			// Never propagate: one failed batch must not cancel its siblings.
			return nil
		})
		if last {
			break
		}
	}

	// The queue is exhausted; wait until no submission is in flight.
	_ = g.Wait()

	result := aggregate(outcomes, d.opts.Inspector)
	result.Stats = Stats{
		Operations: totalOps,
		Batches:    totalBatches,
		Failures:   countFailures(outcomes),
		Elapsed:    time.Since(start),
	}

	log.Debug().Ctx(ctx).
		Str("component", "dispatch").
		Str("operation", "dispatch").
		Str("dispatch_id", dispatchID).
		Str("status", string(result.Status)).
		Int("failures", result.Stats.Failures).
		Dur("elapsed", result.Stats.Elapsed).
		Msg("dispatch complete")

	return result, nil
}
