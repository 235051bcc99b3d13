package dispatch

import (
	"encoding/json"
	"time"

	"github.com/bulklist/bulklist/internal/listops"
)

// Status classifies an aggregated dispatch result.
type Status string

const (
	// StatusSuccess means every batch was delivered and no payload carried
	// an application-level error.
	StatusSuccess Status = "success"

	// StatusError means at least one batch failed in transit or a delivered
	// payload carried an application-level error.
	StatusError Status = "error"
)

// SuccessMessage is the fixed message reported when nothing went wrong.
const SuccessMessage = "all batches completed"

// Outcome records what happened to one submitted batch. Outcomes accumulate
// in completion order, which can differ from submission order when batches
// finish out of order.
type Outcome struct {
	// Seq is the batch's 1-based submission order.
	Seq int

	// Size is the number of operations the batch carried.
	Size int

	// Response is the delivered response; nil when the submission failed.
	Response *listops.BatchResponse

	// Err is the transport failure; nil when the submission succeeded.
	Err error
}

// Failed reports whether the submission failed in transit.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Stats summarizes one dispatch.
type Stats struct {
	// Operations is the number of descriptors drained from the queue.
	Operations int

	// Batches is the number of batches built and submitted.
	Batches int

	// Failures is the number of batches that failed in transit.
	Failures int

	// Elapsed is the wall-clock duration of the dispatch.
	Elapsed time.Duration
}

// Result is the single aggregated answer for one dispatch.
type Result struct {
	Status  Status
	Message string

	// Payload holds a single listops.Payload when exactly one batch was
	// submitted and a []listops.Payload in completion order when more than
	// one was, so single-batch callers never unwrap a one-element sequence.
	// Failed batches contribute a zero Payload entry in the multi-batch
	// shape. Nil when no batch was submitted.
	Payload any

	// Raw mirrors Payload's shape with the raw response bodies: a single
	// json.RawMessage or a []json.RawMessage in completion order.
	Raw any

	// Outcomes lists every per-batch outcome in completion order.
	Outcomes []Outcome

	// Stats summarizes the dispatch.
	Stats Stats
}

// Failed reports whether the aggregated status is StatusError.
func (r *Result) Failed() bool {
	return r.Status == StatusError
}

// aggregate derives the single Result from all outcomes. The scan never
// short-circuits: a transport failure later in completion order overwrites
// the reported message of an earlier one ("last failure wins"), while
// application-level errors found by the inspector report the first one. The
// same outcome sequence always aggregates to the same Result.
func aggregate(outcomes []Outcome, inspector ErrorInspector) *Result {
	result := &Result{
		Status:   StatusSuccess,
		Message:  SuccessMessage,
		Outcomes: outcomes,
	}

	var (
		transportFailed bool
		lastFailure     string
		appErrFound     bool
		firstAppErr     string
	)
	for _, o := range outcomes {
		if o.Failed() {
			transportFailed = true
			lastFailure = o.Err.Error()
			continue
		}
		if !appErrFound && o.Response != nil && inspector.HasError(o.Response.Payload) {
			appErrFound = true
			firstAppErr = inspector.Message(o.Response.Payload)
		}
	}

	switch {
	case transportFailed:
		result.Status = StatusError
		result.Message = lastFailure
	case appErrFound:
		result.Status = StatusError
		result.Message = firstAppErr
	}

	switch len(outcomes) {
	case 0:
	case 1:
		if response := outcomes[0].Response; response != nil {
			result.Payload = response.Payload
			result.Raw = response.Raw
		}
	default:
		payloads := make([]listops.Payload, len(outcomes))
		raws := make([]json.RawMessage, len(outcomes))
		for i, o := range outcomes {
			if o.Response != nil {
				payloads[i] = o.Response.Payload
				raws[i] = o.Response.Raw
			}
		}
		result.Payload = payloads
		result.Raw = raws
	}

	return result
}

func countFailures(outcomes []Outcome) int {
	failures := 0
	for _, o := range outcomes {
		if o.Failed() {
			failures++
		}
	}
	return failures
}
