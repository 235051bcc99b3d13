package listops

import "encoding/json"

// Per-operation result statuses reported by the list service.
const (
	OpStatusOK    = "ok"
	OpStatusError = "error"
)

// OpResult is the service's verdict on one operation within a batch.
type OpResult struct {
	Key     string `json:"key"`
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failed reports whether the operation was rejected by the service.
func (r OpResult) Failed() bool {
	return r.Status == OpStatusError
}

// Payload is the decoded response document for one delivered batch.
type Payload struct {
	List    string     `json:"list"`
	Results []OpResult `json:"results"`
}

// FirstError returns the first failed operation result, scanning in service
// order.
func (p Payload) FirstError() (OpResult, bool) {
	for _, r := range p.Results {
		if r.Failed() {
			return r, true
		}
	}
	return OpResult{}, false
}

// BatchResponse is what a transport yields for one successfully delivered
// batch: the decoded payload plus the raw body for callers that need it.
type BatchResponse struct {
	Payload Payload
	Raw     json.RawMessage
}
