package dispatch

import (
	"fmt"

	"github.com/bulklist/bulklist/internal/listops"
)

// PayloadInspector is the standard ErrorInspector: a delivered payload
// encodes an application-level failure when any of its per-operation results
// failed. Used whenever Options.Inspector is left nil.
type PayloadInspector struct{}

// HasError reports whether any operation in the payload failed.
func (PayloadInspector) HasError(p listops.Payload) bool {
	_, found := p.FirstError()
	return found
}

// Message returns the first failing operation's message, falling back to its
// status code when the service sent none.
func (PayloadInspector) Message(p listops.Payload) string {
	r, found := p.FirstError()
	if !found {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("operation %q failed with code %d", r.Key, r.Code)
}
