package listops

import (
	"encoding/json"
	"fmt"
)

// Descriptor is one already-serialized operation: a compact JSON object ready
// to be placed into a batch envelope verbatim. Immutable once produced.
type Descriptor string

// Serialize validates a change and encodes it into its descriptor form.
// json.Marshal handles the escaping of field values (quotes, newlines,
// control characters), so descriptors are always well-formed JSON.
func Serialize(c Change) (Descriptor, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid change: %w", err)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding change: %w", err)
	}
	return Descriptor(raw), nil
}

// SerializeAll serializes changes in order, failing on the first invalid one
// with its position in the input.
func SerializeAll(changes []Change) ([]Descriptor, error) {
	descriptors := make([]Descriptor, 0, len(changes))
	for i, c := range changes {
		d, err := Serialize(c)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// DecodeDescriptor parses a descriptor back into its structured change and
// validates it. Used to vet pre-serialized descriptor strings supplied as
// input.
func DecodeDescriptor(d Descriptor) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(d), &c); err != nil {
		return Change{}, fmt.Errorf("decoding descriptor: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Change{}, fmt.Errorf("invalid descriptor: %w", err)
	}
	return c, nil
}
