package listops

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Normalize converts the accepted input shapes into an ordered []Change, so
// later stages only ever see one form. Accepted shapes:
//
//   - a single change mapping: {action: ..., key: ..., fields: ...}
//   - a sequence of change mappings and/or pre-serialized descriptor strings
//   - a flat pair list ["key", "item-1", "title", "New"] describing one
//     change; "action" and "key" pairs are hoisted, everything else becomes a
//     field, and the action defaults to update (the historical shorthand for
//     field updates)
//   - a single descriptor string, or []Change / Change passed through from
//     programmatic callers
//
// Every produced change is validated; order is preserved throughout.
func Normalize(doc any) ([]Change, error) {
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case Change:
		if err := v.Validate(); err != nil {
			return nil, err
		}
		return []Change{v}, nil
	case []Change:
		for i, c := range v {
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("operation %d: %w", i, err)
			}
		}
		return v, nil
	case string:
		c, err := DecodeDescriptor(Descriptor(v))
		if err != nil {
			return nil, err
		}
		return []Change{c}, nil
	case map[string]any:
		c, err := changeFromMapping(v)
		if err != nil {
			return nil, err
		}
		return []Change{c}, nil
	case []any:
		return normalizeSequence(v)
	default:
		return nil, fmt.Errorf("unsupported document shape %T", doc)
	}
}

// ParseDocument decodes a YAML or JSON document and normalizes it. YAML is a
// superset of JSON, so one decoder covers both.
func ParseDocument(data []byte) ([]Change, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return Normalize(doc)
}

func normalizeSequence(items []any) ([]Change, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if isPairList(items) {
		if len(items)%2 != 0 {
			return nil, errors.New("pair list must contain an even number of values")
		}
		c, err := changeFromPairs(items)
		if err != nil {
			return nil, err
		}
		return []Change{c}, nil
	}

	changes := make([]Change, 0, len(items))
	for i, item := range items {
		var (
			c   Change
			err error
		)
		switch it := item.(type) {
		case map[string]any:
			c, err = changeFromMapping(it)
		case string:
			c, err = DecodeDescriptor(Descriptor(it))
		default:
			err = fmt.Errorf("unsupported operation shape %T", item)
		}
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// isPairList reports whether items is the flat pair-list shorthand: all
// scalars, and not a list of descriptor strings (those start with a JSON
// object brace).
func isPairList(items []any) bool {
	for _, item := range items {
		if !isScalar(item) {
			return false
		}
	}
	if s, ok := items[0].(string); ok && looksLikeDescriptor(s) {
		return false
	}
	return true
}

func looksLikeDescriptor(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}

func changeFromMapping(m map[string]any) (Change, error) {
	for k := range m {
		switch k {
		case "action", "key", "fields":
		default:
			return Change{}, fmt.Errorf("unknown change field %q (expected action, key, or fields)", k)
		}
	}

	var c Change
	rawAction, ok := m["action"]
	if !ok {
		return Change{}, errors.New("change is missing an action")
	}
	actionStr, err := scalarString(rawAction)
	if err != nil {
		return Change{}, fmt.Errorf("action: %w", err)
	}
	if c.Action, err = ParseAction(actionStr); err != nil {
		return Change{}, err
	}

	if rawKey, ok := m["key"]; ok {
		if c.Key, err = scalarString(rawKey); err != nil {
			return Change{}, fmt.Errorf("key: %w", err)
		}
	}
	if rawFields, ok := m["fields"]; ok {
		if c.Fields, err = fieldsFrom(rawFields); err != nil {
			return Change{}, fmt.Errorf("fields: %w", err)
		}
	}
	return c, c.Validate()
}

func changeFromPairs(items []any) (Change, error) {
	c := Change{Action: ActionUpdate}
	fields := make(map[string]string)
	for i := 0; i < len(items); i += 2 {
		k, err := scalarString(items[i])
		if err != nil {
			return Change{}, fmt.Errorf("pair %d name: %w", i/2, err)
		}
		v, err := scalarString(items[i+1])
		if err != nil {
			return Change{}, fmt.Errorf("pair %d value: %w", i/2, err)
		}
		switch k {
		case "action":
			if c.Action, err = ParseAction(v); err != nil {
				return Change{}, err
			}
		case "key":
			c.Key = v
		default:
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		c.Fields = fields
	}
	return c, c.Validate()
}

// fieldsFrom accepts a field set as a mapping, a sequence of [name, value]
// pairs, or a flat even-length scalar sequence.
func fieldsFrom(v any) (map[string]string, error) {
	switch fv := v.(type) {
	case map[string]any:
		fields := make(map[string]string, len(fv))
		for k, raw := range fv {
			s, err := scalarString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = s
		}
		return fields, nil
	case []any:
		if len(fv) == 0 {
			return nil, nil
		}
		if _, ok := fv[0].([]any); ok {
			return fieldsFromNestedPairs(fv)
		}
		if len(fv)%2 != 0 {
			return nil, errors.New("flat field list must contain an even number of values")
		}
		fields := make(map[string]string, len(fv)/2)
		for i := 0; i < len(fv); i += 2 {
			k, err := scalarString(fv[i])
			if err != nil {
				return nil, err
			}
			val, err := scalarString(fv[i+1])
			if err != nil {
				return nil, err
			}
			fields[k] = val
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("expected mapping or pair list, got %T", v)
	}
}

func fieldsFromNestedPairs(items []any) (map[string]string, error) {
	fields := make(map[string]string, len(items))
	for i, item := range items {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("pair %d: expected [name, value]", i)
		}
		k, err := scalarString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("pair %d name: %w", i, err)
		}
		v, err := scalarString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("pair %d value: %w", i, err)
		}
		fields[k] = v
	}
	return fields, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func scalarString(v any) (string, error) {
	if !isScalar(v) {
		return "", fmt.Errorf("expected scalar value, got %T", v)
	}
	return fmt.Sprint(v), nil
}
